// ABOUTME: Trip summary statistics derived from the track
// ABOUTME: Great-circle distance, elevation gain and capture counts

package export

import (
	"math"
	"time"

	"github.com/harper/rotograma/internal/models"
)

const earthRadiusKm = 6371.0088

// HaversineKm returns the great-circle distance between two coordinates in kilometres.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Summary describes a session at a glance.
type Summary struct {
	PointCount     int           `json:"point_count"`
	CaptureCount   int           `json:"capture_count"`
	DegradedCount  int           `json:"degraded_count"`
	DistanceM      float64       `json:"distance_m"`
	ElevationGainM float64       `json:"elevation_gain_m"`
	Duration       time.Duration `json:"duration"`
}

// Summarize walks the track in sequence order.
func Summarize(s *models.Session) Summary {
	sum := Summary{
		PointCount:   len(s.TrackPoints),
		CaptureCount: len(s.CaptureEvents),
		Duration:     s.Duration(),
	}
	for _, ev := range s.CaptureEvents {
		if ev.Degraded {
			sum.DegradedCount++
		}
	}
	for i := 1; i < len(s.TrackPoints); i++ {
		prev, cur := s.TrackPoints[i-1], s.TrackPoints[i]
		sum.DistanceM += HaversineKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude) * 1000
		if cur.Elevation > prev.Elevation {
			sum.ElevationGainM += cur.Elevation - prev.Elevation
		}
	}
	return sum
}
