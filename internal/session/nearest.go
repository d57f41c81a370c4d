// ABOUTME: Correlates capture instants with the recorded track
// ABOUTME: Nearest by absolute time distance, ties go to the earlier fix

package session

import (
	"time"

	"github.com/harper/rotograma/internal/models"
)

// NearestPoint returns the point closest in time to at. ok is false for an empty track.
// No staleness limit applies: a distant fix is still the nearest one.
func NearestPoint(points []models.TrackPoint, at time.Time) (models.TrackPoint, bool) {
	best := -1
	var bestDist time.Duration
	for i, p := range points {
		d := p.Timestamp.Sub(at)
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDist || (d == bestDist && p.Timestamp.Before(points[best].Timestamp)) {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return models.TrackPoint{}, false
	}
	return points[best], true
}
