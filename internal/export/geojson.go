// ABOUTME: GeoJSON generation for a session
// ABOUTME: Track as a LineString feature plus one Point feature per capture

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harper/rotograma/internal/models"
)

// FeatureCollection represents a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a GeoJSON Feature.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry represents a GeoJSON Geometry.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// PointCoordinates represents [longitude, latitude, elevation].
type PointCoordinates [3]float64

// LineCoordinates represents [[lng, lat, ele], ...] for a LineString.
type LineCoordinates []PointCoordinates

func pointCoords(p models.TrackPoint) PointCoordinates {
	return PointCoordinates{p.Longitude, p.Latitude, p.Elevation}
}

// ToFeatureCollection converts the session track and captures to GeoJSON.
// A single-point track becomes a Point since a LineString needs two positions.
func ToFeatureCollection(s *models.Session) (*FeatureCollection, error) {
	if len(s.TrackPoints) == 0 {
		return nil, ErrEmptyTrack
	}

	features := make([]Feature, 0, 1+len(s.CaptureEvents))

	trackProps := map[string]interface{}{
		"name":        trackName(s),
		"point_count": len(s.TrackPoints),
	}
	if !s.StartedAt.IsZero() {
		trackProps["started_at"] = s.StartedAt.UTC().Format(time.RFC3339)
	}

	if len(s.TrackPoints) == 1 {
		features = append(features, Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Point", Coordinates: pointCoords(s.TrackPoints[0])},
			Properties: trackProps,
		})
	} else {
		coords := make(LineCoordinates, len(s.TrackPoints))
		for i, p := range s.TrackPoints {
			coords[i] = pointCoords(p)
		}
		features = append(features, Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "LineString", Coordinates: coords},
			Properties: trackProps,
		})
	}

	for _, ev := range s.CaptureEvents {
		// Captures without a fix have no location to plot.
		if ev.Nearest == nil {
			continue
		}
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "Point", Coordinates: pointCoords(*ev.Nearest)},
			Properties: map[string]interface{}{
				"label":       ev.Label,
				"captured_at": ev.Timestamp.UTC().Format(time.RFC3339),
				"degraded":    ev.Degraded,
			},
		})
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}, nil
}

// GeoJSON serializes the session as indented GeoJSON.
func GeoJSON(s *models.Session) ([]byte, error) {
	fc, err := ToFeatureCollection(s)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return data, nil
}
