// ABOUTME: Shared fixtures for export tests
// ABOUTME: Builds sessions with known tracks and capture images

package export

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harper/rotograma/internal/models"
	"github.com/stretchr/testify/require"
)

var tripStart = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func testSession(points ...models.TrackPoint) *models.Session {
	ended := tripStart.Add(10 * time.Minute)
	return &models.Session{
		ID:          uuid.MustParse("6f1c2a4e-8d3b-4c5a-9e7f-0a1b2c3d4e5f"),
		State:       models.StateFinalized,
		StartedAt:   tripStart,
		EndedAt:     &ended,
		TrackPoints: points,
	}
}

func scenarioPoints() []models.TrackPoint {
	return []models.TrackPoint{
		{Latitude: 10.0, Longitude: 20.0, Timestamp: tripStart},
		{Latitude: 10.01, Longitude: 20.01, Timestamp: tripStart.Add(5 * time.Second)},
	}
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}
