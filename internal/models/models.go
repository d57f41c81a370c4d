// ABOUTME: Core data models for recording sessions, track points and captures
// ABOUTME: Provides constructors and validation shared by every package

package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// MaxLabelLength bounds capture labels, in bytes.
const MaxLabelLength = 255

// ValidateCoordinates checks if latitude and longitude are within valid ranges.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("coordinates cannot be NaN")
	}
	if math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return fmt.Errorf("coordinates cannot be infinite")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateLabel checks a capture label. Empty labels are allowed.
func ValidateLabel(label string) error {
	if len(label) > MaxLabelLength {
		return fmt.Errorf("label too long (max %d characters)", MaxLabelLength)
	}
	if strings.ContainsAny(label, "\x00\r\n") {
		return fmt.Errorf("label cannot contain control characters")
	}
	return nil
}

// State is the lifecycle state of a recording session.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateFinalized State = "finalized"
)

// TrackPoint is one GPS fix. Elevation is 0 when the provider does not report it.
type TrackPoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Elevation float64   `json:"elevation"`
	Timestamp time.Time `json:"timestamp"`
}

// CaptureEvent is one annotated still taken during a session.
type CaptureEvent struct {
	ID        ulid.ULID   `json:"id"`
	Label     string      `json:"label"`
	Image     []byte      `json:"-"`
	Timestamp time.Time   `json:"timestamp"`
	Nearest   *TrackPoint `json:"nearest,omitempty"`
	// Degraded marks a "no-map" capture composited without the map inset.
	Degraded bool `json:"degraded"`
}

// NewCaptureEvent creates a capture event whose ID sorts by the request time.
// Times outside the ULID range, including the zero time, are clamped to it.
func NewCaptureEvent(label string, image []byte, at time.Time, nearest *TrackPoint, degraded bool) *CaptureEvent {
	return &CaptureEvent{
		ID:        captureID(at),
		Label:     label,
		Image:     image,
		Timestamp: at,
		Nearest:   nearest,
		Degraded:  degraded,
	}
}

func captureID(at time.Time) ulid.ULID {
	var ms uint64
	switch {
	case at.Before(time.UnixMilli(0)):
		ms = 0
	case at.After(ulid.Time(ulid.MaxTime())):
		ms = ulid.MaxTime()
	default:
		ms = ulid.Timestamp(at)
	}
	id, err := ulid.New(ms, ulid.DefaultEntropy())
	if err != nil {
		return ulid.Make()
	}
	return id
}

// VideoBlob is the encoded media handed back by the external recorder.
type VideoBlob struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// Extension returns the file extension matching the blob's container type.
func (v *VideoBlob) Extension() string {
	mime := strings.ToLower(v.MIMEType)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	switch strings.TrimSpace(mime) {
	case "video/mp4":
		return "mp4"
	case "video/quicktime":
		return "mov"
	case "video/x-matroska":
		return "mkv"
	case "video/x-motion-jpeg":
		return "mjpeg"
	default:
		return "webm"
	}
}

// Session is one recording trip. It exclusively owns its track and capture sequences.
type Session struct {
	ID            uuid.UUID      `json:"id"`
	State         State          `json:"state"`
	StartedAt     time.Time      `json:"started_at"`
	EndedAt       *time.Time     `json:"ended_at,omitempty"`
	TrackPoints   []TrackPoint   `json:"track_points"`
	CaptureEvents []CaptureEvent `json:"capture_events"`
	Video         *VideoBlob     `json:"video,omitempty"`
}

// NewSession creates an idle session with a generated UUID.
func NewSession() *Session {
	return &Session{
		ID:    uuid.New(),
		State: StateIdle,
	}
}

// Duration returns the recorded duration, or zero while the session has not ended.
func (s *Session) Duration() time.Duration {
	if s.EndedAt == nil || s.StartedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Snapshot returns a copy whose sequences do not alias the receiver's.
func (s *Session) Snapshot() *Session {
	cp := *s
	cp.TrackPoints = append([]TrackPoint(nil), s.TrackPoints...)
	cp.CaptureEvents = append([]CaptureEvent(nil), s.CaptureEvents...)
	if s.EndedAt != nil {
		ended := *s.EndedAt
		cp.EndedAt = &ended
	}
	return &cp
}

// Format tags an export document.
type Format string

const (
	FormatGPX     Format = "gpx"
	FormatKMZ     Format = "kmz"
	FormatPDF     Format = "pdf"
	FormatVideo   Format = "video"
	FormatGeoJSON Format = "geojson"
)

// Formats lists every supported export format.
var Formats = []Format{FormatGPX, FormatKMZ, FormatPDF, FormatVideo, FormatGeoJSON}

// ParseFormat converts a user-supplied name into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %q", s)
}

// ExportDocument is a serialized export. It is never mutated after creation.
type ExportDocument struct {
	Format   Format
	Name     string
	MIMEType string
	Payload  []byte
}
