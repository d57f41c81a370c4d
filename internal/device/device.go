// ABOUTME: Contracts for the external capabilities a recording session drives
// ABOUTME: Location provider, media recorder, live frame source and mini-map renderer

package device

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/harper/rotograma/internal/models"
)

// ErrUnavailable is returned when a camera, microphone or similar device is denied or absent.
var ErrUnavailable = errors.New("device unavailable")

// Constraints describes a capability request made to the media recorder.
type Constraints struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	Audio  bool `json:"audio"`
}

func (c Constraints) String() string {
	if c.Audio {
		return fmt.Sprintf("%dx%d+audio", c.Width, c.Height)
	}
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// PreferredConstraints is the first capability tier requested.
var PreferredConstraints = Constraints{Width: 1280, Height: 720, Audio: true}

// ReducedConstraints is the fallback tier used after ErrUnavailable.
var ReducedConstraints = Constraints{Width: 640, Height: 480, Audio: false}

// Fix is a position reported by a location provider.
type Fix struct {
	Latitude  float64
	Longitude float64
	Elevation float64
	Timestamp time.Time
}

// Update carries either a Fix or an error. Err is nil for fixes.
type Update struct {
	Fix Fix
	Err error
}

// Subscription is one open position watch.
type Subscription interface {
	// Updates is closed by the provider after Close.
	Updates() <-chan Update
	Close() error
}

// LocationProvider delivers positions at a provider-determined cadence.
type LocationProvider interface {
	Watch(ctx context.Context) (Subscription, error)
}

// RecorderState is the observable state of the media recorder.
type RecorderState string

const (
	RecorderInactive  RecorderState = "inactive"
	RecorderRecording RecorderState = "recording"
)

// MediaRecorder turns the live camera/audio stream into an encoded container.
type MediaRecorder interface {
	// Start arms the recorder. It returns an error wrapping ErrUnavailable
	// when the requested streams cannot be opened.
	Start(ctx context.Context, c Constraints) error
	// Stop flushes the recorder and returns the encoded media.
	Stop(ctx context.Context) (*models.VideoBlob, error)
	State() RecorderState
}

// FrameSource exposes the current live video frame. Frame must not block
// and the returned image must not be mutated afterwards.
type FrameSource interface {
	Frame() (image.Image, error)
}

// OverlayRenderer is the mini-map widget.
type OverlayRenderer interface {
	// Snapshot renders the current map view, pre-cropped to a square.
	Snapshot(ctx context.Context) (image.Image, error)
	// Center reports the current map center, ok is false before the first fix.
	Center() (lat, lng float64, ok bool)
}
