// ABOUTME: Media recorder that samples a frame source into a motion-JPEG stream
// ABOUTME: Frames are scaled to the requested constraints and concatenated

package sim

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/harper/rotograma/internal/device"
	"github.com/harper/rotograma/internal/models"
	"golang.org/x/image/draw"
)

// MJPEGMIMEType is the container type produced by MJPEGRecorder.
const MJPEGMIMEType = "video/x-motion-jpeg"

// MJPEGRecorder implements device.MediaRecorder on top of a FrameSource.
type MJPEGRecorder struct {
	frames   device.FrameSource
	interval time.Duration
	max      device.Constraints
	logger   *slog.Logger

	mu     sync.Mutex
	state  device.RecorderState
	target device.Constraints
	buf    bytes.Buffer
	count  int
	quit   chan struct{}
	done   chan struct{}
}

// MJPEGOption configures an MJPEGRecorder.
type MJPEGOption func(*MJPEGRecorder)

// WithFrameInterval sets how often a frame is sampled.
func WithFrameInterval(d time.Duration) MJPEGOption {
	return func(r *MJPEGRecorder) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithMaxConstraints caps what the recorder accepts. Requests above it,
// or asking for audio when the cap has none, fail with device.ErrUnavailable.
func WithMaxConstraints(c device.Constraints) MJPEGOption {
	return func(r *MJPEGRecorder) { r.max = c }
}

// WithRecorderLogger sets the logger.
func WithRecorderLogger(l *slog.Logger) MJPEGOption {
	return func(r *MJPEGRecorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewMJPEGRecorder creates an inactive recorder.
func NewMJPEGRecorder(frames device.FrameSource, opts ...MJPEGOption) *MJPEGRecorder {
	r := &MJPEGRecorder{
		frames:   frames,
		interval: 200 * time.Millisecond,
		max:      device.PreferredConstraints,
		logger:   slog.New(slog.DiscardHandler),
		state:    device.RecorderInactive,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins sampling frames at the requested size.
func (r *MJPEGRecorder) Start(ctx context.Context, c device.Constraints) error {
	if c.Width > r.max.Width || c.Height > r.max.Height || (c.Audio && !r.max.Audio) {
		return fmt.Errorf("recorder cannot open %s: %w", c, device.ErrUnavailable)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid recorder size %s", c)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == device.RecorderRecording {
		return fmt.Errorf("recorder already running")
	}
	r.state = device.RecorderRecording
	r.target = c
	r.buf.Reset()
	r.count = 0
	r.quit = make(chan struct{})
	r.done = make(chan struct{})

	go r.run(r.quit, r.done)
	r.logger.Debug("recorder started", "constraints", c.String())
	return nil
}

func (r *MJPEGRecorder) run(quit, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sample()
	for {
		select {
		case <-ticker.C:
			r.sample()
		case <-quit:
			return
		}
	}
}

func (r *MJPEGRecorder) sample() {
	frame, err := r.frames.Frame()
	if err != nil {
		r.logger.Warn("frame unavailable", "error", err)
		return
	}

	r.mu.Lock()
	target := r.target
	r.mu.Unlock()

	scaled := image.NewRGBA(image.Rect(0, 0, target.Width, target.Height))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), frame, frame.Bounds(), draw.Src, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, scaled, &jpeg.Options{Quality: 70}); err != nil {
		r.logger.Warn("frame encode failed", "error", err)
		return
	}

	r.mu.Lock()
	r.buf.Write(out.Bytes())
	r.count++
	r.mu.Unlock()
}

// Stop ends sampling and returns the stream recorded since Start.
func (r *MJPEGRecorder) Stop(ctx context.Context) (*models.VideoBlob, error) {
	r.mu.Lock()
	if r.state != device.RecorderRecording {
		r.mu.Unlock()
		return nil, fmt.Errorf("recorder not running")
	}
	r.state = device.RecorderInactive
	quit, done := r.quit, r.done
	r.mu.Unlock()

	close(quit)
	select {
	case <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("recorder stop: %w", ctx.Err())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	data := append([]byte(nil), r.buf.Bytes()...)
	r.logger.Debug("recorder stopped", "frames", r.count, "bytes", len(data))
	return &models.VideoBlob{MIMEType: MJPEGMIMEType, Data: data}, nil
}

// State reports whether the recorder is running.
func (r *MJPEGRecorder) State() device.RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Frames reports how many frames the last or current recording holds.
func (r *MJPEGRecorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
