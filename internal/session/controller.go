// ABOUTME: Session controller state machine coordinating recorder, sampler and captures
// ABOUTME: Idle -> Recording -> Finalized, with capture order reserved at call time

package session

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harper/rotograma/internal/compositor"
	"github.com/harper/rotograma/internal/device"
	"github.com/harper/rotograma/internal/export"
	"github.com/harper/rotograma/internal/models"
	"github.com/harper/rotograma/internal/track"
)

// DefaultOverlayTimeout bounds the wait for a mini-map snapshot.
const DefaultOverlayTimeout = 2 * time.Second

// DefaultWatermarkText is rendered as the watermark glyph when none is set.
const DefaultWatermarkText = "ROTOGRAMA"

// Devices are the external capabilities driven by a controller.
// Overlay may be nil, in which case every capture is degraded.
type Devices struct {
	Location device.LocationProvider
	Recorder device.MediaRecorder
	Frames   device.FrameSource
	Overlay  device.OverlayRenderer
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the wall clock used for session and capture timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithOverlayTimeout bounds the overlay snapshot wait.
func WithOverlayTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.overlayTimeout = d
		}
	}
}

// WithPolicy sets the recorder capability tiers.
func WithPolicy(p CapabilityPolicy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithWatermark sets the fixed watermark glyph. Without it captures carry
// a badge reading DefaultWatermarkText.
func WithWatermark(glyph image.Image) Option {
	return func(c *Controller) { c.glyph = glyph }
}

// WithCompositor replaces the default compositor.
func WithCompositor(cp *compositor.Compositor) Option {
	return func(c *Controller) { c.comp = cp }
}

// WithJPEGQuality sets the capture image quality (1-100).
func WithJPEGQuality(q int) Option {
	return func(c *Controller) { c.jpegQuality = q }
}

// WithStatusHandler registers an observer called after every status change.
// Calls are serialized, including those made from capture goroutines, so the
// handler needs no locking of its own. It must not call back into lifecycle
// methods.
func WithStatusHandler(fn func(Status)) Option {
	return func(c *Controller) { c.onStatus = fn }
}

// WithReportTitle sets the heading of exported PDF reports.
func WithReportTitle(title string) Option {
	return func(c *Controller) { c.engine.ReportTitle = title }
}

// slot reserves a capture's position in the event sequence.
type slot struct {
	done  chan struct{}
	event *models.CaptureEvent
	err   error
}

// Controller owns one Session at a time and the devices recording it.
type Controller struct {
	dev            Devices
	sampler        *track.Sampler
	comp           *compositor.Compositor
	policy         CapabilityPolicy
	overlayTimeout time.Duration
	jpegQuality    int
	engine         export.Engine
	glyph          image.Image
	logger         *slog.Logger
	now            func() time.Time
	onStatus       func(Status)
	emitMu         sync.Mutex

	// lifecycle serializes Start, Stop and Reset.
	lifecycle sync.Mutex
	inflight  sync.WaitGroup

	mu        sync.Mutex
	session   *models.Session
	accepting bool
	slots     []*slot
	active    device.Constraints
	degraded  int
	message   string
}

// NewController creates a controller holding a fresh idle session.
func NewController(dev Devices, opts ...Option) (*Controller, error) {
	if dev.Location == nil {
		return nil, fmt.Errorf("location provider is required")
	}
	if dev.Recorder == nil {
		return nil, fmt.Errorf("media recorder is required")
	}
	if dev.Frames == nil {
		return nil, fmt.Errorf("frame source is required")
	}

	c := &Controller{
		dev:            dev,
		policy:         DefaultPolicy,
		overlayTimeout: DefaultOverlayTimeout,
		jpegQuality:    85,
		logger:         slog.New(slog.DiscardHandler),
		now:            time.Now,
		session:        models.NewSession(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.comp == nil {
		cp, err := compositor.New()
		if err != nil {
			return nil, err
		}
		c.comp = cp
	}
	if c.glyph == nil {
		g, err := c.comp.TextGlyph(DefaultWatermarkText)
		if err != nil {
			return nil, err
		}
		c.glyph = g
	}
	c.sampler = track.NewSampler(dev.Location, track.WithLogger(c.logger), track.WithClock(c.now))
	return c, nil
}

// Start arms the sampler and the recorder. A recorder that cannot be armed
// rolls the session back to idle and releases the location subscription.
func (c *Controller) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.session.State != models.StateIdle {
		state := c.session.State
		c.mu.Unlock()
		return fmt.Errorf("start (%s): %w", state, ErrAlreadyActive)
	}
	c.session.StartedAt = c.now()
	c.session.State = models.StateRecording
	c.message = ""
	id := c.session.ID
	c.mu.Unlock()

	if err := c.sampler.Start(ctx); err != nil {
		// Location trouble is advisory; recording continues without a track.
		c.setMessage(err.Error())
	}

	constraints, err := c.policy.Arm(ctx, c.dev.Recorder)
	if err != nil {
		c.sampler.Stop()
		c.mu.Lock()
		c.session.State = models.StateIdle
		c.session.StartedAt = time.Time{}
		c.message = err.Error()
		c.mu.Unlock()
		c.logger.Error("recorder unavailable", "session", id, "error", err)
		c.emit()
		return err
	}

	c.mu.Lock()
	c.active = constraints
	c.accepting = true
	c.mu.Unlock()

	c.logger.Info("session started", "session", id, "constraints", constraints.String())
	c.emit()
	return nil
}

// Stop finalizes the session. It is a no-op once finalized. In-flight captures
// are allowed to finish and are recorded. The session is finalized even when
// the recorder fails to flush; that error is returned after finalizing.
func (c *Controller) Stop(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	switch c.session.State {
	case models.StateFinalized:
		c.mu.Unlock()
		return nil
	case models.StateIdle:
		c.mu.Unlock()
		return fmt.Errorf("stop: %w", ErrNotActive)
	}
	c.accepting = false
	id := c.session.ID
	c.mu.Unlock()

	c.sampler.Stop()
	c.inflight.Wait()

	blob, recErr := c.dev.Recorder.Stop(ctx)
	if recErr != nil {
		c.logger.Error("recorder finalize failed", "session", id, "error", recErr)
	}

	c.mu.Lock()
	ended := c.now()
	s := c.session
	s.EndedAt = &ended
	s.TrackPoints = c.sampler.Points()
	s.CaptureEvents = c.collectLocked()
	s.Video = blob
	s.State = models.StateFinalized
	c.active = device.Constraints{}
	if recErr != nil {
		c.message = "video not saved: " + recErr.Error()
	}
	points, captures := len(s.TrackPoints), len(s.CaptureEvents)
	c.mu.Unlock()

	c.logger.Info("session finalized", "session", id, "points", points, "captures", captures)
	c.emit()

	if recErr != nil {
		return fmt.Errorf("finalize recorder: %w", recErr)
	}
	return nil
}

// Reset replaces a finalized or idle session with a new idle one.
func (c *Controller) Reset() (uuid.UUID, error) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.session.State == models.StateRecording {
		c.mu.Unlock()
		return uuid.Nil, fmt.Errorf("reset: %w", ErrAlreadyActive)
	}
	c.session = models.NewSession()
	c.slots = nil
	c.degraded = 0
	c.message = ""
	id := c.session.ID
	c.mu.Unlock()

	c.emit()
	return id, nil
}

// Capture grabs the current frame synchronously, then composites it with the
// map snapshot and watermark. The event keeps the request time and its
// position among captures is fixed before compositing starts. A cancelled ctx
// only stops the wait; the capture still completes and is recorded.
func (c *Controller) Capture(ctx context.Context, label string) (*models.CaptureEvent, error) {
	if err := models.ValidateLabel(label); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	c.mu.Lock()
	if c.session.State != models.StateRecording || !c.accepting {
		state := c.session.State
		c.mu.Unlock()
		return nil, fmt.Errorf("capture (%s): %w", state, ErrNotRecording)
	}
	requestedAt := c.now()
	frame, err := c.dev.Frames.Frame()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("grab frame: %w", err)
	}
	sl := &slot{done: make(chan struct{})}
	c.slots = append(c.slots, sl)
	c.inflight.Add(1)
	c.mu.Unlock()

	go c.complete(sl, frame, label, requestedAt)

	select {
	case <-sl.done:
		return sl.event, sl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Controller) complete(sl *slot, frame image.Image, label string, requestedAt time.Time) {
	defer c.inflight.Done()

	overlay, degraded := c.snapshotOverlay()
	wm := compositor.Watermark{Glyph: c.glyph, Label: compositor.TimestampLabel(requestedAt)}

	var data []byte
	img, _, err := c.comp.Compose(frame, overlay, wm)
	if err == nil {
		data, err = compositor.EncodeJPEG(img, c.jpegQuality)
	}

	var nearest *models.TrackPoint
	if p, ok := NearestPoint(c.sampler.Points(), requestedAt); ok {
		nearest = &p
	}

	c.mu.Lock()
	if err != nil {
		sl.err = fmt.Errorf("composite capture: %w", err)
		c.message = sl.err.Error()
	} else {
		sl.event = models.NewCaptureEvent(label, data, requestedAt, nearest, degraded)
		if degraded {
			c.degraded++
			c.message = "capture saved without map"
		}
	}
	close(sl.done)
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("capture failed", "label", label, "error", err)
	} else if degraded {
		c.logger.Warn("capture without map inset", "label", label)
	}
	c.emit()
}

// snapshotOverlay waits at most overlayTimeout for the mini-map, even when the
// renderer ignores its context. degraded is true when no snapshot was obtained.
func (c *Controller) snapshotOverlay() (image.Image, bool) {
	if c.dev.Overlay == nil {
		return nil, true
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.overlayTimeout)
	defer cancel()

	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, err := c.dev.Overlay.Snapshot(ctx)
		ch <- result{img: img, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil || r.img == nil {
			c.logger.Debug("overlay snapshot unavailable", "error", r.err)
			return nil, true
		}
		return r.img, false
	case <-ctx.Done():
		c.logger.Debug("overlay snapshot timed out", "timeout", c.overlayTimeout)
		return nil, true
	}
}

// collectLocked returns completed captures in reservation order.
func (c *Controller) collectLocked() []models.CaptureEvent {
	events := make([]models.CaptureEvent, 0, len(c.slots))
	for _, sl := range c.slots {
		select {
		case <-sl.done:
		default:
			continue
		}
		if sl.event != nil {
			events = append(events, *sl.event)
		}
	}
	return events
}

// Session returns a snapshot of the current session. While recording it holds
// the points and completed captures gathered so far.
func (c *Controller) Session() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.session.Snapshot()
	if snap.State == models.StateRecording {
		snap.TrackPoints = c.sampler.Points()
		snap.CaptureEvents = c.collectLocked()
	}
	return snap
}

// TrackPoints returns the track recorded so far.
func (c *Controller) TrackPoints() []models.TrackPoint {
	return c.sampler.Points()
}

// Export serializes a snapshot of the current session.
func (c *Controller) Export(format models.Format) (*models.ExportDocument, error) {
	return c.engine.Export(c.Session(), format)
}

func (c *Controller) setMessage(msg string) {
	c.mu.Lock()
	c.message = msg
	c.mu.Unlock()
}

func (c *Controller) emit() {
	if c.onStatus == nil {
		return
	}
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.onStatus(c.Status())
}
