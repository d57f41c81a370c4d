// ABOUTME: Track sampler wrapping a location provider subscription
// ABOUTME: Accumulates the ordered, append-only track of the active session

package track

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harper/rotograma/internal/device"
	"github.com/harper/rotograma/internal/models"
)

// Status values reported by the sampler.
const (
	StatusIdle    = "idle"
	StatusWaiting = "waiting for fix"
	StatusOK      = "ok"
)

// Stats is a read-only projection of the sampler state.
type Stats struct {
	Points     int       `json:"points"`
	OutOfOrder int       `json:"out_of_order"`
	Rejected   int       `json:"rejected"`
	Status     string    `json:"status"`
	Subscribed bool      `json:"subscribed"`
	LastFix    time.Time `json:"last_fix,omitempty"`
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithLogger sets the logger used for sensor diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPointHandler registers a callback invoked after each appended point.
func WithPointHandler(fn func(models.TrackPoint)) Option {
	return func(s *Sampler) { s.onPoint = fn }
}

// WithClock overrides the clock used for fixes without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) { s.now = now }
}

// Sampler holds at most one provider subscription at a time.
type Sampler struct {
	provider device.LocationProvider
	logger   *slog.Logger
	onPoint  func(models.TrackPoint)
	now      func() time.Time

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mu         sync.Mutex
	sub        device.Subscription
	cancel     context.CancelFunc
	quit       chan struct{}
	done       chan struct{}
	points     []models.TrackPoint
	outOfOrder int
	rejected   int
	status     string
}

// NewSampler creates an idle sampler for the given provider.
func NewSampler(provider device.LocationProvider, opts ...Option) *Sampler {
	s := &Sampler{
		provider: provider,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resets the track and opens a new subscription, closing any prior one first.
// A failed watch is reported through Stats as well as the returned error.
// The subscription outlives ctx and ends only on Stop or the next Start;
// ctx contributes its values, not its deadline.
func (s *Sampler) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stopLocked()

	s.mu.Lock()
	s.points = nil
	s.outOfOrder = 0
	s.rejected = 0
	s.status = StatusWaiting
	s.mu.Unlock()

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub, err := s.provider.Watch(watchCtx)
	if err != nil {
		cancel()
		s.setError(err)
		return fmt.Errorf("watch position: %w", err)
	}

	quit := make(chan struct{})
	done := make(chan struct{})

	s.mu.Lock()
	s.sub = sub
	s.cancel = cancel
	s.quit = quit
	s.done = done
	s.mu.Unlock()

	go s.consume(sub, quit, done)
	return nil
}

// Stop closes the subscription. It is safe to call when not subscribed.
// Points collected so far remain available until the next Start.
func (s *Sampler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked()
}

func (s *Sampler) stopLocked() {
	s.mu.Lock()
	sub, cancel, quit, done := s.sub, s.cancel, s.quit, s.done
	s.sub, s.cancel, s.quit, s.done = nil, nil, nil, nil
	if sub != nil {
		s.status = StatusIdle
	}
	s.mu.Unlock()

	if sub == nil {
		return
	}
	close(quit)
	cancel()
	if err := sub.Close(); err != nil {
		s.logger.Warn("close location subscription", "error", err)
	}
	<-done
}

func (s *Sampler) consume(sub device.Subscription, quit, done chan struct{}) {
	defer close(done)
	updates := sub.Updates()
	for {
		select {
		case <-quit:
			return
		case u, ok := <-updates:
			if !ok {
				s.mu.Lock()
				if s.sub == sub {
					s.status = "location stream ended"
				}
				s.mu.Unlock()
				return
			}
			if u.Err != nil {
				s.setError(u.Err)
				continue
			}
			s.handleFix(u.Fix)
		}
	}
}

func (s *Sampler) handleFix(fix device.Fix) {
	if err := models.ValidateCoordinates(fix.Latitude, fix.Longitude); err != nil {
		s.mu.Lock()
		s.rejected++
		s.status = "invalid fix: " + err.Error()
		s.mu.Unlock()
		s.logger.Warn("rejected location fix", "error", err)
		return
	}

	ts := fix.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	pt := models.TrackPoint{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Elevation: fix.Elevation,
		Timestamp: ts,
	}

	s.mu.Lock()
	if n := len(s.points); n > 0 && !ts.After(s.points[n-1].Timestamp) {
		s.outOfOrder++
		s.logger.Debug("out-of-order fix", "timestamp", ts, "previous", s.points[n-1].Timestamp)
	}
	s.points = append(s.points, pt)
	s.status = StatusOK
	onPoint := s.onPoint
	s.mu.Unlock()

	if onPoint != nil {
		onPoint(pt)
	}
}

func (s *Sampler) setError(err error) {
	s.mu.Lock()
	s.status = "location error: " + err.Error()
	s.mu.Unlock()
	s.logger.Warn("location unavailable", "error", err)
}

// Points returns a copy of the track in delivery order.
func (s *Sampler) Points() []models.TrackPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TrackPoint(nil), s.points...)
}

// Stats returns the current status projection.
func (s *Sampler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		Points:     len(s.points),
		OutOfOrder: s.outOfOrder,
		Rejected:   s.rejected,
		Status:     s.status,
		Subscribed: s.sub != nil,
	}
	if n := len(s.points); n > 0 {
		st.LastFix = s.points[n-1].Timestamp
	}
	return st
}
