// ABOUTME: Simulated location provider replaying a recorded or generated route
// ABOUTME: Emits one fix per tick, stamped with the replay clock

package sim

import (
	"context"
	"sync"
	"time"

	"github.com/harper/rotograma/internal/device"
	"github.com/harper/rotograma/internal/models"
)

// ReplayProvider replays a fixed route as a live position stream.
type ReplayProvider struct {
	points   []models.TrackPoint
	interval time.Duration
	now      func() time.Time
}

// ReplayOption configures a ReplayProvider.
type ReplayOption func(*ReplayProvider)

// WithInterval sets the delay between fixes.
func WithInterval(d time.Duration) ReplayOption {
	return func(p *ReplayProvider) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithReplayClock overrides the clock used to stamp fixes.
func WithReplayClock(now func() time.Time) ReplayOption {
	return func(p *ReplayProvider) { p.now = now }
}

// NewReplayProvider creates a provider that walks points in order, once per interval.
func NewReplayProvider(points []models.TrackPoint, opts ...ReplayOption) *ReplayProvider {
	p := &ReplayProvider{
		points:   append([]models.TrackPoint(nil), points...),
		interval: time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Watch starts a new replay from the first point.
func (p *ReplayProvider) Watch(ctx context.Context) (device.Subscription, error) {
	sub := &replaySub{
		ch:   make(chan device.Update, 1),
		quit: make(chan struct{}),
	}
	go sub.run(ctx, p)
	return sub, nil
}

type replaySub struct {
	ch   chan device.Update
	quit chan struct{}
	once sync.Once
}

func (s *replaySub) Updates() <-chan device.Update { return s.ch }

func (s *replaySub) Close() error {
	s.once.Do(func() { close(s.quit) })
	return nil
}

func (s *replaySub) run(ctx context.Context, p *ReplayProvider) {
	defer close(s.ch)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for i := 0; ; {
		if i < len(p.points) {
			pt := p.points[i]
			fix := device.Fix{
				Latitude:  pt.Latitude,
				Longitude: pt.Longitude,
				Elevation: pt.Elevation,
				Timestamp: p.now(),
			}
			select {
			case s.ch <- device.Update{Fix: fix}:
				i++
			case <-s.quit:
				return
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ticker.C:
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// StraightRoute interpolates n points from one coordinate to another,
// climbing linearly from ele0 to ele1. Timestamps are one step apart from start.
func StraightRoute(lat0, lng0, lat1, lng1, ele0, ele1 float64, n int, start time.Time, step time.Duration) []models.TrackPoint {
	if n <= 0 {
		return nil
	}
	points := make([]models.TrackPoint, n)
	for i := range points {
		f := 0.0
		if n > 1 {
			f = float64(i) / float64(n-1)
		}
		points[i] = models.TrackPoint{
			Latitude:  lat0 + (lat1-lat0)*f,
			Longitude: lng0 + (lng1-lng0)*f,
			Elevation: ele0 + (ele1-ele0)*f,
			Timestamp: start.Add(time.Duration(i) * step),
		}
	}
	return points
}
