// ABOUTME: Test doubles for the devices a controller drives
// ABOUTME: Scriptable recorder, gated overlay, channel-backed location and a manual clock

package session

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"github.com/harper/rotograma/internal/device"
	"github.com/harper/rotograma/internal/models"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock { return &fakeClock{t: t0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fakeSub struct {
	ctx    context.Context
	ch     chan device.Update
	once   sync.Once
	parent *fakeLocation
}

func (s *fakeSub) Updates() <-chan device.Update { return s.ch }

func (s *fakeSub) Close() error {
	s.once.Do(func() {
		s.parent.mu.Lock()
		s.parent.open--
		s.parent.mu.Unlock()
	})
	return nil
}

type fakeLocation struct {
	mu       sync.Mutex
	open     int
	watchErr error
	subs     []*fakeSub
}

func (l *fakeLocation) Watch(ctx context.Context) (device.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watchErr != nil {
		return nil, l.watchErr
	}
	l.open++
	sub := &fakeSub{ctx: ctx, ch: make(chan device.Update, 16), parent: l}
	l.subs = append(l.subs, sub)
	return sub, nil
}

func (l *fakeLocation) push(lat, lng float64, at time.Time) {
	l.mu.Lock()
	sub := l.subs[len(l.subs)-1]
	l.mu.Unlock()
	sub.ch <- device.Update{Fix: device.Fix{Latitude: lat, Longitude: lng, Timestamp: at}}
}

func (l *fakeLocation) openCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

type fakeRecorder struct {
	mu       sync.Mutex
	reject   map[device.Constraints]error
	attempts []device.Constraints
	state    device.RecorderState
	stopErr  error
	blob     *models.VideoBlob
}

func newRecorder() *fakeRecorder {
	return &fakeRecorder{
		reject: map[device.Constraints]error{},
		state:  device.RecorderInactive,
		blob:   &models.VideoBlob{MIMEType: "video/webm", Data: []byte("webm-bytes")},
	}
}

func (r *fakeRecorder) Start(_ context.Context, c device.Constraints) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, c)
	if err := r.reject[c]; err != nil {
		return err
	}
	r.state = device.RecorderRecording
	return nil
}

func (r *fakeRecorder) Stop(context.Context) (*models.VideoBlob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = device.RecorderInactive
	if r.stopErr != nil {
		return nil, r.stopErr
	}
	return r.blob, nil
}

func (r *fakeRecorder) State() device.RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *fakeRecorder) tried() []device.Constraints {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]device.Constraints(nil), r.attempts...)
}

type solidFrames struct{ c color.Color }

func (f solidFrames) Frame() (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 320, 180))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: f.c}, image.Point{}, draw.Src)
	return img, nil
}

// gatedOverlay blocks the snapshot calls listed in gates until released.
// A blocked call ignores its context.
type gatedOverlay struct {
	mu      sync.Mutex
	center  *MapCenter
	calls   int
	gates   map[int]chan struct{}
	entered chan int
}

func newGatedOverlay(gated ...int) *gatedOverlay {
	o := &gatedOverlay{gates: map[int]chan struct{}{}, entered: make(chan int, 16)}
	for _, i := range gated {
		o.gates[i] = make(chan struct{})
	}
	return o
}

func (o *gatedOverlay) Snapshot(context.Context) (image.Image, error) {
	o.mu.Lock()
	i := o.calls
	o.calls++
	gate := o.gates[i]
	o.mu.Unlock()

	o.entered <- i
	if gate != nil {
		<-gate
	}
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 255, A: 255}}, image.Point{}, draw.Src)
	return img, nil
}

func (o *gatedOverlay) Center() (float64, float64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.center == nil {
		return 0, 0, false
	}
	return o.center.Latitude, o.center.Longitude, true
}

func (o *gatedOverlay) setCenter(lat, lng float64) {
	o.mu.Lock()
	o.center = &MapCenter{Latitude: lat, Longitude: lng}
	o.mu.Unlock()
}

func (o *gatedOverlay) release(i int) { close(o.gates[i]) }

type rig struct {
	loc     *fakeLocation
	rec     *fakeRecorder
	overlay *gatedOverlay
	clock   *fakeClock
}

func newRig(gated ...int) *rig {
	return &rig{
		loc:     &fakeLocation{},
		rec:     newRecorder(),
		overlay: newGatedOverlay(gated...),
		clock:   newClock(),
	}
}

func (r *rig) devices() Devices {
	return Devices{
		Location: r.loc,
		Recorder: r.rec,
		Frames:   solidFrames{c: color.RGBA{B: 200, A: 255}},
		Overlay:  r.overlay,
	}
}
