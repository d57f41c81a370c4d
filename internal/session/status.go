// ABOUTME: Read-only status projection of the controller
// ABOUTME: Feeds the CLI status line and the status handler

package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/harper/rotograma/internal/device"
	"github.com/harper/rotograma/internal/models"
)

// Status is a point-in-time view of the controller.
type Status struct {
	SessionID   uuid.UUID            `json:"session_id"`
	State       models.State         `json:"state"`
	StartedAt   time.Time            `json:"started_at,omitempty"`
	Points      int                  `json:"points"`
	OutOfOrder  int                  `json:"out_of_order"`
	Captures    int                  `json:"captures"`
	Pending     int                  `json:"pending"`
	Degraded    int                  `json:"degraded"`
	Recorder    device.RecorderState `json:"recorder"`
	Constraints device.Constraints   `json:"constraints"`
	Location    string               `json:"location"`
	MapCenter   *MapCenter           `json:"map_center,omitempty"`
	Message     string               `json:"message,omitempty"`
}

// MapCenter is the position the mini-map is currently centred on.
type MapCenter struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Status returns the current projection.
func (c *Controller) Status() Status {
	stats := c.sampler.Stats()
	recorder := c.dev.Recorder.State()
	var center *MapCenter
	if c.dev.Overlay != nil {
		if lat, lng, ok := c.dev.Overlay.Center(); ok {
			center = &MapCenter{Latitude: lat, Longitude: lng}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		SessionID:   c.session.ID,
		State:       c.session.State,
		StartedAt:   c.session.StartedAt,
		Points:      stats.Points,
		OutOfOrder:  stats.OutOfOrder,
		Degraded:    c.degraded,
		Recorder:    recorder,
		Constraints: c.active,
		Location:    stats.Status,
		MapCenter:   center,
		Message:     c.message,
	}
	switch c.session.State {
	case models.StateFinalized:
		st.Points = len(c.session.TrackPoints)
	case models.StateIdle:
		st.Points, st.OutOfOrder = 0, 0
	}
	for _, sl := range c.slots {
		select {
		case <-sl.done:
			if sl.event != nil {
				st.Captures++
			}
		default:
			st.Pending++
		}
	}
	return st
}

// State returns the lifecycle state of the current session.
func (c *Controller) State() models.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State
}
