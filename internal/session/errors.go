// ABOUTME: Session lifecycle and device error taxonomy
// ABOUTME: Lifecycle misuse is reported synchronously and never retried

package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harper/rotograma/internal/device"
)

var (
	// ErrAlreadyActive is returned by Start unless the session is idle.
	ErrAlreadyActive = errors.New("session already active")
	// ErrNotActive is returned by Stop before the session was started.
	ErrNotActive = errors.New("session not started")
	// ErrNotRecording is returned by Capture outside the recording state.
	ErrNotRecording = errors.New("session not recording")
	// ErrDeviceUnavailable matches any *DeviceUnavailableError.
	ErrDeviceUnavailable = device.ErrUnavailable
)

// DeviceUnavailableError reports that no capability tier could arm the recorder.
type DeviceUnavailableError struct {
	Attempts []device.Constraints
	Err      error
}

func (e *DeviceUnavailableError) Error() string {
	tiers := make([]string, len(e.Attempts))
	for i, c := range e.Attempts {
		tiers[i] = c.String()
	}
	return fmt.Sprintf("recorder unavailable (tried %s): %v", strings.Join(tiers, ", "), e.Err)
}

func (e *DeviceUnavailableError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDeviceUnavailable) match regardless of the cause.
func (e *DeviceUnavailableError) Is(target error) bool {
	return target == ErrDeviceUnavailable
}
