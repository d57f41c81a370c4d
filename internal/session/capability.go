// ABOUTME: Two-tier capability request policy for the media recorder
// ABOUTME: Preferred configuration first, one retry with the reduced one

package session

import (
	"context"
	"errors"

	"github.com/harper/rotograma/internal/device"
)

// CapabilityPolicy lists the constraint tiers tried when arming the recorder.
type CapabilityPolicy struct {
	Preferred device.Constraints
	Reduced   device.Constraints
}

// DefaultPolicy requests 720p with audio, then 480p video-only.
var DefaultPolicy = CapabilityPolicy{
	Preferred: device.PreferredConstraints,
	Reduced:   device.ReducedConstraints,
}

func (p CapabilityPolicy) tiers() []device.Constraints {
	tiers := []device.Constraints{p.Preferred}
	if p.Reduced != (device.Constraints{}) && p.Reduced != p.Preferred {
		tiers = append(tiers, p.Reduced)
	}
	return tiers
}

// Arm starts the recorder with the first tier it accepts. Only ErrUnavailable
// moves on to the reduced tier; any other failure stops immediately.
func (p CapabilityPolicy) Arm(ctx context.Context, rec device.MediaRecorder) (device.Constraints, error) {
	var (
		attempts []device.Constraints
		last     error
	)
	for _, c := range p.tiers() {
		attempts = append(attempts, c)
		err := rec.Start(ctx, c)
		if err == nil {
			return c, nil
		}
		last = err
		if !errors.Is(err, device.ErrUnavailable) {
			break
		}
	}
	return device.Constraints{}, &DeviceUnavailableError{Attempts: attempts, Err: last}
}
