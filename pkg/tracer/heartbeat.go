package tracer

import (
	"context"
	"time"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/hal"
)

// Heartbeat toggles the liveness indicator at a fixed cadence. It is a
// fire-and-forget context: no shared state beyond the single indicator
// toggle, and it keeps beating after a fault so a halted board is
// distinguishable from a dead one.
type Heartbeat struct {
	LED    hal.Indicator
	Period time.Duration
}

// Run implements task.Runnable.
func (h *Heartbeat) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.Period)
	defer ticker.Stop()
	on := false
	for {
		select {
		case <-ctx.Done():
			h.LED.Set(false)
			return ctx.Err()
		case <-ticker.C:
			on = !on
			h.LED.Set(on)
		}
	}
}
