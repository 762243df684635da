package profile

import (
	"sync"
	"sync/atomic"
)

// Mailbox is the single-slot hand-off between the input dispatcher
// (producer of accepted profiles) and the sequencer (consumer). It
// replaces shared mutable profile fields with an explicit exchange:
// a profile is immutable once offered, so no partial write is ever
// visible across contexts.
//
// At most one profile is active system-wide. Offer refuses a new
// profile while one is pending or a sweep is running; the caller
// decides what that refusal means (the dispatcher treats it as a
// bad-state fault).
type Mailbox struct {
	mu      sync.Mutex
	pending *Profile
	running bool

	// Soft timestamp for asynchronous bus measurements: the sweep's
	// current step index at time of arrival, not a hardware timestamp.
	step   atomic.Uint32
	active atomic.Bool
}

// Offer places a validated profile in the slot. It returns false when
// a profile is already pending or a sweep is running.
func (m *Mailbox) Offer(p *Profile) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil || m.running {
		return false
	}
	m.pending = p
	return true
}

// Acquire takes the pending profile and marks a sweep as running.
// It returns false when nothing is pending.
func (m *Mailbox) Acquire() (*Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return nil, false
	}
	p := m.pending
	m.pending = nil
	m.running = true
	m.step.Store(0)
	m.active.Store(true)
	return p, true
}

// Release marks the running sweep finished, re-opening the slot.
func (m *Mailbox) Release() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	m.active.Store(false)
	m.step.Store(0)
}

// Clear force-drops any pending profile and any running sweep. Used by
// the fault path.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	m.pending = nil
	m.running = false
	m.mu.Unlock()
	m.active.Store(false)
	m.step.Store(0)
}

// SetStep publishes the sweep's current step index.
func (m *Mailbox) SetStep(step uint32) {
	m.step.Store(step)
}

// Step returns the current step index and whether a sweep is active.
func (m *Mailbox) Step() (uint32, bool) {
	return m.step.Load(), m.active.Load()
}
