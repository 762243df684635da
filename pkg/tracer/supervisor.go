package tracer

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/hal"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/profile"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/wire"
)

// Supervisor implements the fail-stop fault policy. The first fault
// wins: it is recorded once, never cleared except by restart, and its
// presence gates all further sweep activity. Silent continuation after
// a framing or logic fault is unacceptable while an arbitrary output
// voltage may be applied to unknown hardware, so there is no in-band
// recovery path.
type Supervisor struct {
	mailbox   *profile.Mailbox
	router    *Router
	indicator hal.Indicator

	mu      sync.Mutex
	code    wire.ErrorCode
	tripped chan struct{}
}

// NewSupervisor creates a Supervisor and binds it to the router's
// post-fault gate.
func NewSupervisor(mailbox *profile.Mailbox, router *Router, indicator hal.Indicator) *Supervisor {
	s := &Supervisor{
		mailbox:   mailbox,
		router:    router,
		indicator: indicator,
		tripped:   make(chan struct{}),
	}
	router.Bind(s)
	return s
}

// Fault records the fault, force-clears any active profile, asserts
// the fault indicator and hands exactly one exception frame to the
// delivery context. Later faults are ignored.
func (s *Supervisor) Fault(msgID uint16, code wire.ErrorCode, context uint16) {
	s.mu.Lock()
	if s.code != wire.ErrCodeNone {
		s.mu.Unlock()
		return
	}
	s.code = code
	close(s.tripped)
	s.mu.Unlock()

	glog.Errorf("fault: msg=0x%03x code=0x%03x context=0x%04x", msgID, uint16(code), context)
	s.mailbox.Clear()
	if s.indicator != nil {
		s.indicator.Set(true)
	}
	s.router.EmitError(msgID, code, context)
}

// Tripped returns a channel closed on the first fault.
func (s *Supervisor) Tripped() <-chan struct{} { return s.tripped }

// Halted reports whether a fault has occurred.
func (s *Supervisor) Halted() bool {
	select {
	case <-s.tripped:
		return true
	default:
		return false
	}
}

// Code returns the recorded fault code, ErrCodeNone if healthy.
func (s *Supervisor) Code() wire.ErrorCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Halt parks the calling execution context until an external restart
// (context cancellation). The terminal state is a blocking wait, not a
// busy spin; the fail-stop semantics are the same.
func (s *Supervisor) Halt(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
