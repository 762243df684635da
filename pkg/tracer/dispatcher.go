package tracer

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/bus"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/profile"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/wire"
)

// Dispatcher is the input context. It polls the byte-stream channel at
// a fixed cadence, assembling frames in the Fifo one byte per poll,
// and reacts to broadcast-bus frames as they arrive. The byte-stream
// reader must be non-blocking: each Read returns 0 or 1 byte.
type Dispatcher struct {
	Serial  io.Reader
	Bus     bus.Bus
	Fifo    *wire.Fifo
	Mailbox *profile.Mailbox
	Router  *Router
	Sup     *Supervisor

	// Poll is the inter-poll delay of the byte-stream loop.
	Poll time.Duration
}

// Run implements task.Runnable: the input context.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.Bus.Subscribe(d.handleBusFrame); err != nil {
		return err
	}
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.Sup.Tripped():
			return d.Sup.Halt(ctx)
		case <-time.After(d.Poll):
		}

		// At most one byte per poll.
		n, err := d.Serial.Read(buf)
		if err != nil && err != io.EOF {
			glog.V(2).Infof("serial read: %v", err)
			continue
		}
		if n == 1 {
			if !d.Fifo.Enqueue(buf[0]) {
				glog.Warning("input fifo full, dropping byte")
			}
		}
		d.pump()
	}
}

// pump drains as much of the Fifo as currently decodes.
func (d *Dispatcher) pump() {
	for !d.Sup.Halted() {
		msgID, _, err := wire.DecodeHeader(d.Fifo.Peek(wire.HeaderLen + 1))
		switch err {
		case nil:
		case wire.ErrShortHeader:
			return
		case wire.ErrBadPrelude:
			// Resynchronize: discard exactly one byte and retry. The
			// buffer claimed data a moment ago, so a failed dequeue is
			// a logic fault, not a framing hiccup.
			if _, ok := d.Fifo.Dequeue(); !ok {
				d.Sup.Fault(wire.MsgProfileRequest, wire.ErrCodeInvalidFifoDequeue, 0)
				return
			}
			continue
		}

		// Only sweep profile requests arrive on this channel.
		if msgID != wire.MsgProfileRequest {
			d.Sup.Fault(msgID, wire.ErrCodeUnexpectedMsgID, msgID)
			return
		}
		if d.Fifo.Used() < wire.ProfileRequestLen {
			return
		}

		var frame [wire.ProfileRequestLen]byte
		for i := range frame {
			b, ok := d.Fifo.Dequeue()
			if !ok {
				d.Sup.Fault(wire.MsgProfileRequest, wire.ErrCodeInvalidFifoDequeue, uint16(i))
				return
			}
			frame[i] = b
		}

		p, code := profile.Decode(frame[:])
		if code != wire.ErrCodeNone {
			d.Sup.Fault(wire.MsgProfileRequest, code, 0)
			return
		}
		if !d.Mailbox.Offer(p) {
			// A profile arrived mid-sweep. Policy: reject, fail-stop.
			d.Sup.Fault(wire.MsgProfileRequest, wire.ErrCodeBadState, 0)
			return
		}
		glog.Infof("profile accepted: %s", p)
	}
}

// handleBusFrame dispatches one broadcast-bus frame by message id.
// Measurements arriving while no sweep is active are silently dropped;
// board fault reports always propagate.
func (d *Dispatcher) handleBusFrame(f bus.Frame) {
	if d.Sup.Halted() {
		return
	}
	switch f.ID {
	case wire.MsgTempMeas:
		step, active := d.Mailbox.Step()
		if !active {
			return
		}
		_, value, err := bus.DecodeTemperature(f.Data)
		if err != nil {
			d.Sup.Fault(f.ID, wire.ErrCodeInvalidMsgData, f.ID)
			return
		}
		d.Router.EmitResult(wire.KindTemperature, uint16(step), value)

	case wire.MsgIrrad1Meas, wire.MsgIrrad2Meas:
		step, active := d.Mailbox.Step()
		if !active {
			return
		}
		value, err := bus.DecodeIrradiance(f.Data)
		if err != nil {
			d.Sup.Fault(f.ID, wire.ErrCodeInvalidMsgData, f.ID)
			return
		}
		d.Router.EmitResult(wire.KindIrradiance, uint16(step), value)

	case wire.MsgBoardFault:
		code, context, err := bus.DecodeBoardFault(f.Data)
		if err != nil {
			d.Sup.Fault(f.ID, wire.ErrCodeInvalidMsgData, f.ID)
			return
		}
		d.Sup.Fault(f.ID, wire.ErrorCode(code), uint16(context))

	default:
		// Includes the enable/disable command: this device only ever
		// sends it, never receives it.
		d.Sup.Fault(f.ID, wire.ErrCodeUnexpectedMsgID, f.ID)
	}
}
