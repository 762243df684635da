package tracer

import (
	"context"
	"io"

	"github.com/golang/glog"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/bus"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/wire"
)

// Router formats outbound results and exceptions and delivers them on
// the delivery context. Channel I/O is slow compared to the sweep's
// timing loop, so the input and sequencer contexts only ever enqueue
// here; a single goroutine drains the queue strictly in submission
// order.
type Router struct {
	serial io.Writer
	bus    bus.Bus
	sup    *Supervisor
	jobs   chan deliveryJob
}

type deliveryJob struct {
	serialFrame []byte
	busFrame    *bus.Frame
}

// NewRouter creates a Router delivering to the byte-stream writer and
// the broadcast bus.
func NewRouter(serial io.Writer, b bus.Bus, queueDepth int) *Router {
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	return &Router{
		serial: serial,
		bus:    b,
		jobs:   make(chan deliveryJob, queueDepth),
	}
}

// Bind attaches the supervisor gating post-fault submissions. Must be
// called before the contexts start.
func (r *Router) Bind(sup *Supervisor) { r.sup = sup }

// EmitResult formats one measurement for the byte-stream channel and,
// for onboard voltage/current results, also packages a compact frame
// for the bus. Values are pre-validated numerics; formatting never
// fails. No-op after a fault.
func (r *Router) EmitResult(kind wire.MeasurementKind, sampleID uint16, value float64) {
	if r.sup != nil && r.sup.Halted() {
		return
	}
	frame := wire.EncodeResult(wire.MsgResult, kind, sampleID, wire.MilliUnits(value))
	job := deliveryJob{serialFrame: frame[:]}
	switch kind {
	case wire.KindVoltage:
		job.busFrame = &bus.Frame{ID: wire.MsgVoltageMeas, Data: bus.EncodeMeasurement(value)}
	case wire.KindCurrent:
		job.busFrame = &bus.Frame{ID: wire.MsgCurrentMeas, Data: bus.EncodeMeasurement(value)}
	}
	r.submit(job)
}

// EmitEnable broadcasts the enable/disable command on the bus. This
// device only ever sends it. No-op after a fault.
func (r *Router) EmitEnable(on bool) {
	if r.sup != nil && r.sup.Halted() {
		return
	}
	r.submit(deliveryJob{busFrame: &bus.Frame{ID: wire.MsgBoardEnable, Data: bus.EncodeEnable(on)}})
}

// EmitError formats and sends an exception frame on the byte-stream
// channel only. Unlike results it is never gated: the supervisor uses
// it to report the fault that is about to halt everything, and the
// send must not be lost even when the queue is saturated.
func (r *Router) EmitError(msgID uint16, code wire.ErrorCode, context uint16) {
	frame := wire.EncodeException(msgID, code, context)
	r.jobs <- deliveryJob{serialFrame: frame[:]}
}

func (r *Router) submit(job deliveryJob) {
	select {
	case r.jobs <- job:
	default:
		glog.Warning("delivery queue full, dropping frame")
	}
}

// Run implements task.Runnable: the delivery context. It keeps
// draining after a fault so the exception frame still goes out.
func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-r.jobs:
			if len(job.serialFrame) > 0 {
				if _, err := r.serial.Write(job.serialFrame); err != nil {
					glog.Errorf("serial write: %v", err)
				}
			}
			if job.busFrame != nil {
				if err := r.bus.Publish(*job.busFrame); err != nil {
					glog.Errorf("bus publish: %v", err)
				}
			}
		}
	}
}
