package tracer

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/bus"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/hal"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/hal/sim"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/profile"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/wire"
)

// serialPipe feeds the dispatcher's non-blocking byte-stream reads:
// each Read yields 0 or 1 byte.
type serialPipe struct {
	mu  sync.Mutex
	buf []byte
}

func (p *serialPipe) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) == 0 {
		return 0, io.EOF
	}
	b[0] = p.buf[0]
	p.buf = p.buf[1:]
	return 1, nil
}

func (p *serialPipe) inject(data []byte) {
	p.mu.Lock()
	p.buf = append(p.buf, data...)
	p.mu.Unlock()
}

// outFrame is one decoded device-to-host frame.
type outFrame struct {
	msgID    uint16
	isResult bool

	kind     wire.MeasurementKind
	sampleID uint16
	value    uint32

	code    wire.ErrorCode
	context uint16
}

// recordWriter captures the outbound byte stream and splits it back
// into frames. Every non-result frame on this channel is an exception.
type recordWriter struct {
	mu  sync.Mutex
	buf []byte
}

func (w *recordWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.buf = append(w.buf, p...)
	w.mu.Unlock()
	return len(p), nil
}

func (w *recordWriter) frames(t *testing.T) []outFrame {
	w.mu.Lock()
	data := append([]byte(nil), w.buf...)
	w.mu.Unlock()

	var out []outFrame
	for len(data) > 0 {
		msgID, _, err := wire.DecodeHeader(data)
		if err == wire.ErrShortHeader {
			break
		}
		require.NoError(t, err)
		if msgID == wire.MsgResult {
			if len(data) < wire.ResultLen {
				break
			}
			_, kind, sampleID, value, err := wire.DecodeResult(data[:wire.ResultLen])
			require.NoError(t, err)
			out = append(out, outFrame{msgID: msgID, isResult: true, kind: kind, sampleID: sampleID, value: value})
			data = data[wire.ResultLen:]
		} else {
			if len(data) < wire.ExceptionLen {
				break
			}
			_, code, context, err := wire.DecodeException(data[:wire.ExceptionLen])
			require.NoError(t, err)
			out = append(out, outFrame{msgID: msgID, code: code, context: context})
			data = data[wire.ExceptionLen:]
		}
	}
	return out
}

// busRecorder collects frames seen by a peer board on the medium.
type busRecorder struct {
	mu     sync.Mutex
	frames []bus.Frame
}

func (r *busRecorder) handle(f bus.Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, bus.Frame{ID: f.ID, Data: append([]byte(nil), f.Data...)})
	r.mu.Unlock()
}

func (r *busRecorder) byID(id uint16) []bus.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bus.Frame
	for _, f := range r.frames {
		if f.ID == id {
			out = append(out, f)
		}
	}
	return out
}

// rig wires a full firmware core onto in-memory channels.
type rig struct {
	serialIn  *serialPipe
	serialOut *recordWriter
	peer      *bus.Endpoint
	peerRec   *busRecorder

	mailbox    *profile.Mailbox
	router     *Router
	sup        *Supervisor
	dispatcher *Dispatcher
	sequencer  *Sequencer
	faultLED   *sim.LED
	scanLED    *sim.LED
	bench      *sim.Bench
}

func newRig(t *testing.T) *rig {
	medium := bus.NewMedium()
	device := medium.Join()
	peer := medium.Join()

	r := &rig{
		serialIn:  &serialPipe{},
		serialOut: &recordWriter{},
		peer:      peer,
		peerRec:   &busRecorder{},
		mailbox:   &profile.Mailbox{},
		faultLED:  &sim.LED{Name: "error"},
		scanLED:   &sim.LED{Name: "scanning"},
		bench:     sim.NewBench(),
	}
	r.bench.Noise = 0
	require.NoError(t, peer.Subscribe(r.peerRec.handle))

	r.router = NewRouter(r.serialOut, device, 64)
	r.sup = NewSupervisor(r.mailbox, r.router, r.faultLED)
	r.dispatcher = &Dispatcher{
		Serial:  r.serialIn,
		Bus:     device,
		Fifo:    wire.NewFifo(100),
		Mailbox: r.mailbox,
		Router:  r.router,
		Sup:     r.sup,
		Poll:    time.Millisecond,
	}
	gain, err := hal.VoltageGain(profile.Cell)
	require.NoError(t, err)
	r.sequencer = &Sequencer{
		Mailbox:   r.mailbox,
		Router:    r.router,
		Sup:       r.sup,
		Output:    r.bench,
		Voltage:   r.bench.VoltageReader(gain),
		Current:   r.bench.CurrentReader(hal.CurrentGain),
		ScanLED:   r.scanLED,
		IdlePoll:  2 * time.Millisecond,
		Settle:    time.Millisecond,
		BlinkRate: time.Millisecond,
	}
	return r
}

// start runs the given contexts until the test ends.
func (r *rig) start(t *testing.T, runners ...interface {
	Run(context.Context) error
}) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	for _, runner := range runners {
		runner := runner
		go func() { _ = runner.Run(ctx) }()
	}
}

func profileFrameBytes(regime profile.Regime, startMV, endMV, resolutionMV uint16) []byte {
	f := wire.EncodeProfileRequest(wire.MsgProfileRequest, uint8(regime), startMV, endMV, resolutionMV)
	return f[:]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
