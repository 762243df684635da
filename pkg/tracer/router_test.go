package tracer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/bus"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/wire"
)

func TestEmitResultDeliversSerialAndBus(t *testing.T) {
	r := newRig(t)
	r.start(t, r.router)

	r.router.EmitResult(wire.KindVoltage, 3, 0.5)

	waitFor(t, "serial result", func() bool {
		return len(r.serialOut.frames(t)) == 1
	})
	got := r.serialOut.frames(t)[0]
	require.True(t, got.isResult)
	assert.Equal(t, wire.KindVoltage, got.kind)
	assert.Equal(t, uint16(3), got.sampleID)
	assert.Equal(t, uint32(500), got.value)

	waitFor(t, "bus measurement", func() bool {
		return len(r.peerRec.byID(wire.MsgVoltageMeas)) == 1
	})
	value, err := bus.DecodeMeasurement(r.peerRec.byID(wire.MsgVoltageMeas)[0].Data)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, value, 1e-9)
}

// Off-board measurements are relayed to the host only, never rebroadcast.
func TestEmitResultKeepsRelayedKindsOffBus(t *testing.T) {
	r := newRig(t)
	r.start(t, r.router)

	r.router.EmitResult(wire.KindTemperature, 1, 25.5)

	waitFor(t, "serial result", func() bool {
		return len(r.serialOut.frames(t)) == 1
	})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, r.peerRec.byID(wire.MsgVoltageMeas))
	assert.Empty(t, r.peerRec.byID(wire.MsgCurrentMeas))
}

func TestRouterGatesResultsAfterFault(t *testing.T) {
	r := newRig(t)
	r.start(t, r.router)

	r.sup.Fault(wire.MsgProfileRequest, wire.ErrCodeBadState, 9)
	r.router.EmitResult(wire.KindVoltage, 0, 1.0)
	r.router.EmitEnable(true)

	waitFor(t, "exception frame", func() bool {
		return len(r.serialOut.frames(t)) >= 1
	})
	time.Sleep(20 * time.Millisecond)
	frames := r.serialOut.frames(t)
	require.Len(t, frames, 1)
	assert.False(t, frames[0].isResult)
	assert.Equal(t, wire.ErrCodeBadState, frames[0].code)
	assert.Equal(t, uint16(9), frames[0].context)
	assert.Empty(t, r.peerRec.byID(wire.MsgBoardEnable))
}

func TestExceptionFrameEncoding(t *testing.T) {
	r := newRig(t)
	r.start(t, r.router)

	r.router.EmitError(wire.MsgProfileRequest, wire.ErrCodeInvalidVoltageEnd, 0x1234)

	waitFor(t, "exception frame", func() bool {
		return len(r.serialOut.frames(t)) == 1
	})
	ex := r.serialOut.frames(t)[0]
	assert.Equal(t, wire.MsgProfileRequest, ex.msgID)
	assert.Equal(t, wire.ErrCodeInvalidVoltageEnd, ex.code)
	assert.Equal(t, uint16(0x1234), ex.context)
}
