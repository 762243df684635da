package tracer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/bus"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/profile"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/wire"
)

// A cell sweep 0..700 mV at 50 mV steps yields exactly 14 samples with
// ids 0..13, each reported as a voltage/current pair in step order.
func TestSweepEmitsOrderedSamplePairs(t *testing.T) {
	r := newRig(t)
	r.start(t, r.router, r.dispatcher, r.sequencer)

	r.serialIn.inject(profileFrameBytes(profile.Cell, 0, 700, 50))

	waitFor(t, "sweep results", func() bool {
		return len(r.serialOut.frames(t)) >= 28
	})
	waitFor(t, "disable broadcast", func() bool {
		return len(r.peerRec.byID(wire.MsgBoardEnable)) == 2
	})

	frames := r.serialOut.frames(t)
	require.Len(t, frames, 28)
	var lastV, lastI uint32
	for step := 0; step < 14; step++ {
		v, i := frames[2*step], frames[2*step+1]
		require.True(t, v.isResult)
		require.True(t, i.isResult)
		assert.Equal(t, wire.KindVoltage, v.kind)
		assert.Equal(t, wire.KindCurrent, i.kind)
		assert.Equal(t, uint16(step), v.sampleID)
		assert.Equal(t, uint16(step), i.sampleID)
		if step > 0 {
			assert.Greater(t, v.value, lastV, "voltage must rise with the output level")
			assert.LessOrEqual(t, i.value, lastI, "current must not rise along the curve")
		}
		lastV, lastI = v.value, i.value
	}
	// Short-circuit end of the simulated curve: ~0 V, ~Isc.
	assert.Less(t, frames[0].value, uint32(3))
	assert.InDelta(t, 6150, int(frames[1].value), 3)

	// The bus carries the enable bracket and the onboard measurements.
	on, err := bus.DecodeEnable(r.peerRec.byID(wire.MsgBoardEnable)[0].Data)
	require.NoError(t, err)
	assert.True(t, on)
	off, err := bus.DecodeEnable(r.peerRec.byID(wire.MsgBoardEnable)[1].Data)
	require.NoError(t, err)
	assert.False(t, off)
	assert.Len(t, r.peerRec.byID(wire.MsgVoltageMeas), 14)
	assert.Len(t, r.peerRec.byID(wire.MsgCurrentMeas), 14)

	// Back to idle: slot free, scanning signal off, no fault.
	assert.False(t, r.scanLED.On())
	assert.False(t, r.sup.Halted())
	_, active := r.mailbox.Step()
	assert.False(t, active)
	waitFor(t, "slot reopened", func() bool {
		p, code := profile.Decode(profileFrameBytes(profile.Cell, 0, 100, 50))
		require.Equal(t, wire.ErrCodeNone, code)
		return r.mailbox.Offer(p)
	})
}

// A fault mid-sweep produces exactly one exception frame and then
// silence: no further results, ever, until restart.
func TestSweepHaltsOnFault(t *testing.T) {
	r := newRig(t)
	r.sequencer.Settle = 2 * time.Millisecond
	r.start(t, r.router, r.dispatcher, r.sequencer)

	r.serialIn.inject(profileFrameBytes(profile.Cell, 0, 3300, 50))
	waitFor(t, "sweep under way", func() bool {
		return len(r.serialOut.frames(t)) >= 6
	})

	require.NoError(t, r.peer.Publish(bus.Frame{ID: wire.MsgBoardFault, Data: bus.EncodeBoardFault(0x21, 0x07)}))

	waitFor(t, "exception frame", func() bool {
		for _, f := range r.serialOut.frames(t) {
			if !f.isResult {
				return true
			}
		}
		return false
	})
	// Let in-flight deliveries drain, then verify the stream is frozen.
	time.Sleep(50 * time.Millisecond)
	settled := len(r.serialOut.frames(t))
	time.Sleep(50 * time.Millisecond)
	frames := r.serialOut.frames(t)
	require.Len(t, frames, settled)

	exceptions := 0
	for _, f := range frames {
		if f.isResult {
			continue
		}
		exceptions++
		assert.Equal(t, wire.MsgBoardFault, f.msgID)
		assert.Equal(t, wire.ErrorCode(0x21), f.code)
		assert.Equal(t, uint16(0x07), f.context)
	}
	assert.Equal(t, 1, exceptions)

	assert.Equal(t, wire.ErrorCode(0x21), r.sup.Code())
	assert.True(t, r.faultLED.On())
	_, active := r.mailbox.Step()
	assert.False(t, active)

	// Input is dead too: a fresh profile over serial changes nothing.
	r.serialIn.inject(profileFrameBytes(profile.Cell, 0, 100, 50))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, r.serialOut.frames(t), settled)
	_, active = r.mailbox.Step()
	assert.False(t, active)
}

func TestSweepBudgetDerivesSettle(t *testing.T) {
	r := newRig(t)
	r.sequencer.SweepBudget = 28 * time.Millisecond
	r.start(t, r.router, r.dispatcher, r.sequencer)

	start := time.Now()
	r.serialIn.inject(profileFrameBytes(profile.Cell, 0, 700, 50))
	waitFor(t, "sweep results", func() bool {
		return len(r.serialOut.frames(t)) >= 28
	})
	// 14 steps at a derived 2 ms settle each.
	assert.GreaterOrEqual(t, time.Since(start), 28*time.Millisecond)
}
