package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchCurveShape(t *testing.T) {
	b := NewBench()
	b.Noise = 0

	vr := b.VoltageReader(1)
	cr := b.CurrentReader(1)

	require.NoError(t, b.SetLevel(0))
	_, err := vr.Read()
	require.NoError(t, err)
	iShort, err := cr.Read()
	require.NoError(t, err)
	assert.InDelta(t, b.Isc, iShort, b.Isc*0.01)

	// Current falls off as the gate level rises toward open circuit.
	prev := iShort
	for _, level := range []float64{1.0, 2.0, 3.0, 3.3} {
		require.NoError(t, b.SetLevel(level))
		i, err := cr.Read()
		require.NoError(t, err)
		assert.LessOrEqual(t, i, prev)
		prev = i
	}

	require.NoError(t, b.SetLevel(3.3))
	v, err := vr.Read()
	require.NoError(t, err)
	assert.InDelta(t, b.Voc, v, 1e-9)
}

func TestBenchClampsLevel(t *testing.T) {
	b := NewBench()
	b.Noise = 0
	require.NoError(t, b.SetLevel(99))
	v, err := b.VoltageReader(1).Read()
	require.NoError(t, err)
	assert.InDelta(t, b.Voc, v, 1e-9)
}

func TestLED(t *testing.T) {
	led := &LED{Name: "error"}
	assert.False(t, led.On())
	led.Set(true)
	assert.True(t, led.On())
	led.Set(false)
	assert.False(t, led.On())
}
