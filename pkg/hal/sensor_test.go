package hal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/profile"
)

func TestVoltageGainPerRegime(t *testing.T) {
	for _, regime := range []profile.Regime{profile.Cell, profile.Module, profile.Subarray} {
		gain, err := VoltageGain(regime)
		require.NoError(t, err)
		assert.Greater(t, gain, 0.0)
	}
	_, err := VoltageGain(profile.NoRegime)
	assert.Error(t, err)
	_, err = VoltageGain(profile.Regime(9))
	assert.Error(t, err)
}

func TestSensorAveragesOverCadence(t *testing.T) {
	reader := ReadFunc(func() (float64, error) { return 0.1, nil })
	s := NewCurrentSensor(reader)

	require.NoError(t, s.StartSampling(time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	v, err := s.ReadCalibrated()
	s.Stop()

	require.NoError(t, err)
	assert.InDelta(t, 0.1*8.1169, v, 1e-9)
}

func TestSensorDirectReadBeforeFirstTick(t *testing.T) {
	reader := ReadFunc(func() (float64, error) { return 0.5, nil })
	s, err := NewVoltageSensor(reader, profile.Module)
	require.NoError(t, err)

	require.NoError(t, s.StartSampling(time.Hour))
	v, err := s.ReadCalibrated()
	s.Stop()

	require.NoError(t, err)
	assert.InDelta(t, 0.5*5.4591, v, 1e-9)
}

func TestSensorDoubleStart(t *testing.T) {
	s := NewCurrentSensor(ReadFunc(func() (float64, error) { return 0, nil }))
	require.NoError(t, s.StartSampling(time.Millisecond))
	assert.ErrorIs(t, s.StartSampling(time.Millisecond), ErrSampling)
	s.Stop()
	// Stopped sensors can be reused for the next step.
	require.NoError(t, s.StartSampling(time.Millisecond))
	s.Stop()
	s.Stop()
}

func TestSensorPropagatesReadError(t *testing.T) {
	readErr := errors.New("adc gone")
	s := NewCurrentSensor(ReadFunc(func() (float64, error) { return 0, readErr }))
	require.NoError(t, s.StartSampling(time.Millisecond))
	time.Sleep(10 * time.Millisecond)
	_, err := s.ReadCalibrated()
	s.Stop()
	assert.ErrorIs(t, err, readErr)
}
