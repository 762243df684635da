package hal

import (
	"errors"
	"sync"
	"time"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/profile"
)

// Calibration gains mapping a normalized ADC reading to physical
// units. Measured against the board's sense dividers; the voltage gain
// depends on the test regime's expected range.
const (
	cellVoltageGain     = 1.1047
	moduleVoltageGain   = 5.4591
	subarrayVoltageGain = 111.8247

	// CurrentGain is the current channel calibration gain.
	CurrentGain = 8.1169
)

// ErrSampling is returned when a sampling cadence is already running.
var ErrSampling = errors.New("hal: sampling already started")

// VoltageGain returns the regime's voltage calibration gain.
func VoltageGain(regime profile.Regime) (float64, error) {
	switch regime {
	case profile.Cell:
		return cellVoltageGain, nil
	case profile.Module:
		return moduleVoltageGain, nil
	case profile.Subarray:
		return subarrayVoltageGain, nil
	}
	return 0, errors.New("hal: no voltage gain for regime " + regime.String())
}

// adcSensor averages raw reads taken at a fixed cadence and applies a
// calibration gain. One instance serves one sweep.
type adcSensor struct {
	reader AnalogReader
	gain   float64

	mu    sync.Mutex
	sum   float64
	count int
	err   error

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewVoltageSensor creates a voltage sensor calibrated for the regime.
func NewVoltageSensor(r AnalogReader, regime profile.Regime) (Sensor, error) {
	gain, err := VoltageGain(regime)
	if err != nil {
		return nil, err
	}
	return &adcSensor{reader: r, gain: gain}, nil
}

// NewCurrentSensor creates a current sensor.
func NewCurrentSensor(r AnalogReader) Sensor {
	return &adcSensor{reader: r, gain: CurrentGain}
}

// StartSampling implements Sensor.
func (s *adcSensor) StartSampling(cadence time.Duration) error {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return ErrSampling
	}
	s.sum, s.count, s.err = 0, 0, nil
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.sampleLoop(cadence, stopCh, doneCh)
	return nil
}

func (s *adcSensor) sampleLoop(cadence time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			v, err := s.reader.Read()
			s.mu.Lock()
			if err != nil {
				s.err = err
			} else {
				s.sum += v
				s.count++
			}
			s.mu.Unlock()
		}
	}
}

// ReadCalibrated implements Sensor. When the settle window was shorter
// than the cadence it falls back to a single direct read.
func (s *adcSensor) ReadCalibrated() (float64, error) {
	s.mu.Lock()
	sum, count, err := s.sum, s.count, s.err
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if count == 0 {
		v, err := s.reader.Read()
		if err != nil {
			return 0, err
		}
		return v * s.gain, nil
	}
	return sum / float64(count) * s.gain, nil
}

// Stop implements Sensor.
func (s *adcSensor) Stop() {
	s.mu.Lock()
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}
