// Package sim provides a simulated analog front end for development
// and tests: a DAC-driven gate level and a PV source whose I-V curve
// responds to it.
package sim

import (
	"math"
	"math/rand"
	"sync"

	"github.com/golang/glog"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/hal"
)

// Bench simulates the curve tracer's analog front end.
type Bench struct {
	// Isc and Voc shape the simulated I-V curve.
	Isc float64
	Voc float64
	// Noise is the peak amplitude of uniform noise added to raw reads.
	Noise float64

	mu    sync.Mutex
	level float64
	rng   *rand.Rand
}

// NewBench creates a Bench with a plausible single-cell curve.
func NewBench() *Bench {
	return &Bench{
		Isc:   6.15,
		Voc:   0.721,
		Noise: 0.002,
		rng:   rand.New(rand.NewSource(1)),
	}
}

// SetLevel implements hal.LevelOutput.
func (b *Bench) SetLevel(volts float64) error {
	if volts < 0 {
		volts = 0
	}
	if volts > 3.3 {
		volts = 3.3
	}
	b.mu.Lock()
	b.level = volts
	b.mu.Unlock()
	return nil
}

// physical returns the source's terminal voltage and current for the
// current gate level, loosely following a single-diode curve.
func (b *Bench) physical() (v, i float64) {
	v = b.level / 3.3 * b.Voc
	i = b.Isc * (1 - math.Exp((v-b.Voc)/0.025/2))
	if i < 0 {
		i = 0
	}
	return v, i
}

func (b *Bench) noise() float64 {
	if b.Noise == 0 {
		return 0
	}
	return (b.rng.Float64()*2 - 1) * b.Noise
}

// VoltageReader returns the raw voltage channel. gain is the sensor
// calibration that will be applied downstream; the bench divides it
// back out so calibrated readings land on physical values.
func (b *Bench) VoltageReader(gain float64) hal.AnalogReader {
	return hal.ReadFunc(func() (float64, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		v, _ := b.physical()
		return v/gain + b.noise(), nil
	})
}

// CurrentReader returns the raw current channel.
func (b *Bench) CurrentReader(gain float64) hal.AnalogReader {
	return hal.ReadFunc(func() (float64, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		_, i := b.physical()
		return i/gain + b.noise(), nil
	})
}

// LED is an Indicator that logs transitions.
type LED struct {
	Name string

	mu sync.Mutex
	on bool
}

// Set implements hal.Indicator.
func (l *LED) Set(on bool) {
	l.mu.Lock()
	changed := l.on != on
	l.on = on
	l.mu.Unlock()
	if changed && bool(glog.V(1)) {
		glog.Infof("LED %s -> %v", l.Name, on)
	}
}

// On reports the LED state.
func (l *LED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
