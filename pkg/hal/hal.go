// Package hal defines the capability interfaces between the firmware
// core and the analog front end. Raw ADC/DAC access is an external
// collaborator: the core only ever asks to read a calibrated sample or
// to set an output level.
package hal

import "time"

// AnalogReader reads a normalized analog level in [0, 1], the raw view
// of an ADC channel.
type AnalogReader interface {
	Read() (float64, error)
}

// ReadFunc adapts a func to AnalogReader.
type ReadFunc func() (float64, error)

// Read implements AnalogReader.
func (f ReadFunc) Read() (float64, error) { return f() }

// LevelOutput drives the sweep's applied output voltage.
type LevelOutput interface {
	SetLevel(volts float64) error
}

// Indicator is a boolean visible signal (an LED).
type Indicator interface {
	Set(on bool)
}

// IndicatorFunc adapts a func to Indicator.
type IndicatorFunc func(on bool)

// Set implements Indicator.
func (f IndicatorFunc) Set(on bool) { f(on) }

// Sensor is the sampling capability the sequencer depends on. Usage is
// a scoped acquisition around the per-step settle wait: StartSampling,
// wait, ReadCalibrated, Stop.
type Sensor interface {
	// StartSampling begins accumulating raw reads at the given cadence.
	StartSampling(cadence time.Duration) error
	// ReadCalibrated returns the calibrated average of the reads taken
	// since StartSampling.
	ReadCalibrated() (float64, error)
	// Stop ends the sampling cadence. Safe to call more than once.
	Stop()
}
