package profile

import (
	"fmt"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/wire"
)

// Regime is the current/voltage scaling context of the source under
// test. It selects the sensor calibration applied during a sweep.
type Regime uint8

const (
	NoRegime Regime = iota
	Cell
	Module
	Subarray
)

// Valid reports whether the regime is one a host may request.
func (r Regime) Valid() bool { return r >= Cell && r <= Subarray }

func (r Regime) String() string {
	switch r {
	case NoRegime:
		return "none"
	case Cell:
		return "cell"
	case Module:
		return "module"
	case Subarray:
		return "subarray"
	}
	return fmt.Sprintf("regime(%d)", uint8(r))
}

// Voltage domain limits, in millivolts.
const (
	MaxVoltageMV    = 3300
	MaxResolutionMV = 1000
)

// Profile describes one validated sweep request.
type Profile struct {
	Regime       Regime
	StartMV      uint16
	EndMV        uint16
	ResolutionMV uint16

	// NumSamples is derived: floor((end - start) / resolution).
	NumSamples uint32
}

func (p *Profile) String() string {
	return fmt.Sprintf("%s sweep %d..%d mV @ %d mV (%d samples)",
		p.Regime, p.StartMV, p.EndMV, p.ResolutionMV, p.NumSamples)
}

// LevelMV returns the output level for a sweep step, in millivolts.
func (p *Profile) LevelMV(step uint32) uint32 {
	return uint32(p.StartMV) + step*uint32(p.ResolutionMV)
}

// LevelVolts returns the output level for a sweep step, in volts.
func (p *Profile) LevelVolts(step uint32) float64 {
	return float64(p.LevelMV(step)) / 1000
}

// Decode unpacks a full 8-byte profile request frame and validates the
// fields. The checks run in a fixed order and the first failure wins:
// regime, start range, end range, start/end consistency, resolution.
// On success the returned code is wire.ErrCodeNone.
func Decode(frame []byte) (*Profile, wire.ErrorCode) {
	_, rawRegime, startMV, endMV, resolutionMV, err := wire.DecodeProfileRequest(frame)
	if err != nil {
		return nil, wire.ErrCodeInvalidMsgData
	}

	regime := Regime(rawRegime)
	if !regime.Valid() {
		return nil, wire.ErrCodeInvalidProfile
	}
	if startMV > MaxVoltageMV {
		return nil, wire.ErrCodeInvalidVoltageStart
	}
	if endMV > MaxVoltageMV {
		return nil, wire.ErrCodeInvalidVoltageEnd
	}
	if startMV > endMV {
		return nil, wire.ErrCodeInvalidVoltageConsistency
	}
	if resolutionMV == 0 || resolutionMV > MaxResolutionMV {
		return nil, wire.ErrCodeInvalidVoltageResolution
	}

	return &Profile{
		Regime:       regime,
		StartMV:      startMV,
		EndMV:        endMV,
		ResolutionMV: resolutionMV,
		NumSamples:   uint32(endMV-startMV) / uint32(resolutionMV),
	}, wire.ErrCodeNone
}
