package tracer

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/hal"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/profile"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/wire"
)

// Sequencer is the real-time sweep state machine: Idle polls the
// mailbox at a relaxed cadence; Scanning drives the output level
// through the profile, samples the onboard sensors at each step, and
// returns to Idle. One profile at a time, run to completion - there is
// no pause, resume or abort short of a device restart.
type Sequencer struct {
	Mailbox *profile.Mailbox
	Router  *Router
	Sup     *Supervisor

	Output  hal.LevelOutput
	Voltage hal.AnalogReader
	Current hal.AnalogReader
	ScanLED hal.Indicator

	// IdlePoll is the mailbox polling cadence while no sweep runs.
	IdlePoll time.Duration
	// Settle is the per-step settle delay before a reading is valid.
	Settle time.Duration
	// SweepBudget, when set, derives the per-step settle time from an
	// overall sweep duration instead of the fixed Settle.
	SweepBudget time.Duration
	// BlinkRate is the half-period of the scanning start signal.
	BlinkRate time.Duration
}

// Run implements task.Runnable: the sequencer context.
func (s *Sequencer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Sup.Tripped():
			return s.Sup.Halt(ctx)
		case <-time.After(s.IdlePoll):
		}
		p, ok := s.Mailbox.Acquire()
		if !ok {
			continue
		}
		if err := s.sweep(ctx, p); err != nil {
			return err
		}
	}
}

// sweep runs one profile to completion. The only non-nil error is a
// canceled context.
func (s *Sequencer) sweep(ctx context.Context, p *profile.Profile) error {
	glog.Infof("sweep start: %s", p)
	defer func() {
		s.ScanLED.Set(false)
		s.Mailbox.Release()
	}()

	// Visible "starting" signal: three blink cycles.
	if err := s.blink(ctx, 3); err != nil {
		return err
	}
	s.ScanLED.Set(true)
	s.Router.EmitEnable(true)

	settle := s.Settle
	if s.SweepBudget > 0 && p.NumSamples > 0 {
		settle = s.SweepBudget / time.Duration(p.NumSamples)
	}

	voltage, err := hal.NewVoltageSensor(s.Voltage, p.Regime)
	if err != nil {
		// Regime was validated at decode; reaching here is a logic fault.
		s.Sup.Fault(wire.MsgProfileRequest, wire.ErrCodeBadState, uint16(p.Regime))
		return nil
	}
	current := hal.NewCurrentSensor(s.Current)

	for step := uint32(0); step < p.NumSamples; step++ {
		if s.Sup.Halted() {
			break
		}
		s.Mailbox.SetStep(step)
		if err := s.Output.SetLevel(p.LevelVolts(step)); err != nil {
			glog.Errorf("set output level: %v", err)
			s.Sup.Fault(wire.MsgResult, wire.ErrCodeBadState, uint16(step))
			break
		}
		v, i, err := s.sampleStep(ctx, voltage, current, settle)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			glog.Errorf("sample step %d: %v", step, err)
			s.Sup.Fault(wire.MsgResult, wire.ErrCodeBadState, uint16(step))
			break
		}
		s.Router.EmitResult(wire.KindVoltage, uint16(step), v)
		s.Router.EmitResult(wire.KindCurrent, uint16(step), i)
	}

	s.Router.EmitEnable(false)
	glog.Infof("sweep done: %s", p)
	return nil
}

// sampleStep is a scoped acquisition around the settle wait: start the
// sampling cadences, wait for the output to settle, read the
// calibrated averages, and always stop the cadences on the way out.
func (s *Sequencer) sampleStep(ctx context.Context, voltage, current hal.Sensor, settle time.Duration) (v, i float64, err error) {
	cadence := settle / sampleIterations
	if cadence <= 0 {
		cadence = time.Millisecond
	}
	if err = voltage.StartSampling(cadence); err != nil {
		return 0, 0, err
	}
	defer voltage.Stop()
	if err = current.StartSampling(cadence); err != nil {
		return 0, 0, err
	}
	defer current.Stop()

	select {
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	case <-time.After(settle):
	}

	if v, err = voltage.ReadCalibrated(); err != nil {
		return 0, 0, err
	}
	if i, err = current.ReadCalibrated(); err != nil {
		return 0, 0, err
	}
	return v, i, nil
}

func (s *Sequencer) blink(ctx context.Context, cycles int) error {
	for n := 0; n < cycles; n++ {
		s.ScanLED.Set(true)
		if err := sleep(ctx, s.BlinkRate); err != nil {
			s.ScanLED.Set(false)
			return err
		}
		s.ScanLED.Set(false)
		if err := sleep(ctx, s.BlinkRate); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
