package tracer

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/wire"
)

// Defaults matching the board's shipped firmware parameters.
const (
	defaultBaudRate     = 19200
	defaultFifoCapacity = 100
	defaultQueueDepth   = 64
	defaultInputPoll    = time.Millisecond
	defaultIdlePoll     = 100 * time.Millisecond
	defaultSettle       = 15 * time.Millisecond
	defaultBlinkRate    = 250 * time.Millisecond
	defaultHeartbeat    = 500 * time.Millisecond

	// Raw ADC reads averaged per step.
	sampleIterations = 5
)

// Config is the device configuration. Zero values fall back to the
// shipped defaults.
type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Bus    BusConfig    `yaml:"bus"`

	FifoCapacity int `yaml:"fifo_capacity"`
	QueueDepth   int `yaml:"queue_depth"`

	InputPollMs   int `yaml:"input_poll_ms"`
	IdlePollMs    int `yaml:"idle_poll_ms"`
	SettleUs      int `yaml:"settle_us"`
	SweepBudgetMs int `yaml:"sweep_budget_ms"`
	BlinkMs       int `yaml:"blink_ms"`
	HeartbeatMs   int `yaml:"heartbeat_ms"`
}

// SerialConfig describes the byte-stream channel.
type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// BusConfig describes the broadcast bus transport.
type BusConfig struct {
	URL string `yaml:"url"`
}

// DefaultConfig returns the shipped configuration.
func DefaultConfig() Config {
	return Config{
		Serial:       SerialConfig{Baud: defaultBaudRate},
		FifoCapacity: defaultFifoCapacity,
		QueueDepth:   defaultQueueDepth,
		InputPollMs:  int(defaultInputPoll / time.Millisecond),
		IdlePollMs:   int(defaultIdlePoll / time.Millisecond),
		SettleUs:     int(defaultSettle / time.Microsecond),
		BlinkMs:      int(defaultBlinkRate / time.Millisecond),
		HeartbeatMs:  int(defaultHeartbeat / time.Millisecond),
	}
}

// LoadConfig overlays a YAML file onto the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	if path == "" {
		return conf, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return conf, fmt.Errorf("parse %s: %w", path, err)
	}
	return conf, conf.Validate()
}

// Validate checks the invariants the contexts rely on.
func (c Config) Validate() error {
	if c.FifoCapacity < 3*wire.ProfileRequestLen {
		return fmt.Errorf("fifo_capacity %d below minimum %d (3x largest frame)",
			c.FifoCapacity, 3*wire.ProfileRequestLen)
	}
	if c.InputPollMs <= 0 {
		return fmt.Errorf("input_poll_ms must be positive")
	}
	if c.IdlePollMs <= 0 {
		return fmt.Errorf("idle_poll_ms must be positive")
	}
	if c.SettleUs <= 0 {
		return fmt.Errorf("settle_us must be positive")
	}
	if c.SweepBudgetMs < 0 {
		return fmt.Errorf("sweep_budget_ms must not be negative")
	}
	return nil
}

// InputPoll returns the byte-stream polling cadence.
func (c Config) InputPoll() time.Duration { return time.Duration(c.InputPollMs) * time.Millisecond }

// IdlePoll returns the sequencer's idle polling cadence.
func (c Config) IdlePoll() time.Duration { return time.Duration(c.IdlePollMs) * time.Millisecond }

// SettleTime returns the per-step settle delay.
func (c Config) SettleTime() time.Duration { return time.Duration(c.SettleUs) * time.Microsecond }

// SweepBudget returns the optional overall sweep duration budget.
func (c Config) SweepBudget() time.Duration {
	return time.Duration(c.SweepBudgetMs) * time.Millisecond
}

// Blink returns the scanning signal half-period.
func (c Config) Blink() time.Duration { return time.Duration(c.BlinkMs) * time.Millisecond }

// HeartbeatPeriod returns the heartbeat toggle period.
func (c Config) HeartbeatPeriod() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}
