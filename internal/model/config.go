// Package model defines devtimer's configuration, timer state vocabulary and identifiers.
package model

import (
	"fmt"
	"time"
)

type Config struct {
	Logging   LoggingConfig            `yaml:"logging"`
	Timer     TimerConfig              `yaml:"timer"`
	Modes     ModesConfig              `yaml:"modes"`
	Notify    NotifyConfig             `yaml:"notify"`
	Session   SessionConfig            `yaml:"session"`
	Processes map[string]ProcessConfig `yaml:"processes,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type TimerConfig struct {
	TickIntervalMs int  `yaml:"tick_interval_ms"`
	AutoAdvance    bool `yaml:"auto_advance"`
}

type ModesConfig struct {
	Dir         string  `yaml:"dir"`   // relative to .devtimer/
	Watch       bool    `yaml:"watch"` // reload mode files while a session runs
	DebounceSec float64 `yaml:"debounce_sec"`
}

type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
}

type SessionConfig struct {
	ShutdownTimeoutSec int `yaml:"shutdown_timeout_sec"`
}

// ProcessConfig is a named chain of stages, e.g. develop → stop → fix → wash.
type ProcessConfig struct {
	Description string        `yaml:"description,omitempty"`
	Stages      []StageConfig `yaml:"stages"`
}

type StageConfig struct {
	Label    string `yaml:"label"`
	Duration string `yaml:"duration"` // Go duration, whole seconds: "8m", "5m30s"
	Mode     string `yaml:"mode,omitempty"`
}

// DurationSeconds parses Duration. Sub-second precision is rejected.
func (s StageConfig) DurationSeconds() (int, error) {
	return ParseSeconds(s.Duration)
}

// ParseSeconds parses a Go duration string into a positive whole number of seconds.
func ParseSeconds(v string) (int, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", v)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("duration %q must be whole seconds", v)
	}
	return int(d / time.Second), nil
}

// DefaultConfig is the configuration written by `devtimer init`.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Timer:   TimerConfig{TickIntervalMs: 1000},
		Modes:   ModesConfig{Dir: "modes", Watch: true, DebounceSec: 0.3},
		Notify:  NotifyConfig{Enabled: true, Title: "devtimer"},
		Session: SessionConfig{ShutdownTimeoutSec: 5},
		Processes: map[string]ProcessConfig{
			"bw-standard": {
				Description: "Black and white negative, ORWO agitation in the developer",
				Stages: []StageConfig{
					{Label: "develop", Duration: "8m", Mode: "orwo"},
					{Label: "stop", Duration: "1m", Mode: "continuous"},
					{Label: "fix", Duration: "5m", Mode: "kodak"},
					{Label: "wash", Duration: "10m"},
				},
			},
		},
	}
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Timer.TickIntervalMs <= 0 {
		c.Timer.TickIntervalMs = 1000
	}
	if c.Modes.Dir == "" {
		c.Modes.Dir = "modes"
	}
	if c.Modes.DebounceSec <= 0 {
		c.Modes.DebounceSec = 0.3
	}
	if c.Notify.Title == "" {
		c.Notify.Title = "devtimer"
	}
	if c.Session.ShutdownTimeoutSec <= 0 {
		c.Session.ShutdownTimeoutSec = 5
	}
}

// Validate checks process definitions. Mode names are resolved later against
// the catalog.
func (c *Config) Validate() error {
	for name, p := range c.Processes {
		if len(p.Stages) == 0 {
			return fmt.Errorf("process %s: must have at least one stage", name)
		}
		for i, s := range p.Stages {
			if s.Label == "" {
				return fmt.Errorf("process %s, stage %d: missing label", name, i)
			}
			if _, err := s.DurationSeconds(); err != nil {
				return fmt.Errorf("process %s, stage %s: %w", name, s.Label, err)
			}
		}
	}
	return nil
}
