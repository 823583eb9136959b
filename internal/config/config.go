package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/nemsim/internal/comm"
	"github.com/san-kum/nemsim/internal/driver"
	"github.com/san-kum/nemsim/internal/metropolis"
)

const (
	DefaultSize        = 64
	DefaultProcs       = 4
	DefaultTemperature = 0.5
	DefaultSweeps      = 200
	DefaultReportEvery = 1
	DefaultBackend     = "auto"
)

// ErrConfiguration marks every invalid setting. It is detected before any
// sweep runs.
var ErrConfiguration = errors.New("config: invalid configuration")

// Error names the offending setting.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *Error) Unwrap() error { return ErrConfiguration }

type Config struct {
	Size           int           `yaml:"size"`
	Procs          int           `yaml:"procs"`
	Temperature    float64       `yaml:"temperature"`
	TemperatureEnd float64       `yaml:"temperature_end,omitempty"`
	Sweeps         int           `yaml:"sweeps"`
	Seed           int64         `yaml:"seed"`
	MaxStep        float64       `yaml:"max_step"`
	ReportEvery    int           `yaml:"report_every"`
	Backend        string        `yaml:"backend"`
	Timeout        time.Duration `yaml:"timeout"`
	Snapshot       bool          `yaml:"snapshot"`
}

func DefaultConfig() *Config {
	return &Config{
		Size:        DefaultSize,
		Procs:       DefaultProcs,
		Temperature: DefaultTemperature,
		Sweeps:      DefaultSweeps,
		MaxStep:     metropolis.DefaultMaxStep,
		ReportEvery: DefaultReportEvery,
		Backend:     DefaultBackend,
		Timeout:     comm.DefaultTimeout,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings no run could start with, including more ranks
// than lattice rows.
func (c *Config) Validate() error {
	switch {
	case c.Size <= 0:
		return &Error{Field: "size", Reason: fmt.Sprintf("must be positive, got %d", c.Size)}
	case c.Procs <= 0:
		return &Error{Field: "procs", Reason: fmt.Sprintf("must be positive, got %d", c.Procs)}
	case c.Procs > c.Size:
		return &Error{Field: "procs", Reason: fmt.Sprintf("%d ranks for %d rows would leave a rank without rows", c.Procs, c.Size)}
	case !(c.Temperature > 0) || math.IsInf(c.Temperature, 0):
		return &Error{Field: "temperature", Reason: fmt.Sprintf("must be positive, got %v", c.Temperature)}
	case c.TemperatureEnd < 0 || math.IsNaN(c.TemperatureEnd):
		return &Error{Field: "temperature_end", Reason: fmt.Sprintf("must be positive when set, got %v", c.TemperatureEnd)}
	case c.Sweeps < 0:
		return &Error{Field: "sweeps", Reason: fmt.Sprintf("must be non-negative, got %d", c.Sweeps)}
	case !(c.MaxStep > 0) || math.IsInf(c.MaxStep, 0):
		return &Error{Field: "max_step", Reason: fmt.Sprintf("must be positive, got %v", c.MaxStep)}
	case c.ReportEvery <= 0:
		return &Error{Field: "report_every", Reason: fmt.Sprintf("must be positive, got %d", c.ReportEvery)}
	case c.Timeout < 0:
		return &Error{Field: "timeout", Reason: fmt.Sprintf("must be non-negative, got %v", c.Timeout)}
	}
	return nil
}

// Schedule is a constant temperature unless TemperatureEnd is set, in which
// case the run anneals linearly.
func (c *Config) Schedule() driver.Schedule {
	if c.TemperatureEnd > 0 {
		return driver.Linear{From: c.Temperature, To: c.TemperatureEnd}
	}
	return driver.Constant(c.Temperature)
}

func (c *Config) Params() driver.Params {
	return driver.Params{
		Sweeps:      c.Sweeps,
		ReportEvery: c.ReportEvery,
		Schedule:    c.Schedule(),
		MaxStep:     c.MaxStep,
	}
}
