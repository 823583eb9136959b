// Package automation runs batches of simulations: scripted scenarios loaded
// from YAML and temperature scans across the isotropic-nematic crossover.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/nemsim/internal/cluster"
	"github.com/san-kum/nemsim/internal/config"
	"github.com/san-kum/nemsim/internal/metrics"
	"github.com/san-kum/nemsim/internal/reduce"
)

var ErrEmpty = errors.New("automation: nothing to run")

// Scenario is a named sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset, or the defaults when none is named, and
// overlays whatever config keys the step sets itself.
type ScenarioStep struct {
	Name   string
	Preset string
	Config *config.Config
}

func (s *ScenarioStep) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Name   string `yaml:"name"`
		Preset string `yaml:"preset"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if head.Preset != "" {
		if cfg = config.GetPreset(head.Preset); cfg == nil {
			return fmt.Errorf("unknown preset: %s", head.Preset)
		}
	}
	if err := node.Decode(cfg); err != nil {
		return err
	}

	s.Name, s.Preset, s.Config = head.Name, head.Preset, cfg
	return nil
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no steps", ErrEmpty, scenario.Name)
	}
	return &scenario, nil
}

// StepResult is one finished scenario step.
type StepResult struct {
	Name    string
	Config  *config.Config
	Outcome *cluster.Outcome
	Metrics map[string]float64
	Elapsed time.Duration
}

// Runner executes batches with a shared logger and cluster options.
type Runner struct {
	logger *zap.Logger
	opts   []cluster.Option
}

func NewRunner(logger *zap.Logger, opts ...cluster.Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, opts: opts}
}

func (r *Runner) run(ctx context.Context, cfg *config.Config) (*cluster.Outcome, *metrics.Set, error) {
	set := metrics.NewSet(metrics.Defaults(cfg.Size * cfg.Size)...)
	opts := append([]cluster.Option{cluster.WithLogger(r.logger)}, r.opts...)
	opts = append(opts, cluster.WithObserver(set))
	out, err := cluster.Run(ctx, cfg, opts...)
	return out, set, err
}

// RunScenario executes the steps in order and stops at the first failure,
// returning the steps finished so far.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		r.logger.Info("scenario step",
			zap.String("scenario", scenario.Name),
			zap.String("step", name),
			zap.Int("index", i+1),
			zap.Int("of", len(scenario.Steps)))

		start := time.Now()
		out, set, err := r.run(ctx, step.Config)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}
		results = append(results, StepResult{
			Name:    name,
			Config:  step.Config,
			Outcome: out,
			Metrics: set.Values(),
			Elapsed: time.Since(start),
		})
	}

	return results, nil
}

// TemperatureScan runs Base once per temperature, evenly spaced from From to
// To inclusive. Each point is an independent constant-temperature run.
type TemperatureScan struct {
	Base  *config.Config
	From  float64
	To    float64
	Steps int
}

func (s *TemperatureScan) Temperatures() []float64 {
	if s.Steps == 1 {
		return []float64{s.From}
	}
	temps := make([]float64, s.Steps)
	step := (s.To - s.From) / float64(s.Steps-1)
	for i := range temps {
		temps[i] = s.From + float64(i)*step
	}
	return temps
}

func (s *TemperatureScan) Validate() error {
	switch {
	case s.Base == nil:
		return &config.Error{Field: "scan", Reason: "missing base config"}
	case s.Steps < 1:
		return &config.Error{Field: "steps", Reason: fmt.Sprintf("must be positive, got %d", s.Steps)}
	case !(s.From > 0) || !(s.To > 0):
		return &config.Error{Field: "temperature", Reason: fmt.Sprintf("scan range [%v, %v] must be positive", s.From, s.To)}
	}
	return nil
}

// ScanPoint is the end state of one scan temperature.
type ScanPoint struct {
	Temperature float64            `json:"temperature"`
	Final       reduce.Result      `json:"final"`
	Metrics     map[string]float64 `json:"metrics"`
}

func (r *Runner) RunScan(ctx context.Context, scan *TemperatureScan) ([]ScanPoint, error) {
	if err := scan.Validate(); err != nil {
		return nil, err
	}

	temps := scan.Temperatures()
	points := make([]ScanPoint, 0, len(temps))
	for i, t := range temps {
		cfg := *scan.Base
		cfg.Temperature = t
		cfg.TemperatureEnd = 0

		out, set, err := r.run(ctx, &cfg)
		if err != nil {
			return points, fmt.Errorf("scan point T=%.4f: %w", t, err)
		}
		if out.Summary == nil || out.Summary.Final == nil {
			return points, fmt.Errorf("scan point T=%.4f: %w", t, ErrEmpty)
		}

		points = append(points, ScanPoint{Temperature: t, Final: *out.Summary.Final, Metrics: set.Values()})
		r.logger.Info("scan point",
			zap.Int("index", i+1),
			zap.Int("of", len(temps)),
			zap.Float64("temperature", t),
			zap.Float64("order", out.Summary.Final.Order))
	}
	return points, nil
}

// Crossover estimates the transition temperature as the midpoint of the
// steepest drop in the final order parameter between neighbouring points.
func Crossover(points []ScanPoint) (float64, bool) {
	if len(points) < 2 {
		return 0, false
	}
	sorted := slices.Clone(points)
	slices.SortFunc(sorted, func(a, b ScanPoint) int {
		switch {
		case a.Temperature < b.Temperature:
			return -1
		case a.Temperature > b.Temperature:
			return 1
		}
		return 0
	})

	best, at := 0.0, 0.0
	for i := 1; i < len(sorted); i++ {
		dT := sorted[i].Temperature - sorted[i-1].Temperature
		if dT <= 0 {
			continue
		}
		slope := (sorted[i-1].Final.Order - sorted[i].Final.Order) / dT
		if slope > best {
			best = slope
			at = (sorted[i].Temperature + sorted[i-1].Temperature) / 2
		}
	}
	return at, best > 0
}
