package driver

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/san-kum/nemsim/internal/comm"
	"github.com/san-kum/nemsim/internal/energy"
	"github.com/san-kum/nemsim/internal/halo"
	"github.com/san-kum/nemsim/internal/lattice"
	"github.com/san-kum/nemsim/internal/metropolis"
	"github.com/san-kum/nemsim/internal/reduce"
)

// Params are the run settings shared by every rank.
type Params struct {
	Sweeps      int
	ReportEvery int
	Schedule    Schedule
	MaxStep     float64
	Root        int
}

func DefaultParams() Params {
	return Params{
		Sweeps:      100,
		ReportEvery: 1,
		Schedule:    Constant(0.5),
		MaxStep:     metropolis.DefaultMaxStep,
	}
}

// Observer receives every global result. Observers only fire on the
// coordinating rank.
type Observer interface {
	OnReport(r reduce.Result)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(r reduce.Result)

func (f ObserverFunc) OnReport(r reduce.Result) { f(r) }

// Summary is what a rank knows after Run. Reports and Final are only set on
// the coordinator.
type Summary struct {
	Sweeps  int
	Reports []reduce.Result
	Final   *reduce.Result
}

type Driver struct {
	field     *lattice.Field
	comm      comm.Communicator
	backend   energy.Backend
	exchanger *halo.Exchanger
	sweeper   *metropolis.Sweeper
	reducer   *reduce.Reducer
	params    Params
	logger    *zap.Logger
	observers []Observer
	gathers   uint64
}

type Option func(*Driver)

func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observers = append(d.observers, o) }
}

// New wires the components of one rank around field. rng must be the rank's
// own stream, see lattice.NewRNG.
func New(field *lattice.Field, c comm.Communicator, backend energy.Backend, rng *rand.Rand, p Params, opts ...Option) (*Driver, error) {
	if err := validateParams(p, c.Size()); err != nil {
		return nil, err
	}
	sweeper, err := metropolis.New(field, backend, rng, p.MaxStep)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParams, err)
	}

	d := &Driver{
		field:     field,
		comm:      c,
		backend:   backend,
		exchanger: halo.New(field, c),
		sweeper:   sweeper,
		reducer:   reduce.New(c, p.Root, field.Cols()),
		params:    p,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.Int("rank", c.Rank()))
	return d, nil
}

func validateParams(p Params, size int) error {
	if p.Sweeps < 0 {
		return fmt.Errorf("%w: sweeps must be non-negative, got %d", ErrParams, p.Sweeps)
	}
	if p.ReportEvery <= 0 {
		return fmt.Errorf("%w: report interval must be positive, got %d", ErrParams, p.ReportEvery)
	}
	if p.Schedule == nil {
		return fmt.Errorf("%w: no temperature schedule", ErrParams)
	}
	if err := p.Schedule.Validate(); err != nil {
		return err
	}
	if p.Root < 0 || p.Root >= size {
		return fmt.Errorf("%w: coordinator rank %d outside [0,%d)", ErrParams, p.Root, size)
	}
	return nil
}

func (d *Driver) IsCoordinator() bool { return d.reducer.IsCoordinator() }

// Run executes the sweep loop. A cancelled ctx stops the run before the next
// sweep starts and Run returns the partial summary with an error wrapping
// ErrStopped. Any communication failure aborts the run with a *SweepError.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	n := d.params.Sweeps
	summary := &Summary{}

	if n == 0 {
		if err := d.report(ctx, summary, 0, d.params.Schedule.Temperature(0, 0), metropolis.Counts{}); err != nil {
			return summary, err
		}
		return summary, nil
	}

	var pending metropolis.Counts
	for i := 1; i <= n; i++ {
		select {
		case <-ctx.Done():
			d.logger.Info("run stopped", zap.Int("sweep", i), zap.Error(ctx.Err()))
			return summary, fmt.Errorf("%w before sweep %d: %w", ErrStopped, i, ctx.Err())
		default:
		}

		temp := d.params.Schedule.Temperature(i-1, n)
		if err := d.exchanger.Exchange(ctx); err != nil {
			return summary, d.fail(ctx, i, "halo", err)
		}

		c := d.sweeper.Sweep(temp)
		pending.Accepted += c.Accepted
		pending.Proposed += c.Proposed
		summary.Sweeps = i

		d.logger.Debug("sweep complete",
			zap.Int("sweep", i),
			zap.Float64("temperature", temp),
			zap.Int("accepted", c.Accepted))

		if i%d.params.ReportEvery == 0 || i == n {
			if err := d.report(ctx, summary, i, temp, pending); err != nil {
				return summary, err
			}
			pending = metropolis.Counts{}
		}
	}
	return summary, nil
}

func (d *Driver) report(ctx context.Context, summary *Summary, sweep int, temp float64, counts metropolis.Counts) error {
	if err := d.exchanger.Exchange(ctx); err != nil {
		return d.fail(ctx, sweep, "halo", err)
	}

	local := reduce.Measure(d.field, d.backend)
	local.Accepted = int64(counts.Accepted)
	local.Proposed = int64(counts.Proposed)

	res, err := d.reducer.Reduce(ctx, local)
	if err != nil {
		return d.fail(ctx, sweep, "reduce", err)
	}
	if res == nil {
		return nil
	}

	res.Sweep = sweep
	res.Temperature = temp
	summary.Reports = append(summary.Reports, *res)
	summary.Final = &summary.Reports[len(summary.Reports)-1]

	d.logger.Info("report",
		zap.Int("sweep", sweep),
		zap.Float64("temperature", temp),
		zap.Float64("order", res.Order),
		zap.Float64("energy", res.MeanEnergy),
		zap.Float64("acceptance", res.AcceptanceRatio))

	for _, o := range d.observers {
		o.OnReport(*res)
	}
	return nil
}

func (d *Driver) fail(ctx context.Context, sweep int, phase string, err error) error {
	if ctx.Err() != nil && !errors.Is(err, comm.ErrTimeout) {
		err = fmt.Errorf("%w: %w", ErrStopped, err)
	}
	d.logger.Error("sweep failed", zap.Int("sweep", sweep), zap.String("phase", phase), zap.Error(err))
	return &SweepError{Rank: d.comm.Rank(), Sweep: sweep, Phase: phase, Err: err}
}

// Snapshot gathers the full lattice at the coordinator, which gets L rows of
// L angles; other ranks get nil. It is a collective: every rank must call it
// at the same point. It is never called by Run.
func (d *Driver) Snapshot(ctx context.Context) ([][]float64, error) {
	l := d.field.Cols()
	bands, err := lattice.Partition(l, d.comm.Size())
	if err != nil {
		return nil, err
	}
	counts := make([]int, len(bands))
	for r, b := range bands {
		counts[r] = b.Rows() * l
	}

	flat := make([]float64, 0, d.field.Sites())
	for _, row := range d.field.Owned() {
		flat = append(flat, row...)
	}

	d.gathers++
	parts, err := comm.Gather(ctx, d.comm, d.params.Root, d.gathers, flat, counts)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if parts == nil {
		return nil, nil
	}

	global := make([][]float64, 0, l)
	for _, part := range parts {
		for off := 0; off < len(part); off += l {
			global = append(global, part[off:off+l])
		}
	}
	return global, nil
}
