// Package cluster runs a whole simulation in one process, one goroutine per
// rank, connected by an in-process comm.Mesh. Ranks share nothing but the
// mesh.
package cluster

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/nemsim/internal/comm"
	"github.com/san-kum/nemsim/internal/config"
	"github.com/san-kum/nemsim/internal/driver"
	"github.com/san-kum/nemsim/internal/energy"
	"github.com/san-kum/nemsim/internal/lattice"
)

const coordinator = 0

// Outcome is what the coordinator collected.
type Outcome struct {
	Backend string
	Bands   []lattice.Band
	Summary *driver.Summary
	// Lattice is the final L×L state, set when the config asks for a snapshot.
	Lattice [][]float64
}

type options struct {
	logger    *zap.Logger
	observers []driver.Observer
	registry  *energy.Registry
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithObserver(obs driver.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

func WithRegistry(r *energy.Registry) Option {
	return func(o *options) { o.registry = r }
}

// Run validates cfg, starts cfg.Procs ranks and waits for all of them. The
// first rank to fail cancels the others; its error is returned.
func Run(ctx context.Context, cfg *config.Config, opts ...Option) (*Outcome, error) {
	o := options{logger: zap.NewNop(), registry: energy.NewRegistry()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bands, err := lattice.Partition(cfg.Size, cfg.Procs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	backend, err := o.registry.Get(cfg.Backend)
	if err != nil {
		return nil, &config.Error{Field: "backend", Reason: err.Error()}
	}

	mesh, err := comm.NewMesh(cfg.Procs, comm.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}
	defer mesh.Close()

	o.logger.Info("starting run",
		zap.Int("size", cfg.Size),
		zap.Int("procs", cfg.Procs),
		zap.Int("sweeps", cfg.Sweeps),
		zap.Float64("temperature", cfg.Temperature),
		zap.Int64("seed", cfg.Seed),
		zap.String("backend", backend.Name()))

	out := &Outcome{Backend: backend.Name(), Bands: bands}
	params := cfg.Params()
	params.Root = coordinator

	g, gctx := errgroup.WithContext(ctx)
	for _, band := range bands {
		g.Go(func() error {
			summary, snapshot, err := runRank(gctx, mesh.Endpoint(band.Rank), band, cfg, backend, params, o)
			if err != nil {
				return err
			}
			if band.Rank == coordinator {
				out.Summary = summary
				out.Lattice = snapshot
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

func runRank(ctx context.Context, ep *comm.Endpoint, band lattice.Band, cfg *config.Config, backend energy.Backend, params driver.Params, o options) (*driver.Summary, [][]float64, error) {
	field, err := lattice.NewField(band, cfg.Size)
	if err != nil {
		return nil, nil, err
	}
	rng := lattice.NewRNG(cfg.Seed, band.Rank)
	field.Randomize(rng)

	dopts := []driver.Option{driver.WithLogger(o.logger)}
	for _, obs := range o.observers {
		dopts = append(dopts, driver.WithObserver(obs))
	}
	d, err := driver.New(field, ep, backend, rng, params, dopts...)
	if err != nil {
		return nil, nil, err
	}

	summary, err := d.Run(ctx)
	if err != nil {
		return summary, nil, err
	}
	if !cfg.Snapshot {
		return summary, nil, nil
	}
	snapshot, err := d.Snapshot(ctx)
	if err != nil {
		return summary, nil, err
	}
	return summary, snapshot, nil
}
