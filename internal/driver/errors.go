package driver

import (
	"errors"
	"fmt"
)

var (
	// ErrStopped indicates the run was cancelled between sweeps.
	ErrStopped = errors.New("driver: run stopped")

	// ErrParams indicates invalid run parameters.
	ErrParams = errors.New("driver: invalid parameters")
)

// SweepError reports the sweep and phase at which a run failed.
type SweepError struct {
	Rank  int
	Sweep int
	Phase string
	Err   error
}

func (e *SweepError) Error() string {
	return fmt.Sprintf("rank %d sweep %d (%s): %v", e.Rank, e.Sweep, e.Phase, e.Err)
}

func (e *SweepError) Unwrap() error {
	return e.Err
}
