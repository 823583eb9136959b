package driver

import "fmt"

// Schedule gives the temperature for sweep i (0-based) of a run of n sweeps.
type Schedule interface {
	Temperature(i, n int) float64
	Validate() error
}

// Constant holds the temperature fixed.
type Constant float64

func (c Constant) Temperature(int, int) float64 { return float64(c) }

func (c Constant) Validate() error {
	if c <= 0 {
		return fmt.Errorf("%w: temperature must be positive, got %v", ErrParams, float64(c))
	}
	return nil
}

// Linear anneals from From at the first sweep to To at the last.
type Linear struct {
	From float64
	To   float64
}

func (l Linear) Temperature(i, n int) float64 {
	if n <= 1 {
		return l.From
	}
	return l.From + (l.To-l.From)*float64(i)/float64(n-1)
}

func (l Linear) Validate() error {
	if l.From <= 0 || l.To <= 0 {
		return fmt.Errorf("%w: temperatures must be positive, got %v -> %v", ErrParams, l.From, l.To)
	}
	return nil
}
