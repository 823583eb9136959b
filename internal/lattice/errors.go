package lattice

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAccess indicates a write to a halo row or a read outside the strip.
	ErrInvalidAccess = errors.New("lattice: invalid access")

	// ErrBadPartition indicates a lattice that cannot be split across the requested ranks.
	ErrBadPartition = errors.New("lattice: invalid partition")
)

// AccessError records the offending coordinates of an invalid access.
type AccessError struct {
	Op  string
	Row int
	Col int
	Err error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s (%d,%d): %v", e.Op, e.Row, e.Col, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
