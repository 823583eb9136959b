package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrCommunication marks every transport failure. Callers treat it as fatal.
	ErrCommunication = errors.New("comm: communication failure")

	// ErrTimeout indicates a send or receive that did not complete in time.
	ErrTimeout = errors.New("comm: operation timed out")

	// ErrClosed indicates an operation on a mesh that has been shut down.
	ErrClosed = errors.New("comm: mesh closed")

	// ErrLength indicates a payload whose length does not match the receive buffer.
	ErrLength = errors.New("comm: payload length mismatch")

	// ErrPeer indicates a rank outside the world.
	ErrPeer = errors.New("comm: no such rank")
)

// Error describes a failed operation between two ranks.
type Error struct {
	Op   string
	Rank int
	Peer int
	Tag  Tag
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("comm: %s rank %d <-> %d (%s): %v", e.Op, e.Rank, e.Peer, e.Tag, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrCommunication, e.Err}
}
