package comm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const DefaultTimeout = 30 * time.Second

type message struct {
	tag  Tag
	data []float64
}

// Mesh connects size in-process ranks with one buffered channel per ordered
// pair (from, to), self-links included.
type Mesh struct {
	size    int
	timeout time.Duration
	links   [][]chan message
	pool    bufferPool

	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Mesh)

// WithTimeout bounds every send and receive. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(m *Mesh) { m.timeout = d }
}

// NewMesh builds a fully connected mesh. Link capacity grows with size: a
// rank can run at most one halo exchange ahead of a neighbour and, through
// the chain of neighbours, at most size/2 reductions ahead of the root.
func NewMesh(size int, opts ...Option) (*Mesh, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: mesh of %d ranks", ErrPeer, size)
	}
	m := &Mesh{
		size:    size,
		timeout: DefaultTimeout,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	capacity := 4*size + 8
	m.links = make([][]chan message, size)
	for from := range m.links {
		m.links[from] = make([]chan message, size)
		for to := range m.links[from] {
			m.links[from][to] = make(chan message, capacity)
		}
	}
	return m, nil
}

func (m *Mesh) Size() int { return m.size }

// Endpoint returns the communicator for rank. Each endpoint must be used by a
// single goroutine.
func (m *Mesh) Endpoint(rank int) *Endpoint {
	return &Endpoint{
		mesh:    m,
		rank:    rank,
		pending: make([][]message, m.size),
	}
}

// Close aborts every blocked and future operation with ErrClosed.
func (m *Mesh) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// Endpoint is one rank's view of a Mesh.
type Endpoint struct {
	mesh    *Mesh
	rank    int
	pending [][]message
}

var _ Communicator = (*Endpoint)(nil)

func (e *Endpoint) Rank() int { return e.rank }
func (e *Endpoint) Size() int { return e.mesh.size }

func (e *Endpoint) Send(ctx context.Context, to int, tag Tag, data []float64) error {
	if to < 0 || to >= e.mesh.size {
		return e.fail("send", to, tag, ErrPeer)
	}
	ctx, cancel := e.bound(ctx)
	defer cancel()

	msg := message{tag: tag, data: e.mesh.pool.getAndCopy(data)}
	select {
	case e.mesh.links[e.rank][to] <- msg:
		return nil
	case <-e.mesh.done:
		return e.fail("send", to, tag, ErrClosed)
	case <-ctx.Done():
		return e.fail("send", to, tag, ctxErr(ctx))
	}
}

func (e *Endpoint) Recv(ctx context.Context, from int, tag Tag, dst []float64) error {
	if from < 0 || from >= e.mesh.size {
		return e.fail("recv", from, tag, ErrPeer)
	}
	if msg, ok := e.takePending(from, tag); ok {
		return e.deliver(from, msg, dst)
	}

	ctx, cancel := e.bound(ctx)
	defer cancel()

	link := e.mesh.links[from][e.rank]
	for {
		select {
		case msg := <-link:
			if msg.tag == tag {
				return e.deliver(from, msg, dst)
			}
			e.pending[from] = append(e.pending[from], msg)
		case <-e.mesh.done:
			return e.fail("recv", from, tag, ErrClosed)
		case <-ctx.Done():
			return e.fail("recv", from, tag, ctxErr(ctx))
		}
	}
}

func (e *Endpoint) takePending(from int, tag Tag) (message, bool) {
	q := e.pending[from]
	for i, msg := range q {
		if msg.tag == tag {
			e.pending[from] = append(q[:i], q[i+1:]...)
			return msg, true
		}
	}
	return message{}, false
}

func (e *Endpoint) deliver(from int, msg message, dst []float64) error {
	defer e.mesh.pool.put(msg.data)
	if len(msg.data) != len(dst) {
		return e.fail("recv", from, msg.tag, fmt.Errorf("%w: got %d values, want %d", ErrLength, len(msg.data), len(dst)))
	}
	copy(dst, msg.data)
	return nil
}

func (e *Endpoint) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.mesh.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.mesh.timeout)
}

func (e *Endpoint) fail(op string, peer int, tag Tag, err error) error {
	return &Error{Op: op, Rank: e.rank, Peer: peer, Tag: tag, Err: err}
}

func ctxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
	return ctx.Err()
}
