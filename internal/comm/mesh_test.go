package comm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMesh_SelfLink(t *testing.T) {
	m, err := NewMesh(1)
	require.NoError(t, err)
	defer m.Close()

	ep := m.Endpoint(0)
	ctx := context.Background()
	tag := Tag{Kind: KindHaloUp, Seq: 1}

	require.NoError(t, ep.Send(ctx, 0, tag, []float64{1, 2, 3}))

	got := make([]float64, 3)
	require.NoError(t, ep.Recv(ctx, 0, tag, got))
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestMesh_PayloadIsCopied(t *testing.T) {
	m, _ := NewMesh(2)
	defer m.Close()

	src := []float64{4, 5}
	tag := Tag{Kind: KindHaloDown}
	require.NoError(t, m.Endpoint(0).Send(context.Background(), 1, tag, src))
	src[0] = -1

	got := make([]float64, 2)
	require.NoError(t, m.Endpoint(1).Recv(context.Background(), 0, tag, got))
	assert.Equal(t, []float64{4, 5}, got)
}

func TestMesh_OutOfOrderTags(t *testing.T) {
	m, _ := NewMesh(2)
	defer m.Close()

	ctx := context.Background()
	a, b := m.Endpoint(0), m.Endpoint(1)

	first := Tag{Kind: KindHaloUp, Seq: 7}
	second := Tag{Kind: KindHaloDown, Seq: 7}
	require.NoError(t, a.Send(ctx, 1, first, []float64{1}))
	require.NoError(t, a.Send(ctx, 1, second, []float64{2}))

	got := make([]float64, 1)
	require.NoError(t, b.Recv(ctx, 0, second, got))
	assert.Equal(t, 2.0, got[0])
	require.NoError(t, b.Recv(ctx, 0, first, got))
	assert.Equal(t, 1.0, got[0])
}

func TestMesh_Timeout(t *testing.T) {
	m, _ := NewMesh(2, WithTimeout(20*time.Millisecond))
	defer m.Close()

	err := m.Endpoint(0).Recv(context.Background(), 1, Tag{Kind: KindReduce}, make([]float64, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommunication))
	assert.True(t, errors.Is(err, ErrTimeout))

	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "recv", ce.Op)
	assert.Equal(t, 1, ce.Peer)
}

func TestMesh_Close(t *testing.T) {
	m, _ := NewMesh(2)

	errc := make(chan error, 1)
	go func() {
		errc <- m.Endpoint(1).Recv(context.Background(), 0, Tag{Kind: KindGather}, make([]float64, 1))
	}()
	m.Close()

	err := <-errc
	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, errors.Is(err, ErrCommunication))
}

func TestMesh_LengthMismatch(t *testing.T) {
	m, _ := NewMesh(1)
	defer m.Close()

	ep := m.Endpoint(0)
	tag := Tag{Kind: KindHaloUp}
	require.NoError(t, ep.Send(context.Background(), 0, tag, []float64{1, 2}))

	err := ep.Recv(context.Background(), 0, tag, make([]float64, 3))
	assert.True(t, errors.Is(err, ErrLength))
}

func TestMesh_BadPeer(t *testing.T) {
	m, _ := NewMesh(2)
	defer m.Close()

	err := m.Endpoint(0).Send(context.Background(), 2, Tag{}, nil)
	assert.True(t, errors.Is(err, ErrPeer))

	_, err = NewMesh(0)
	assert.Error(t, err)
}

func runRanks(t *testing.T, m *Mesh, fn func(ep *Endpoint) error) {
	t.Helper()
	var wg sync.WaitGroup
	errs := make([]error, m.Size())
	for r := 0; r < m.Size(); r++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			errs[rank] = fn(m.Endpoint(rank))
		}(r)
	}
	wg.Wait()
	for r, err := range errs {
		require.NoError(t, err, "rank %d", r)
	}
}

func TestReduceSum(t *testing.T) {
	const size = 5
	m, _ := NewMesh(size)
	defer m.Close()

	var total []float64
	runRanks(t, m, func(ep *Endpoint) error {
		// Later ranks report first.
		time.Sleep(time.Duration(size-ep.Rank()) * 2 * time.Millisecond)
		vals := []float64{float64(ep.Rank()), 1, 0.1 * float64(ep.Rank())}
		out, err := ReduceSum(context.Background(), ep, 0, 3, vals)
		if ep.Rank() == 0 {
			total = out
		} else if out != nil {
			t.Errorf("rank %d received a result", ep.Rank())
		}
		return err
	})

	want := make([]float64, 3)
	for r := 0; r < size; r++ {
		want[0] += float64(r)
		want[1] += 1
		want[2] += 0.1 * float64(r)
	}
	assert.Equal(t, want, total)
}

func TestReduceSum_NonZeroRoot(t *testing.T) {
	m, _ := NewMesh(3)
	defer m.Close()

	var total []float64
	runRanks(t, m, func(ep *Endpoint) error {
		out, err := ReduceSum(context.Background(), ep, 2, 0, []float64{1})
		if ep.Rank() == 2 {
			total = out
		}
		return err
	})
	assert.Equal(t, []float64{3}, total)
}

func TestGather(t *testing.T) {
	m, _ := NewMesh(3)
	defer m.Close()

	counts := []int{2, 1, 3}
	var got [][]float64
	runRanks(t, m, func(ep *Endpoint) error {
		data := make([]float64, counts[ep.Rank()])
		for i := range data {
			data[i] = float64(ep.Rank()*10 + i)
		}
		out, err := Gather(context.Background(), ep, 0, 1, data, counts)
		if ep.Rank() == 0 {
			got = out
		}
		return err
	})

	assert.Equal(t, [][]float64{{0, 1}, {10}, {20, 21, 22}}, got)
}

func TestGather_BadCounts(t *testing.T) {
	m, _ := NewMesh(2)
	defer m.Close()

	_, err := Gather(context.Background(), m.Endpoint(0), 0, 0, nil, []int{1})
	assert.True(t, errors.Is(err, ErrLength))
}
