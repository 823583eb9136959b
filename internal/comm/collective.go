package comm

import (
	"context"
	"fmt"
)

// ReduceSum adds vals element-wise across all ranks. The root gets the total;
// every other rank gets nil. The root accumulates in rank order 0..size-1, so
// the floating-point result is the same whatever order messages arrive in.
func ReduceSum(ctx context.Context, c Communicator, root int, seq uint64, vals []float64) ([]float64, error) {
	tag := Tag{Kind: KindReduce, Seq: seq}
	if c.Rank() != root {
		return nil, c.Send(ctx, root, tag, vals)
	}

	total := make([]float64, len(vals))
	buf := make([]float64, len(vals))
	for r := 0; r < c.Size(); r++ {
		part := vals
		if r != root {
			if err := c.Recv(ctx, r, tag, buf); err != nil {
				return nil, err
			}
			part = buf
		}
		for i, v := range part {
			total[i] += v
		}
	}
	return total, nil
}

// Gather collects each rank's flat payload at root. counts[r] is the length
// rank r sends. The root gets one slice per rank; the others get nil.
func Gather(ctx context.Context, c Communicator, root int, seq uint64, data []float64, counts []int) ([][]float64, error) {
	if len(counts) != c.Size() {
		return nil, fmt.Errorf("%w: %d counts for %d ranks", ErrLength, len(counts), c.Size())
	}
	tag := Tag{Kind: KindGather, Seq: seq}
	if c.Rank() != root {
		return nil, c.Send(ctx, root, tag, data)
	}

	out := make([][]float64, c.Size())
	for r := range out {
		if r == root {
			out[r] = append([]float64(nil), data...)
			continue
		}
		out[r] = make([]float64, counts[r])
		if err := c.Recv(ctx, r, tag, out[r]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
