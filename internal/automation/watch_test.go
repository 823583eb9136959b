package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/nemsim/internal/config"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := smallConfig()
	require.NoError(t, config.Save(path, cfg))

	seen := make(chan int, 64)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(_ context.Context, c *config.Config) error {
			select {
			case seen <- c.Sweeps:
			default:
			}
			return nil
		})
	}()

	select {
	case n := <-seen:
		require.Equal(t, cfg.Sweeps, n)
	case <-time.After(5 * time.Second):
		t.Fatal("initial load not reported")
	}

	cfg.Sweeps = 7
	require.NoError(t, config.Save(path, cfg))
	deadline := time.After(5 * time.Second)
	for got := false; !got; {
		select {
		case n := <-seen:
			got = n == 7
		case <-deadline:
			t.Fatal("rewrite not reported")
		}
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "run.yaml"), nil,
		func(context.Context, *config.Config) error { return nil })
	require.Error(t, err)
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, config.Save(path, smallConfig()))

	calls := make(chan struct{}, 64)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(context.Context, *config.Config) error {
			calls <- struct{}{}
			return nil
		})
	}()
	<-calls

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("size: 3\n"), 0644))
	select {
	case <-calls:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}
