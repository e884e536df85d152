package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestRunProcessesEveryItemExactlyOnce(t *testing.T) {
	cases := []struct {
		name    string
		items   int
		workers int
	}{
		{"single worker", 100, 1},
		{"more items than workers", 200, 7},
		{"more workers than items", 3, 16},
		{"one item", 1, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims := make([]int32, tc.items)
			stats, err := New().Run(context.Background(), tc.items, tc.workers, func(ctx context.Context, item int) error {
				atomic.AddInt32(&claims[item], 1)
				return nil
			})
			require.NoError(t, err)
			require.Equal(t, tc.items, stats.Processed)
			require.Equal(t, 0, stats.Failed)
			for item, n := range claims {
				if n != 1 {
					t.Fatalf("item %d claimed %d times", item, n)
				}
			}
		})
	}
}

func TestRunEmptyBatchReturnsImmediately(t *testing.T) {
	for _, workers := range []int{1, 8, 64} {
		stats, err := New().Run(context.Background(), 0, workers, func(ctx context.Context, item int) error {
			t.Error("process called for empty batch")
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, Stats{}, stats)
	}
}

func TestRunRejectsBadConfiguration(t *testing.T) {
	noop := func(ctx context.Context, item int) error { return nil }

	_, err := New().Run(context.Background(), -1, 4, noop)
	require.Error(t, err)

	_, err = New().Run(context.Background(), 10, 0, noop)
	require.Error(t, err)

	_, err = New().Run(context.Background(), 10, 4, nil)
	require.Error(t, err)
}

func TestRunFailureConfinedToItem(t *testing.T) {
	const items = 50
	var done sync.Map
	stats, err := New().Run(context.Background(), items, 5, func(ctx context.Context, item int) error {
		if item == 17 {
			return errors.New("boom")
		}
		done.Store(item, true)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, items, stats.Processed)
	require.Equal(t, 1, stats.Failed)

	for i := 0; i < items; i++ {
		if i == 17 {
			continue
		}
		_, ok := done.Load(i)
		require.True(t, ok, "item %d did not complete", i)
	}
}

func TestRunPanicConfinedToItem(t *testing.T) {
	stats, err := New().Run(context.Background(), 10, 3, func(ctx context.Context, item int) error {
		if item == 4 {
			panic("worker gone wild")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 10, stats.Processed)
	require.Equal(t, 1, stats.Failed)
}

// The end-to-end scenario: 20 items across 5 workers with a fixed per-item
// delay should take roughly ceil(20/5) delays, not 20.
func TestRunOverlapsItemDelays(t *testing.T) {
	const (
		items   = 20
		workers = 5
		delay   = 20 * time.Millisecond
	)

	var mu sync.Mutex
	got := make(map[int]bool, items)

	start := time.Now()
	stats, err := New().Run(context.Background(), items, workers, func(ctx context.Context, item int) error {
		time.Sleep(delay)
		mu.Lock()
		got[item] = true
		mu.Unlock()
		return nil
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Equal(t, items, stats.Processed)
	require.Len(t, got, items)

	// Sequential execution would take items*delay. Allow generous slack for
	// slow CI machines while still ruling out serialization.
	require.GreaterOrEqual(t, elapsed, delay)
	require.Less(t, elapsed, time.Duration(items)*delay/2)
}

func TestRunCancellationStopsFurtherClaims(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var processed int32
	stats, err := New().Run(ctx, 1000, 4, func(ctx context.Context, item int) error {
		if atomic.AddInt32(&processed, 1) == 8 {
			cancel()
		}
		time.Sleep(time.Millisecond)
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	// Workers drain the item they already hold, so up to one extra item per
	// worker may complete past the cancellation point.
	require.Less(t, stats.Processed, 1000)
	require.Equal(t, int(atomic.LoadInt32(&processed)), stats.Processed)
}

// Stress the claim path with many workers hammering a short queue.
func TestRunConcurrentClaimsNeverDuplicate(t *testing.T) {
	const (
		rounds  = 50
		items   = 97
		workers = 32
	)
	for r := 0; r < rounds; r++ {
		claims := make([]int32, items)
		stats, err := New().Run(context.Background(), items, workers, func(ctx context.Context, item int) error {
			atomic.AddInt32(&claims[item], 1)
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, items, stats.Processed)
		for item, n := range claims {
			if n != 1 {
				t.Fatalf("round %d: item %d claimed %d times", r, item, n)
			}
		}
	}
}
