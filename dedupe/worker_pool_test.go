package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool(t *testing.T) {
	ctx := context.Background()

	t.Run("runs all submitted tasks", func(t *testing.T) {
		pool := NewWorkerPool(4)

		var count atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			require.NoError(t, pool.Submit(ctx, func() {
				defer wg.Done()
				count.Add(1)
			}))
		}
		wg.Wait()
		pool.Close()

		assert.Equal(t, int64(100), count.Load())
	})

	t.Run("close waits for queued tasks", func(t *testing.T) {
		pool := NewWorkerPool(1)

		var count atomic.Int64
		for i := 0; i < 10; i++ {
			require.NoError(t, pool.Submit(ctx, func() {
				count.Add(1)
			}))
		}
		pool.Close()

		assert.Equal(t, int64(10), count.Load())
	})

	t.Run("submit after close fails", func(t *testing.T) {
		pool := NewWorkerPool(1)
		pool.Close()

		err := pool.Submit(ctx, func() {})
		assert.ErrorIs(t, err, ErrPoolClosed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		pool := NewWorkerPool(2)
		pool.Close()
		pool.Close()
	})

	t.Run("cancelled context aborts submit", func(t *testing.T) {
		pool := NewWorkerPool(1)
		defer pool.Close()

		block := make(chan struct{})
		defer close(block)
		// Fill the single worker and the buffer.
		require.NoError(t, pool.Submit(ctx, func() { <-block }))
		for i := 0; i < 2; i++ {
			require.NoError(t, pool.Submit(ctx, func() {}))
		}

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := pool.Submit(cancelled, func() {})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
