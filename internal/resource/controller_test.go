package resource

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController(t *testing.T) {
	ctx := context.Background()

	t.Run("nil controller is unlimited", func(t *testing.T) {
		var c *Controller
		require.NoError(t, c.AcquireLoad(ctx))
		c.ReleaseLoad()
		require.NoError(t, c.AcquireIO(ctx, 1<<20))
	})

	t.Run("load slots block", func(t *testing.T) {
		c := NewController(Config{MaxConcurrentLoads: 1})
		require.NoError(t, c.AcquireLoad(ctx))

		blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		assert.Error(t, c.AcquireLoad(blocked))

		c.ReleaseLoad()
		require.NoError(t, c.AcquireLoad(ctx))
		c.ReleaseLoad()
	})

	t.Run("io unlimited by default", func(t *testing.T) {
		c := NewController(Config{})
		require.NoError(t, c.AcquireIO(ctx, 1<<30))
	})

	t.Run("io budget enforced", func(t *testing.T) {
		c := NewController(Config{IOLimitBytesPerSec: 100})

		// The burst covers the first acquisition; a second full-burst
		// acquisition must wait and fail under a short deadline.
		require.NoError(t, c.AcquireIO(ctx, 100))
		blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		assert.Error(t, c.AcquireIO(blocked, 100))
	})
}

func TestRateLimitedReader(t *testing.T) {
	ctx := context.Background()

	t.Run("passes data through", func(t *testing.T) {
		c := NewController(Config{})
		r := NewRateLimitedReader(ctx, bytes.NewReader([]byte("hello")), c)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("propagates budget errors", func(t *testing.T) {
		c := NewController(Config{IOLimitBytesPerSec: 10})
		require.NoError(t, c.AcquireIO(ctx, 10))

		blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		r := NewRateLimitedReader(blocked, bytes.NewReader(make([]byte, 64)), c)
		_, err := r.Read(make([]byte, 10))
		assert.Error(t, err)
	})
}
