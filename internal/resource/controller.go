// Package resource throttles the batch tool's appetite: a semaphore bounds
// concurrent clip loads and an optional rate limiter caps clip read
// throughput, so a dataset scan does not starve whatever else runs on the
// box.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrentLoads is the maximum number of clips decoded at once.
	// If 0, defaults to 4.
	MaxConcurrentLoads int64

	// IOLimitBytesPerSec is the maximum clip read throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages shared load/IO budgets across workers.
// A nil *Controller is valid and unlimited.
type Controller struct {
	cfg Config

	loadSem   *semaphore.Weighted
	ioLimiter *rate.Limiter
}

// NewController creates a resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentLoads <= 0 {
		cfg.MaxConcurrentLoads = 4
	}

	c := &Controller{
		cfg:     cfg,
		loadSem: semaphore.NewWeighted(cfg.MaxConcurrentLoads),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquireLoad reserves a clip-load slot, blocking while all slots are busy.
func (c *Controller) AcquireLoad(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.loadSem.Acquire(ctx, 1)
}

// ReleaseLoad releases a clip-load slot.
func (c *Controller) ReleaseLoad() {
	if c == nil {
		return
	}
	c.loadSem.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}
