package sonigo

import (
	"log/slog"

	"github.com/hupe1980/sonigo/blobstore"
	"github.com/hupe1980/sonigo/internal/resource"
	"github.com/hupe1980/sonigo/simclip"
)

type options struct {
	workers          int
	topK             int
	chunkSize        int
	dryRun           bool
	store            blobstore.Store
	model            simclip.Model
	controller       *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Pipeline construction.
//
// Breaking changes are expected while sonigo is pre-release.
type Option func(*options)

// WithWorkers configures the worker pool size for batch runs.
// Each worker processes one directory unit at a time, loading its clips,
// embedding them and scoring the pairwise similarities.
//
// If workers <= 0, GOMAXPROCS is used.
func WithWorkers(workers int) Option {
	return func(o *options) {
		o.workers = workers
	}
}

// WithTopK configures the number of neighbors kept per clip.
func WithTopK(k int) Option {
	return func(o *options) {
		o.topK = k
	}
}

// WithChunkSize bounds the pairwise scoring chunks. Larger chunks score
// more pairs per pass at the cost of memory.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithDryRun scores units without writing artifacts. Useful for
// verifying a directory layout before a real run.
func WithDryRun(dry bool) Option {
	return func(o *options) {
		o.dryRun = dry
	}
}

// WithStore configures where similarity artifacts are written.
//
// By default artifacts land next to the clips they describe, via a local
// store rooted at the scan root. Pass a blobstore implementation (S3,
// MinIO, in-memory) to redirect them.
//
// Example with S3:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("similarities"))
//	p, _ := sonigo.Open("model.yaml", sonigo.WithStore(store))
func WithStore(store blobstore.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithModel injects an embedding model, bypassing the lazy ONNX load.
// The caller keeps ownership; Close will not touch it.
func WithModel(m simclip.Model) Option {
	return func(o *options) {
		o.model = m
	}
}

// WithResourceLimits configures clip loading throttles: the number of
// concurrent clip loads and an aggregate read budget in bytes per second.
// Zero disables a limit.
func WithResourceLimits(maxConcurrentLoads int, ioBytesPerSec int64) Option {
	return func(o *options) {
		o.controller = resource.NewController(resource.Config{
			MaxConcurrentLoads: int64(maxConcurrentLoads),
			IOLimitBytesPerSec: ioBytesPerSec,
		})
	}
}

// WithMetricsCollector configures a metrics collector for monitoring runs.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &sonigo.BasicMetricsCollector{}
//	p, _ := sonigo.Open("model.yaml", sonigo.WithMetricsCollector(metrics))
//	// ... run ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for runs.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := sonigo.NewJSONLogger(slog.LevelInfo)
//	p, _ := sonigo.Open("model.yaml", sonigo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
