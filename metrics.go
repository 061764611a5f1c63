package sonigo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordRun is called after each batch run.
	// s is the per-unit breakdown, duration is the total time taken,
	// err is nil if the run completed.
	RecordRun(s Summary, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRun(Summary, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	RunCount       atomic.Int64
	RunErrors      atomic.Int64
	RunTotalNanos  atomic.Int64
	UnitsSeen      atomic.Int64
	UnitsProcessed atomic.Int64
	UnitsSkipped   atomic.Int64
	UnitsFailed    atomic.Int64
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(s Summary, duration time.Duration, err error) {
	b.RunCount.Add(1)
	b.RunTotalNanos.Add(duration.Nanoseconds())
	b.UnitsSeen.Add(int64(s.Units))
	b.UnitsProcessed.Add(int64(s.Processed))
	b.UnitsSkipped.Add(int64(s.Skipped))
	b.UnitsFailed.Add(int64(s.Failed))
	if err != nil {
		b.RunErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RunCount:       b.RunCount.Load(),
		RunErrors:      b.RunErrors.Load(),
		RunAvgNanos:    b.getAvgRunNanos(),
		UnitsSeen:      b.UnitsSeen.Load(),
		UnitsProcessed: b.UnitsProcessed.Load(),
		UnitsSkipped:   b.UnitsSkipped.Load(),
		UnitsFailed:    b.UnitsFailed.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgRunNanos() int64 {
	count := b.RunCount.Load()
	if count == 0 {
		return 0
	}
	return b.RunTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RunCount       int64
	RunErrors      int64
	RunAvgNanos    int64
	UnitsSeen      int64
	UnitsProcessed int64
	UnitsSkipped   int64
	UnitsFailed    int64
}
