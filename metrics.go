package extsort

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordSpill is called after each spilled run.
	// records and bytes describe the run, err is nil if successful.
	RecordSpill(records int, bytes int64, duration time.Duration, err error)

	// RecordMergeRound is called after each intermediate merge round.
	// fanIn is the number of runs merged in the round.
	RecordMergeRound(fanIn int, duration time.Duration, err error)

	// RecordMerge is called once per merge invocation. runs is the number of
	// input runs, rounds the number of intermediate rounds performed.
	RecordMerge(runs, rounds int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSpill(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordMergeRound(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordMerge(int, int, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SpillCount      atomic.Int64
	SpillErrors     atomic.Int64
	SpillRecords    atomic.Int64
	SpillBytes      atomic.Int64
	SpillTotalNanos atomic.Int64

	MergeRoundCount atomic.Int64
	MergeCount      atomic.Int64
	MergeErrors     atomic.Int64
	MergeTotalNanos atomic.Int64
}

func (c *BasicMetricsCollector) RecordSpill(records int, bytes int64, duration time.Duration, err error) {
	c.SpillCount.Add(1)
	c.SpillTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		c.SpillErrors.Add(1)
		return
	}
	c.SpillRecords.Add(int64(records))
	c.SpillBytes.Add(bytes)
}

func (c *BasicMetricsCollector) RecordMergeRound(fanIn int, duration time.Duration, err error) {
	c.MergeRoundCount.Add(1)
}

func (c *BasicMetricsCollector) RecordMerge(runs, rounds int, duration time.Duration, err error) {
	c.MergeCount.Add(1)
	c.MergeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		c.MergeErrors.Add(1)
	}
}

// MetricsStats is a snapshot of collected metrics.
type MetricsStats struct {
	SpillCount      int64
	SpillErrors     int64
	SpillRecords    int64
	SpillBytes      int64
	SpillAvgNanos   int64
	MergeRoundCount int64
	MergeCount      int64
	MergeErrors     int64
	MergeAvgNanos   int64
}

// GetStats returns a consistent-enough snapshot of the collected metrics.
func (c *BasicMetricsCollector) GetStats() MetricsStats {
	stats := MetricsStats{
		SpillCount:      c.SpillCount.Load(),
		SpillErrors:     c.SpillErrors.Load(),
		SpillRecords:    c.SpillRecords.Load(),
		SpillBytes:      c.SpillBytes.Load(),
		MergeRoundCount: c.MergeRoundCount.Load(),
		MergeCount:      c.MergeCount.Load(),
		MergeErrors:     c.MergeErrors.Load(),
	}
	if stats.SpillCount > 0 {
		stats.SpillAvgNanos = c.SpillTotalNanos.Load() / stats.SpillCount
	}
	if stats.MergeCount > 0 {
		stats.MergeAvgNanos = c.MergeTotalNanos.Load() / stats.MergeCount
	}
	return stats
}
