package geoknn

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus
// (see server.PrometheusCollector).
type MetricsCollector interface {
	// RecordInsert is called after each insert operation.
	// duration is the total time taken, err is nil if successful.
	RecordInsert(duration time.Duration, err error)

	// RecordBulkInsert is called after each bulk insert.
	// count is the number of records submitted and failed is how many of them
	// did not make it into the index. BulkInsert stops at the first error, so
	// failed covers the failing record plus every record after it that was
	// never tried. duration is the total time taken.
	RecordBulkInsert(count, failed int, duration time.Duration)

	// RecordSearch is called after each search operation.
	// k is the number of neighbors requested, duration is the time taken,
	// err is nil if successful.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordBatchSearch is called after each batch of searches.
	RecordBatchSearch(queries, k int, duration time.Duration, err error)

	// RecordTeardown is called once when the index is closed.
	RecordTeardown(released int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)                {}
func (NoopMetricsCollector) RecordBulkInsert(int, int, time.Duration)         {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)           {}
func (NoopMetricsCollector) RecordBatchSearch(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordTeardown(int, time.Duration)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64
	BulkInsertCount  atomic.Int64
	BulkInsertItems  atomic.Int64
	BulkInsertFailed atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	BatchCount       atomic.Int64
	BatchQueries     atomic.Int64
	BatchErrors      atomic.Int64
	Released         atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordBulkInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBulkInsert(count, failed int, duration time.Duration) {
	b.BulkInsertCount.Add(1)
	b.BulkInsertItems.Add(int64(count))
	b.BulkInsertFailed.Add(int64(failed))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordBatchSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchSearch(queries, k int, duration time.Duration, err error) {
	b.BatchCount.Add(1)
	b.BatchQueries.Add(int64(queries))
	if err != nil {
		b.BatchErrors.Add(1)
	}
}

// RecordTeardown implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTeardown(released int, duration time.Duration) {
	b.Released.Add(int64(released))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:      b.InsertCount.Load(),
		InsertErrors:     b.InsertErrors.Load(),
		InsertAvgNanos:   avg(b.InsertTotalNanos.Load(), b.InsertCount.Load()),
		BulkInsertCount:  b.BulkInsertCount.Load(),
		BulkInsertItems:  b.BulkInsertItems.Load(),
		BulkInsertFailed: b.BulkInsertFailed.Load(),
		SearchCount:      b.SearchCount.Load(),
		SearchErrors:     b.SearchErrors.Load(),
		SearchAvgNanos:   avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		BatchCount:       b.BatchCount.Load(),
		BatchQueries:     b.BatchQueries.Load(),
		BatchErrors:      b.BatchErrors.Load(),
		Released:         b.Released.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount      int64
	InsertErrors     int64
	InsertAvgNanos   int64
	BulkInsertCount  int64
	BulkInsertItems  int64
	BulkInsertFailed int64
	SearchCount      int64
	SearchErrors     int64
	SearchAvgNanos   int64
	BatchCount       int64
	BatchQueries     int64
	BatchErrors      int64
	Released         int64
}
