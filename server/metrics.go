package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/geoknn"
)

var _ geoknn.MetricsCollector = (*PrometheusCollector)(nil)

// PrometheusCollector records index operations as Prometheus metrics.
type PrometheusCollector struct {
	operations   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	bulkItems    *prometheus.CounterVec
	batchQueries prometheus.Counter
	released     prometheus.Counter
}

// NewPrometheusCollector registers the index metrics with reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geoknn",
			Subsystem: "index",
			Name:      "operations_total",
			Help:      "Index operations by kind and outcome",
		}, []string{"op", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geoknn",
			Subsystem: "index",
			Name:      "operation_duration_seconds",
			Help:      "Index operation latency in seconds",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"op"}),
		bulkItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geoknn",
			Subsystem: "index",
			Name:      "bulk_insert_items_total",
			Help:      "Records submitted through bulk inserts, by whether they were inserted",
		}, []string{"status"}),
		batchQueries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "geoknn",
			Subsystem: "index",
			Name:      "batch_queries_total",
			Help:      "Probes submitted through batch searches",
		}),
		released: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "geoknn",
			Subsystem: "index",
			Name:      "released_nodes_total",
			Help:      "Nodes released by index teardown",
		}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *PrometheusCollector) observe(op string, d time.Duration, err error) {
	p.operations.WithLabelValues(op, status(err)).Inc()
	p.latency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordInsert implements geoknn.MetricsCollector.
func (p *PrometheusCollector) RecordInsert(d time.Duration, err error) {
	p.observe("insert", d, err)
}

// RecordBulkInsert implements geoknn.MetricsCollector.
func (p *PrometheusCollector) RecordBulkInsert(count, failed int, d time.Duration) {
	var err error
	if failed > 0 {
		err = errIncomplete
	}
	p.observe("bulk_insert", d, err)
	p.bulkItems.WithLabelValues("inserted").Add(float64(count - failed))
	p.bulkItems.WithLabelValues("not_inserted").Add(float64(failed))
}

// RecordSearch implements geoknn.MetricsCollector.
func (p *PrometheusCollector) RecordSearch(k int, d time.Duration, err error) {
	p.observe("search", d, err)
}

// RecordBatchSearch implements geoknn.MetricsCollector.
func (p *PrometheusCollector) RecordBatchSearch(queries, k int, d time.Duration, err error) {
	p.observe("batch_search", d, err)
	p.batchQueries.Add(float64(queries))
}

// RecordTeardown implements geoknn.MetricsCollector.
func (p *PrometheusCollector) RecordTeardown(released int, d time.Duration) {
	p.observe("teardown", d, nil)
	p.released.Add(float64(released))
}
