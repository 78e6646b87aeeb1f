package geoknn

import (
	"log/slog"

	"github.com/hupe1980/geoknn/distance"
	"github.com/hupe1980/geoknn/internal/arena"
	"github.com/hupe1980/geoknn/internal/resource"
	"github.com/hupe1980/geoknn/model"
)

type options struct {
	space            distance.Space[model.Record]
	chunkSize        int
	resources        resource.Config
	controller       *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
}

func defaultOptions() options {
	return options{
		space:     distance.Planar{},
		chunkSize: arena.DefaultChunkSize,
	}
}

// Option configures Index construction.
type Option func(*options)

// WithSpace replaces the default planar (lat/lon squared Euclidean) space.
// The space decides both the partitioning axes and the distance.
//
// If nil is passed, distance.Planar is used.
func WithSpace(s distance.Space[model.Record]) Option {
	return func(o *options) {
		if s == nil {
			s = distance.Planar{}
		}
		o.space = s
	}
}

// WithChunkSize sets how many nodes are allocated at once.
// Memory is accounted per chunk, so smaller chunks give a tighter limit.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithMemoryLimit caps node storage in bytes. Inserts beyond the cap fail
// with ErrAllocation instead of growing the tree.
//
// Ignored when WithResourceController is also given.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.resources.MemoryLimitBytes = bytes
	}
}

// WithMaxConcurrentQueries bounds the fan-out of BatchKNearest.
//
// Ignored when WithResourceController is also given.
func WithMaxConcurrentQueries(n int64) Option {
	return func(o *options) {
		o.resources.MaxConcurrentQueries = n
	}
}

// WithInsertRate limits inserts to perSec per second with the given burst.
// BulkInsert waits for tokens; Insert fails fast with ErrRateLimited.
//
// Ignored when WithResourceController is also given.
func WithInsertRate(perSec float64, burst int) Option {
	return func(o *options) {
		o.resources.InsertsPerSec = perSec
		o.resources.InsertBurst = burst
	}
}

// WithResourceController shares one controller between several indexes, so
// they draw from a common memory budget and query pool.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &geoknn.BasicMetricsCollector{}
//	idx, _ := geoknn.New(geoknn.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("Inserts: %d, Avg latency: %dns\n", stats.InsertCount, stats.InsertAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := geoknn.NewJSONLogger(slog.LevelInfo)
//	idx, _ := geoknn.New(geoknn.WithLogger(logger))
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
