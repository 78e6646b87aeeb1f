package resource

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for node storage.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxConcurrentQueries bounds the fan-out of batch searches.
	// If 0, defaults to GOMAXPROCS.
	MaxConcurrentQueries int64

	// InsertsPerSec is the sustained insert rate.
	// If 0, unlimited.
	InsertsPerSec float64

	// InsertBurst is the token bucket size for inserts.
	// If 0, defaults to max(1, InsertsPerSec).
	InsertBurst int
}

// Controller manages resource limits.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	querySem *semaphore.Weighted

	// Inserts
	insertLimiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentQueries <= 0 {
		cfg.MaxConcurrentQueries = int64(runtime.GOMAXPROCS(0))
	}

	c := &Controller{
		cfg:      cfg,
		querySem: semaphore.NewWeighted(cfg.MaxConcurrentQueries),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.InsertsPerSec > 0 {
		burst := cfg.InsertBurst
		if burst <= 0 {
			burst = max(1, int(cfg.InsertsPerSec))
		}
		c.insertLimiter = rate.NewLimiter(rate.Limit(cfg.InsertsPerSec), burst)
	}

	return c
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - callers control retry/backoff policy.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// MaxConcurrentQueries returns the query slot count (0 for a nil Controller).
func (c *Controller) MaxConcurrentQueries() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MaxConcurrentQueries
}

// AcquireQuery reserves a query slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireQuery(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.querySem.Acquire(ctx, 1)
}

// ReleaseQuery releases a query slot.
func (c *Controller) ReleaseQuery() {
	if c == nil {
		return
	}
	c.querySem.Release(1)
}

// AcquireInsert waits until the insert limit allows one more insert.
func (c *Controller) AcquireInsert(ctx context.Context) error {
	if c == nil || c.insertLimiter == nil {
		return nil
	}
	return c.insertLimiter.Wait(ctx)
}

// TryAcquireInsert attempts to take an insert token without blocking.
func (c *Controller) TryAcquireInsert() bool {
	if c == nil || c.insertLimiter == nil {
		return true
	}
	return c.insertLimiter.AllowN(time.Now(), 1)
}
