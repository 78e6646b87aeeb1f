// Package resource implements the Controller for memory, query and insert limits.
//
// The Controller provides centralized management of three resource types:
//
//   - Memory: Track and limit node storage (non-blocking, fail-fast)
//   - Queries: Limit concurrent searches in batch fan-out
//   - Inserts: Rate-limit bulk loading with a token bucket
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and atomic counters
// for usage tracking. AcquireMemory is non-blocking and returns immediately
// with ErrMemoryLimitExceeded if the limit would be exceeded, so an allocation
// failure is an ordinary error the caller can react to:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20,
//	})
//
//	if err := rc.AcquireMemory(chunkBytes); err != nil {
//	    // ErrMemoryLimitExceeded - caller decides retry/backoff
//	}
//	defer rc.ReleaseMemory(chunkBytes)
//
// # Query Slots
//
//	if err := rc.AcquireQuery(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseQuery()
//
// # Insert Rate Limiting
//
//	if err := rc.AcquireInsert(ctx); err != nil {
//	    return err
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
