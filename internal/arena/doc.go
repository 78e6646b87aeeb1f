// Package arena provides a chunked slab allocator for tree nodes.
//
// Nodes are addressed by model.RowID instead of pointers. Child links are plain
// integers, so a whole tree can be released in one pass without dangling
// references, and slot addresses stay stable while the slab grows.
//
// # Features
//
//   - Power-of-two chunks for shift/mask addressing
//   - Slot 0 reserved as the null reference
//   - Per-chunk memory accounting through a MemoryAcquirer
//
// # Safety
//
// All methods return errors instead of panicking. Get returns nil for
// out-of-range or freed slots.
//
// # Concurrency Model
//
// A Slab supports one writer. Get may be called from many goroutines as long
// as no Alloc or Free runs concurrently.
package arena
