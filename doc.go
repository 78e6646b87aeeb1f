// Package geoknn provides an in-memory k-nearest-neighbor index for
// geographic points.
//
// Each record holds a latitude, a longitude, a 128-element float32 embedding
// and a short identifier. Records are organized in a 2-d tree that alternates
// between latitude and longitude at each level, and queries return the k
// records with the smallest squared planar distance to a probe.
//
// # Quick Start
//
//	idx, _ := geoknn.New()
//	defer idx.Close()
//
//	idx.Insert(ctx, model.Point(-23.55, -46.63, "sao-paulo"))
//	idx.Insert(ctx, model.Point(-22.90, -43.17, "rio"))
//
//	nearest, _ := idx.KNearest(ctx, model.Point(-23.0, -45.0, ""), 1)
//
// # Result Order
//
// Results come straight out of a bounded max-heap: the farthest of the
// retained neighbors first, the others in heap order. Callers that need a
// ranking should sort, for example with index.SortByDistance on the output
// of Neighbors.
//
// # Filtering
//
// A search can be limited to a subset of rows with a roaring bitmap or a
// predicate:
//
//	allow := roaring.BitmapOf(1, 5, 9)
//	idx.KNearest(ctx, probe, 3, geoknn.WithFilter(allow))
//
// # Resources
//
// Node storage grows in chunks that are charged against an optional memory
// limit (WithMemoryLimit). When the limit is reached, Insert returns
// ErrAllocation and the index stays usable. Inserts can be rate limited
// (WithInsertRate): BulkInsert waits for a token while Insert returns
// ErrRateLimited. BatchKNearest fans out over a bounded pool
// (WithMaxConcurrentQueries).
//
// # Concurrency
//
// Index has no internal locking. Concurrent searches are safe when no insert
// or Close runs alongside them. SyncIndex adds a read/write lock for callers
// that mix the two.
package geoknn
