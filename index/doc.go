// Package index provides the spatial index interface and shared search types.
//
// The only implementation is the k-d tree in index/kdtree; its BruteSearch
// method doubles as the exact reference for tests.
//
// # Index Interface
//
//	type Index[K any] interface {
//	    Insert(key K) (model.RowID, error)
//	    Search(probe K, k int, filter Filter) ([]SearchResult, error)
//	    BruteSearch(probe K, k int, filter Filter) ([]SearchResult, error)
//	    Get(id model.RowID) (K, bool)
//	    Len() int
//	    Close() int
//	}
//
// # Result Order
//
// Search returns results in the storage order of the top-k heap, not sorted by
// distance. Use SortByDistance when an ordered list is needed.
package index
