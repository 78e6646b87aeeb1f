package index

import (
	"errors"
	"fmt"

	"github.com/hupe1980/geoknn/model"
)

var (
	// ErrInvalidK is returned when k is negative.
	ErrInvalidK = errors.New("k must not be negative")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("index is closed")
)

// ErrInvalidDimension indicates a space without partitioning axes.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// SearchResult represents a search result.
type SearchResult struct {
	// ID is the row of the matching node.
	ID model.RowID

	// Distance is the distance between the probe and the matching key.
	Distance float64
}

// Filter restricts which rows may appear in a result. A nil Filter allows all.
type Filter func(id model.RowID) bool

// Allows reports whether id passes the filter.
func (f Filter) Allows(id model.RowID) bool {
	return f == nil || f(id)
}

// Index represents a spatial index over keys of type K.
type Index[K any] interface {
	// Insert adds a key to the index.
	Insert(key K) (model.RowID, error)

	// Search returns the k nearest keys to probe.
	Search(probe K, k int, filter Filter) ([]SearchResult, error)

	// BruteSearch performs an exhaustive search.
	BruteSearch(probe K, k int, filter Filter) ([]SearchResult, error)

	// Get returns the key stored at id.
	Get(id model.RowID) (K, bool)

	// Len returns the number of stored keys.
	Len() int

	// Close releases every node and returns how many were released.
	Close() int
}
