package geoknn

import (
	"errors"
	"fmt"

	"github.com/hupe1980/geoknn/distance"
	"github.com/hupe1980/geoknn/index"
	"github.com/hupe1980/geoknn/internal/arena"
	"github.com/hupe1980/geoknn/internal/resource"
	"github.com/hupe1980/geoknn/model"
)

var (
	// ErrInvalidK is returned when k is negative.
	ErrInvalidK = errors.New("k must not be negative")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("geoknn: index is closed")

	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("geoknn: not found")

	// ErrRateLimited is returned by Insert when the configured insert rate
	// has no token left. BulkInsert waits instead.
	ErrRateLimited = errors.New("geoknn: insert rate exceeded")

	// ErrAllocation is returned when node storage cannot grow, either because
	// the memory limit is reached or the row space is exhausted. The index is
	// unchanged and remains usable.
	ErrAllocation = errors.New("geoknn: allocation failed")
)

// ErrInvalidAxis indicates a comparator was asked for an axis it does not have.
// This is a programming error in a custom distance.Space.
//
// The underlying error, if any, is available via errors.Unwrap.
type ErrInvalidAxis struct {
	Axis  int
	Dims  int
	cause error
}

func (e *ErrInvalidAxis) Error() string {
	return fmt.Sprintf("invalid axis %d for %d-dimensional space", e.Axis, e.Dims)
}

func (e *ErrInvalidAxis) Unwrap() error { return e.cause }

// ErrEmbeddingLength indicates an embedding with the wrong number of elements.
//
// The underlying error, if any, is available via errors.Unwrap.
type ErrEmbeddingLength struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrEmbeddingLength) Error() string {
	return fmt.Sprintf("embedding length mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrEmbeddingLength) Unwrap() error { return e.cause }

// ErrInvalidCoordinate indicates a record or probe whose latitude or
// longitude is NaN or infinite.
//
// The underlying error, if any, is available via errors.Unwrap.
type ErrInvalidCoordinate struct {
	Lat   float64
	Lon   float64
	cause error
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("invalid coordinate (%v, %v): lat and lon must be finite", e.Lat, e.Lon)
}

func (e *ErrInvalidCoordinate) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates a space without partitioning axes.
//
// The underlying error, if any, is available via errors.Unwrap.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, index.ErrClosed) || errors.Is(err, arena.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	if errors.Is(err, resource.ErrMemoryLimitExceeded) || errors.Is(err, arena.ErrMaxChunksExceeded) {
		return fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	if errors.Is(err, index.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}

	var ia *distance.ErrInvalidAxis
	if errors.As(err, &ia) {
		return &ErrInvalidAxis{Axis: ia.Axis, Dims: ia.Dims, cause: err}
	}
	var el *model.ErrEmbeddingLength
	if errors.As(err, &el) {
		return &ErrEmbeddingLength{Expected: el.Expected, Actual: el.Actual, cause: err}
	}
	var ic *model.ErrInvalidCoordinate
	if errors.As(err, &ic) {
		return &ErrInvalidCoordinate{Lat: ic.Lat, Lon: ic.Lon, cause: err}
	}
	var id *index.ErrInvalidDimension
	if errors.As(err, &id) {
		return &ErrInvalidDimension{Dimension: id.Dimension, cause: err}
	}

	return err
}
