// Package pool provides object pools for allocation-free search operations.
// Uses sync.Pool for automatic memory reuse.
package pool

import "sync"

// Slices recycles slice buffers of T.
// Buffers that grew beyond maxCap are dropped instead of returned to the pool
// so one pathological search does not pin a large allocation.
type Slices[T any] struct {
	p      sync.Pool
	maxCap int
}

// NewSlices creates a pool whose fresh buffers have capacity initialCap.
func NewSlices[T any](initialCap, maxCap int) *Slices[T] {
	s := &Slices[T]{maxCap: maxCap}
	s.p.New = func() any {
		buf := make([]T, 0, initialCap)
		return &buf
	}
	return s
}

// Get returns an empty buffer.
func (s *Slices[T]) Get() *[]T {
	buf := s.p.Get().(*[]T)
	*buf = (*buf)[:0]
	return buf
}

// Put returns buf to the pool.
func (s *Slices[T]) Put(buf *[]T) {
	if buf == nil || cap(*buf) > s.maxCap {
		return
	}
	var zero T
	full := (*buf)[:cap(*buf)]
	for i := range full {
		full[i] = zero
	}
	*buf = (*buf)[:0]
	s.p.Put(buf)
}
