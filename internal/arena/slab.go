package arena

import (
	"errors"
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/hupe1980/geoknn/model"
)

// MemoryAcquirer is an interface for acquiring memory.
type MemoryAcquirer interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

var (
	// ErrMaxChunksExceeded is returned when the slab exceeds the maximum number of chunks.
	ErrMaxChunksExceeded = errors.New("arena: max chunks exceeded")
	// ErrClosed is returned when allocating from a freed slab.
	ErrClosed = errors.New("arena: closed")
)

const (
	// DefaultChunkSize is the default number of slots per chunk.
	DefaultChunkSize = 1024
	// MaxChunks bounds the addressable slot space to fit model.RowID.
	MaxChunks = 1 << 20
)

// Stats tracks slab usage.
type Stats struct {
	Slots         int   // Allocated slots, excluding the reserved null slot
	ActiveChunks  int   // Chunks currently held
	BytesReserved int64 // Bytes accounted for all held chunks
}

// Option is a configuration option for Slab.
type Option func(*options)

type options struct {
	chunkSize int
	acquirer  MemoryAcquirer
}

// WithChunkSize sets the number of slots per chunk (rounded up to a power of two).
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithMemoryAcquirer sets the memory acquirer charged for every chunk.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(o *options) {
		o.acquirer = acquirer
	}
}

// Slab is a growable array of T addressed by RowID.
type Slab[T any] struct {
	chunks    [][]T
	chunkBits uint
	chunkMask uint32
	next      uint32 // Next free slot
	elemSize  int64
	acquirer  MemoryAcquirer
	closed    bool
}

// New creates a new Slab.
func New[T any](opts ...Option) (*Slab[T], error) {
	o := options{chunkSize: DefaultChunkSize}
	for _, fn := range opts {
		fn(&o)
	}
	if o.chunkSize <= 1 {
		o.chunkSize = 2
	}

	chunkBits := uint(bits.Len(uint(o.chunkSize - 1)))

	var zero T
	s := &Slab[T]{
		chunkBits: chunkBits,
		chunkMask: uint32(1)<<chunkBits - 1,
		elemSize:  int64(unsafe.Sizeof(zero)),
		acquirer:  o.acquirer,
	}

	// Reserve slot 0 as null.
	if err := s.grow(); err != nil {
		return nil, err
	}
	s.next = 1

	return s, nil
}

// ChunkSize returns the number of slots per chunk.
func (s *Slab[T]) ChunkSize() int { return 1 << s.chunkBits }

// ChunkBytes returns the bytes charged to the acquirer per chunk.
func (s *Slab[T]) ChunkBytes() int64 { return s.elemSize << s.chunkBits }

// Len returns the number of allocated slots, excluding the null slot.
func (s *Slab[T]) Len() int {
	if s.closed {
		return 0
	}
	return int(s.next) - 1
}

func (s *Slab[T]) grow() error {
	if len(s.chunks) >= MaxChunks {
		return ErrMaxChunksExceeded
	}

	if s.acquirer != nil {
		if err := s.acquirer.AcquireMemory(s.ChunkBytes()); err != nil {
			return fmt.Errorf("arena: chunk %d: %w", len(s.chunks), err)
		}
	}

	s.chunks = append(s.chunks, make([]T, s.ChunkSize()))
	return nil
}

// Alloc stores v in a fresh slot and returns its id.
// On failure the slab is unchanged.
func (s *Slab[T]) Alloc(v T) (model.RowID, error) {
	if s.closed {
		return model.InvalidRowID, ErrClosed
	}

	id := s.next
	if id == 0 {
		// Wrapped around the uint32 slot space.
		return model.InvalidRowID, ErrMaxChunksExceeded
	}

	c := int(id >> s.chunkBits)
	if c >= len(s.chunks) {
		if err := s.grow(); err != nil {
			return model.InvalidRowID, err
		}
	}

	s.chunks[c][id&s.chunkMask] = v
	s.next++

	return model.RowID(id), nil
}

// Get returns a pointer to the slot, or nil for the null slot, an
// unallocated slot, or a freed slab. The pointer stays valid until Free.
func (s *Slab[T]) Get(id model.RowID) *T {
	if !id.IsValid() || uint32(id) >= s.next || s.closed {
		return nil
	}
	return &s.chunks[uint32(id)>>s.chunkBits][uint32(id)&s.chunkMask]
}

// Clear zeroes a slot so the value it held can be collected.
func (s *Slab[T]) Clear(id model.RowID) {
	if p := s.Get(id); p != nil {
		var zero T
		*p = zero
	}
}

// Stats returns current usage.
func (s *Slab[T]) Stats() Stats {
	return Stats{
		Slots:         s.Len(),
		ActiveChunks:  len(s.chunks),
		BytesReserved: int64(len(s.chunks)) * s.ChunkBytes(),
	}
}

// Free drops every chunk and returns the accounted memory.
// The slab is unusable afterwards. Free is idempotent.
func (s *Slab[T]) Free() {
	if s.closed {
		return
	}
	if s.acquirer != nil {
		s.acquirer.ReleaseMemory(int64(len(s.chunks)) * s.ChunkBytes())
	}
	s.chunks = nil
	s.next = 0
	s.closed = true
}
