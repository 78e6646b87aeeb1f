package model

import (
	"fmt"
	"math"
	"unicode/utf8"
)

const (
	// EmbeddingDim is the fixed length of a record embedding.
	EmbeddingDim = 128

	// MaxIDLen is the identifier buffer size including the terminator slot,
	// so at most MaxIDLen-1 bytes of an identifier are kept.
	MaxIDLen = 100
)

// RowID is a dense identifier for a node in a tree arena.
// It is stable for the lifetime of the tree.
type RowID uint32

// InvalidRowID marks an absent node (empty subtree, unset reference).
const InvalidRowID RowID = 0

// IsValid reports whether id refers to a node.
func (id RowID) IsValid() bool { return id != InvalidRowID }

// String returns a string representation of the RowID.
func (id RowID) String() string {
	return fmt.Sprintf("Row(%d)", uint32(id))
}

// Record is a geospatial point with an embedding payload.
//
// Only Lat and Lon take part in partitioning and distance computation;
// the embedding is carried along untouched.
type Record struct {
	Lat       float64
	Lon       float64
	Embedding [EmbeddingDim]float32
	ID        string
}

// ErrEmbeddingLength indicates an embedding with the wrong number of elements.
type ErrEmbeddingLength struct {
	Expected int
	Actual   int
}

func (e *ErrEmbeddingLength) Error() string {
	return fmt.Sprintf("embedding length mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidCoordinate indicates a latitude or longitude that is NaN or
// infinite. Such values have no place in the distance order.
type ErrInvalidCoordinate struct {
	Lat float64
	Lon float64
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("invalid coordinate (%v, %v): lat and lon must be finite", e.Lat, e.Lon)
}

// ValidateCoordinate returns *ErrInvalidCoordinate unless lat and lon are
// both finite.
func ValidateCoordinate(lat, lon float64) error {
	if !IsFinite(lat) || !IsFinite(lon) {
		return &ErrInvalidCoordinate{Lat: lat, Lon: lon}
	}
	return nil
}

// IsFinite reports whether f is neither NaN nor an infinity.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// NewRecord builds a Record, copying the embedding by value.
// Identifiers longer than MaxIDLen-1 bytes are truncated at a rune boundary.
func NewRecord(lat, lon float64, embedding []float32, id string) (Record, error) {
	if err := ValidateCoordinate(lat, lon); err != nil {
		return Record{}, err
	}
	if len(embedding) != EmbeddingDim {
		return Record{}, &ErrEmbeddingLength{Expected: EmbeddingDim, Actual: len(embedding)}
	}

	r := Record{
		Lat: lat,
		Lon: lon,
		ID:  TruncateID(id),
	}
	copy(r.Embedding[:], embedding)

	return r, nil
}

// Point builds a Record with a zero embedding, as used for query probes.
// Coordinates are not checked here; see Record.Validate.
func Point(lat, lon float64, id string) Record {
	return Record{Lat: lat, Lon: lon, ID: TruncateID(id)}
}

// TruncateID cuts id to at most MaxIDLen-1 bytes without splitting a rune.
func TruncateID(id string) string {
	const limit = MaxIDLen - 1
	if len(id) <= limit {
		return id
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(id[cut]) {
		cut--
	}
	return id[:cut]
}

// Validate checks that the record's coordinates are finite.
func (r *Record) Validate() error {
	return ValidateCoordinate(r.Lat, r.Lon)
}

// Coord returns the coordinate on the given axis (0 = Lat, 1 = Lon).
func (r *Record) Coord(axis int) (float64, bool) {
	switch axis {
	case 0:
		return r.Lat, true
	case 1:
		return r.Lon, true
	default:
		return 0, false
	}
}

// EmbeddingSlice returns a copy of the embedding as a slice.
func (r *Record) EmbeddingSlice() []float32 {
	out := make([]float32, EmbeddingDim)
	copy(out, r.Embedding[:])
	return out
}
