package distance

import (
	"fmt"

	"github.com/hupe1980/geoknn/model"
)

// Ordering is the result of a single-axis comparison.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "Less"
	case Equal:
		return "Equal"
	case Greater:
		return "Greater"
	default:
		return fmt.Sprintf("Unknown(%d)", int(o))
	}
}

// ErrInvalidAxis is returned when an axis outside [0, Dims) is requested.
type ErrInvalidAxis struct {
	Axis int
	Dims int
}

func (e *ErrInvalidAxis) Error() string {
	return fmt.Sprintf("invalid axis %d for %d-dimensional space", e.Axis, e.Dims)
}

// Space is the key capability a spatial tree partitions and searches over.
//
// AxisDistance must never exceed Distance for any pair of keys lying on
// opposite sides of the axis-aligned hyperplane through b; the tree prunes
// with it.
type Space[K any] interface {
	// Dims returns the number of partitioning axes.
	Dims() int

	// Compare orders a against b on the given axis.
	Compare(a, b *K, axis int) (Ordering, error)

	// Distance returns the distance between a and b.
	Distance(a, b *K) float64

	// AxisDistance returns the distance from a to the hyperplane through b
	// orthogonal to axis, in the same units as Distance.
	AxisDistance(a, b *K, axis int) float64
}

func order(diff float64) Ordering {
	switch {
	case diff > 0:
		return Greater
	case diff < 0:
		return Less
	default:
		return Equal
	}
}

// Compile-time checks.
var (
	_ Space[model.Record] = Planar{}
	_ Space[[]float64]    = Euclidean{}
)

// Planar is the two-axis squared Euclidean space over Record coordinates.
// The embedding is ignored.
type Planar struct{}

// Dims implements Space.
func (Planar) Dims() int { return 2 }

// Compare implements Space.
func (Planar) Compare(a, b *model.Record, axis int) (Ordering, error) {
	av, ok := a.Coord(axis)
	if !ok {
		return Equal, &ErrInvalidAxis{Axis: axis, Dims: 2}
	}
	bv, _ := b.Coord(axis)
	return order(av - bv), nil
}

// Distance implements Space.
func (Planar) Distance(a, b *model.Record) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return dLat*dLat + dLon*dLon
}

// AxisDistance implements Space. An invalid axis yields 0.
func (Planar) AxisDistance(a, b *model.Record, axis int) float64 {
	av, ok := a.Coord(axis)
	if !ok {
		return 0
	}
	bv, _ := b.Coord(axis)
	d := av - bv
	return d * d
}

// Euclidean is the N-axis squared Euclidean space over []float64 points.
// Points shorter than N are a caller error.
type Euclidean struct {
	N int
}

// Dims implements Space.
func (e Euclidean) Dims() int { return e.N }

// Compare implements Space.
func (e Euclidean) Compare(a, b *[]float64, axis int) (Ordering, error) {
	if axis < 0 || axis >= e.N {
		return Equal, &ErrInvalidAxis{Axis: axis, Dims: e.N}
	}
	return order((*a)[axis] - (*b)[axis]), nil
}

// Distance implements Space.
func (e Euclidean) Distance(a, b *[]float64) float64 {
	var sum float64
	for i := 0; i < e.N; i++ {
		d := (*a)[i] - (*b)[i]
		sum += d * d
	}
	return sum
}

// AxisDistance implements Space. An invalid axis yields 0.
func (e Euclidean) AxisDistance(a, b *[]float64, axis int) float64 {
	if axis < 0 || axis >= e.N {
		return 0
	}
	d := (*a)[axis] - (*b)[axis]
	return d * d
}
