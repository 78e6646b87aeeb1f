package testutil

import (
	"testing"

	"github.com/hupe1980/geoknn/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformRecords(t *testing.T) {
	rng := NewRNG(4711)

	recs := rng.UniformRecords(64, World)

	require.Len(t, recs, 64)
	for _, r := range recs {
		assert.GreaterOrEqual(t, r.Lat, -90.0)
		assert.Less(t, r.Lat, 90.0)
		assert.GreaterOrEqual(t, r.Lon, -180.0)
		assert.Less(t, r.Lon, 180.0)
	}
	assert.Equal(t, "r3", recs[3].ID)
}

func TestRNG_Reset(t *testing.T) {
	rng := NewRNG(7)
	a := rng.UniformRecords(4, World)
	rng.Reset()
	b := rng.UniformRecords(4, World)

	assert.Equal(t, a, b)
	assert.Equal(t, int64(7), rng.Seed())
}

func TestClusteredRecords(t *testing.T) {
	rng := NewRNG(1)
	recs := rng.ClusteredRecords(100, 3, 0.1, World)
	assert.Len(t, recs, 100)
}

func TestGridAndSortedRecords(t *testing.T) {
	assert.Len(t, GridRecords(3, 4), 12)

	s := SortedRecords(5)
	assert.Equal(t, 4.0, s[4].Lat)
	assert.Equal(t, "s4", s[4].ID)
}

func TestExactTopK(t *testing.T) {
	recs := []model.Record{
		model.Point(10, 10, "a"),
		model.Point(20, 20, "b"),
		model.Point(1, 10, "c"),
		model.Point(3, 5, "d"),
		model.Point(7, 15, "e"),
		model.Point(4, 11, "f"),
	}

	got := ExactTopK(model.Point(7, 14, "q"), recs, 3)
	assert.Equal(t, []SearchResult{
		{Index: 4, Distance: 1},
		{Index: 5, Distance: 18},
		{Index: 0, Distance: 25},
	}, got)

	assert.Len(t, ExactTopK(model.Point(0, 0, "q"), recs, 100), 6)
	assert.Empty(t, ExactTopK(model.Point(0, 0, "q"), recs, 0))
}

func TestComputeRecall(t *testing.T) {
	truth := []SearchResult{{Index: 1}, {Index: 2}, {Index: 3}, {Index: 4}}
	approx := []SearchResult{{Index: 1}, {Index: 2}, {Index: 9}, {Index: 4}}

	assert.InDelta(t, 0.75, ComputeRecall(truth, approx), 1e-9)
	assert.Equal(t, 1.0, ComputeRecall(nil, nil))
	assert.Equal(t, 0.0, ComputeRecall(truth, nil))
}

func TestDistances(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, Distances([]SearchResult{{Distance: 3}, {Distance: 1}, {Distance: 2}}))
}
