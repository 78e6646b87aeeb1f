package index

import (
	"testing"

	"github.com/hupe1980/geoknn/model"
	"github.com/stretchr/testify/assert"
)

func TestSortByDistance(t *testing.T) {
	results := []SearchResult{
		{ID: 4, Distance: 25},
		{ID: 2, Distance: 1},
		{ID: 9, Distance: 18},
		{ID: 3, Distance: 18},
	}

	SortByDistance(results)

	got := make([]model.RowID, len(results))
	for i, r := range results {
		got[i] = r.ID
	}
	assert.Equal(t, []model.RowID{2, 3, 9, 4}, got)
}

func TestFilter_Allows(t *testing.T) {
	var none Filter
	assert.True(t, none.Allows(1))

	even := Filter(func(id model.RowID) bool { return id%2 == 0 })
	assert.True(t, even.Allows(2))
	assert.False(t, even.Allows(3))
}

func TestErrInvalidDimension(t *testing.T) {
	err := &ErrInvalidDimension{Dimension: 0}
	assert.Equal(t, "invalid dimension: 0", err.Error())
}
