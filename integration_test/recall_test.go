package integration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geoknn"
	"github.com/hupe1980/geoknn/model"
	"github.com/hupe1980/geoknn/testutil"
)

func toResults(ns []geoknn.Neighbor) []testutil.SearchResult {
	out := make([]testutil.SearchResult, len(ns))
	for i, n := range ns {
		// rows are assigned 1..n in insertion order
		out[i] = testutil.SearchResult{Index: int(n.ID) - 1, Distance: n.Distance}
	}
	return out
}

// TestRecall checks that the tree search is exact on several data layouts.
func TestRecall(t *testing.T) {
	rng := testutil.NewRNG(42)

	datasets := []struct {
		name string
		recs []model.Record
	}{
		{"uniform", rng.UniformRecords(5000, testutil.World)},
		{"clustered", rng.ClusteredRecords(5000, 12, 0.2, testutil.World)},
		{"grid", testutil.GridRecords(60, 60)},
		{"sorted", testutil.SortedRecords(3000)},
	}

	for _, ds := range datasets {
		t.Run(ds.name, func(t *testing.T) {
			ctx := t.Context()
			idx, err := geoknn.New()
			require.NoError(t, err)
			defer idx.Close()

			_, err = idx.BulkInsert(ctx, ds.recs)
			require.NoError(t, err)

			for q := range 100 {
				probe := rng.Point(testutil.World)
				if q%2 == 0 {
					probe = ds.recs[rng.Intn(len(ds.recs))]
				}
				k := []int{1, 5, 10, 50}[q%4]

				res, err := idx.Neighbors(ctx, probe, k)
				require.NoError(t, err)
				require.Len(t, res, k)

				truth := testutil.ExactTopK(probe, ds.recs, k)
				assert.Equal(t, testutil.Distances(truth), testutil.Distances(toResults(res)), "query %d", q)
			}
		})
	}
}

// TestTreeMatchesExactMode compares the default walk with WithExact.
func TestTreeMatchesExactMode(t *testing.T) {
	ctx := t.Context()
	rng := testutil.NewRNG(9)
	recs := rng.ClusteredRecords(3000, 5, 1.0, testutil.World)

	idx, err := geoknn.New()
	require.NoError(t, err)
	defer idx.Close()
	_, err = idx.BulkInsert(ctx, recs)
	require.NoError(t, err)

	for range 50 {
		probe := rng.Point(testutil.World)

		tree, err := idx.Neighbors(ctx, probe, 7)
		require.NoError(t, err)
		exact, err := idx.Neighbors(ctx, probe, 7, geoknn.WithExact())
		require.NoError(t, err)

		assert.Equal(t, testutil.Distances(toResults(exact)), testutil.Distances(toResults(tree)))
	}
}

// TestRecallDistinctPoints checks id-level recall where no distances tie.
func TestRecallDistinctPoints(t *testing.T) {
	ctx := t.Context()
	rng := testutil.NewRNG(11)
	recs := rng.UniformRecords(4000, testutil.World)

	idx, err := geoknn.New()
	require.NoError(t, err)
	defer idx.Close()
	_, err = idx.BulkInsert(ctx, recs)
	require.NoError(t, err)

	var total float64
	const queries = 50
	for range queries {
		probe := rng.Point(testutil.World)
		res, err := idx.Neighbors(ctx, probe, 10)
		require.NoError(t, err)
		total += testutil.ComputeRecall(testutil.ExactTopK(probe, recs, 10), toResults(res))
	}
	assert.InDelta(t, 1.0, total/queries, 1e-9)
}
