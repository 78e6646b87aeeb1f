package kdtree

import (
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/geoknn/distance"
	"github.com/hupe1980/geoknn/index"
	"github.com/hupe1980/geoknn/model"
	"github.com/hupe1980/geoknn/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(tree *Tree[model.Record], results []index.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		key, ok := tree.Get(r.ID)
		if ok {
			out[i] = key.ID
		}
	}
	return out
}

func toExact(results []index.SearchResult) []testutil.SearchResult {
	out := make([]testutil.SearchResult, len(results))
	for i, r := range results {
		out[i] = testutil.SearchResult{Index: int(r.ID) - 1, Distance: r.Distance}
	}
	return out
}

func TestSearch_Scenario(t *testing.T) {
	tree := newPlanar(t)
	insertAll(t, tree, scenario)

	res, err := tree.Search(model.Point(7, 14, "query"), 3, nil)
	require.NoError(t, err)

	// Heap storage order: worst first.
	assert.Equal(t, []string{"a", "f", "e"}, ids(tree, res))
	assert.Equal(t, []float64{25, 18, 1}, []float64{res[0].Distance, res[1].Distance, res[2].Distance})

	exact := testutil.ExactTopK(model.Point(7, 14, "query"), scenario, 3)
	assert.Equal(t, testutil.Distances(exact), testutil.Distances(toExact(res)))
}

func TestSearch_SingleNode(t *testing.T) {
	tree := newPlanar(t)
	id, err := tree.Insert(model.Point(-22.2, -54.8, "dourados"))
	require.NoError(t, err)

	res, err := tree.Search(model.Point(-22.2, -54.8, "query"), 1, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, id, res[0].ID)
	assert.Zero(t, res[0].Distance)
}

func TestSearch_EdgeCases(t *testing.T) {
	probe := model.Point(0, 0, "q")

	t.Run("empty tree", func(t *testing.T) {
		tree := newPlanar(t)
		for _, k := range []int{0, 1, 10} {
			res, err := tree.Search(probe, k, nil)
			require.NoError(t, err)
			assert.NotNil(t, res)
			assert.Empty(t, res)
		}
	})

	tree := newPlanar(t)
	insertAll(t, tree, scenario)

	t.Run("k zero", func(t *testing.T) {
		res, err := tree.Search(probe, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("k larger than tree", func(t *testing.T) {
		res, err := tree.Search(probe, 100, nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e", "f"}, ids(tree, res))
	})

	t.Run("negative k", func(t *testing.T) {
		_, err := tree.Search(probe, -1, nil)
		assert.ErrorIs(t, err, index.ErrInvalidK)
		_, err = tree.BruteSearch(probe, -1, nil)
		assert.ErrorIs(t, err, index.ErrInvalidK)
	})
}

func TestSearch_MatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(4711)

	datasets := []struct {
		name string
		recs []model.Record
	}{
		{"uniform", rng.UniformRecords(2000, testutil.World)},
		{"clustered", rng.ClusteredRecords(2000, 6, 0.5, testutil.World)},
		{"grid", testutil.GridRecords(30, 30)},
		{"sorted", testutil.SortedRecords(500)},
	}

	for _, ds := range datasets {
		name, recs := ds.name, ds.recs
		t.Run(name, func(t *testing.T) {
			tree := newPlanar(t)
			insertAll(t, tree, recs)

			for q := 0; q < 25; q++ {
				probe := rng.Point(testutil.World)
				if name == "grid" || name == "sorted" {
					probe = model.Point(float64(rng.Intn(30)), float64(rng.Intn(30)), "probe")
				}

				for _, k := range []int{1, 3, 10, 50} {
					got, err := tree.Search(probe, k, nil)
					require.NoError(t, err)
					require.Len(t, got, min(k, len(recs)))

					exact := testutil.ExactTopK(probe, recs, k)
					require.Equal(t, testutil.Distances(exact), testutil.Distances(toExact(got)),
						"probe=%v k=%d", probe, k)

					brute, err := tree.BruteSearch(probe, k, nil)
					require.NoError(t, err)
					require.Equal(t, testutil.Distances(toExact(brute)), testutil.Distances(toExact(got)))

					assert.InDelta(t, 1.0, testutil.ComputeRecall(exact, toExact(got)), 1e-9+tieSlack(exact, k))
				}
			}
		})
	}
}

// tieSlack tolerates recall loss when the k-th distance is tied, in which
// case either member of the tie is a correct answer.
func tieSlack(exact []testutil.SearchResult, k int) float64 {
	if len(exact) < k || k == 0 {
		return 0
	}
	kth := exact[len(exact)-1].Distance
	tied := 0
	for _, r := range exact {
		if r.Distance == kth {
			tied++
		}
	}
	return float64(tied) / float64(k)
}

func TestSearch_Idempotent(t *testing.T) {
	rng := testutil.NewRNG(5)
	tree := newPlanar(t)
	insertAll(t, tree, testutil.GridRecords(12, 12))

	for i := 0; i < 20; i++ {
		probe := rng.Point(testutil.Bounds{MaxLat: 12, MaxLon: 12})
		first, err := tree.Search(probe, 7, nil)
		require.NoError(t, err)
		second, err := tree.Search(probe, 7, nil)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

// deepTreeSize is the number of sorted points for the list-shaped tree test.
// Building it is quadratic, so the default stays small; set GEOKNN_STRESS_N
// (for example to 100000) to run the documented stress limit.
func deepTreeSize(t *testing.T) int {
	t.Helper()
	v := os.Getenv("GEOKNN_STRESS_N")
	if v == "" {
		return 10_000
	}
	n, err := strconv.Atoi(v)
	require.NoError(t, err, "GEOKNN_STRESS_N")
	require.GreaterOrEqual(t, n, 2, "GEOKNN_STRESS_N")
	return n
}

func TestSearch_SortedInsertionDeepTree(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping deep tree in short mode")
	}

	n := deepTreeSize(t)
	tree := newPlanar(t)
	for _, r := range testutil.SortedRecords(n) {
		_, err := tree.Insert(r)
		require.NoError(t, err)
	}
	assert.Equal(t, n, tree.Height())

	last := float64(n - 1)
	res, err := tree.Search(model.Point(last, last, "q"), 2, nil)
	require.NoError(t, err)
	index.SortByDistance(res)
	assert.Equal(t, []float64{0, 2}, []float64{res[0].Distance, res[1].Distance})

	visited := 0
	tree.Walk(func(model.RowID, model.Record, int) bool { visited++; return true })
	assert.Equal(t, n, visited)

	assert.Equal(t, n, tree.Close())
}

func TestSearch_Filter(t *testing.T) {
	rng := testutil.NewRNG(11)
	recs := rng.UniformRecords(1000, testutil.World)
	tree := newPlanar(t)
	insertAll(t, tree, recs)

	allowed := roaring.New()
	var subset []model.Record
	for i := range recs {
		if i%7 == 0 {
			allowed.Add(uint32(i + 1))
			subset = append(subset, recs[i])
		}
	}
	filter := index.Filter(func(id model.RowID) bool { return allowed.Contains(uint32(id)) })

	for q := 0; q < 20; q++ {
		probe := rng.Point(testutil.World)

		got, err := tree.Search(probe, 5, filter)
		require.NoError(t, err)
		for _, r := range got {
			assert.True(t, allowed.Contains(uint32(r.ID)))
		}

		exact := testutil.ExactTopK(probe, subset, 5)
		assert.Equal(t, testutil.Distances(exact), testutil.Distances(toExact(got)))

		brute, err := tree.BruteSearch(probe, 5, filter)
		require.NoError(t, err)
		assert.Equal(t, testutil.Distances(toExact(brute)), testutil.Distances(toExact(got)))
	}

	none := index.Filter(func(model.RowID) bool { return false })
	got, err := tree.Search(recs[0], 5, none)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func BenchmarkSearch(b *testing.B) {
	for _, n := range []int{1_000, 100_000} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			rng := testutil.NewRNG(1)
			tree, err := New[model.Record](distance.Planar{})
			require.NoError(b, err)
			for _, r := range rng.UniformRecords(n, testutil.World) {
				if _, err := tree.Insert(r); err != nil {
					b.Fatal(err)
				}
			}
			probes := make([]model.Record, 256)
			for i := range probes {
				probes[i] = rng.Point(testutil.World)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := tree.Search(probes[i%len(probes)], 10, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
