package testutil

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/geoknn/distance"
	"github.com/hupe1980/geoknn/model"
)

// SearchResult represents a search result.
// Index is the position of the record in the input slice.
type SearchResult struct {
	Index    int
	Distance float64
}

// Bounds is a latitude/longitude rectangle.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// World covers every valid coordinate.
var World = Bounds{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// Embedding returns a random embedding with model.EmbeddingDim elements.
func (r *RNG) Embedding() []float32 {
	emb := make([]float32, model.EmbeddingDim)
	r.FillUniform(emb)
	return emb
}

// Point returns a uniform random probe inside b.
func (r *RNG) Point(b Bounds) model.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return model.Point(
		b.MinLat+r.rand.Float64()*(b.MaxLat-b.MinLat),
		b.MinLon+r.rand.Float64()*(b.MaxLon-b.MinLon),
		"probe",
	)
}

// UniformRecords generates num records uniformly distributed inside b,
// with ids "r0", "r1", ...
func (r *RNG) UniformRecords(num int, b Bounds) []model.Record {
	recs := make([]model.Record, num)
	for i := range recs {
		recs[i] = r.Point(b)
		recs[i].ID = fmt.Sprintf("r%d", i)
		r.FillUniform(recs[i].Embedding[:])
	}
	return recs
}

// ClusteredRecords generates num records around clusters random centers,
// each coordinate jittered by a normal with standard deviation spread.
func (r *RNG) ClusteredRecords(num, clusters int, spread float64, b Bounds) []model.Record {
	centers := make([]model.Record, clusters)
	for i := range centers {
		centers[i] = r.Point(b)
	}

	recs := make([]model.Record, num)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range recs {
		c := centers[r.rand.Intn(clusters)]
		recs[i] = model.Point(
			c.Lat+r.rand.NormFloat64()*spread,
			c.Lon+r.rand.NormFloat64()*spread,
			fmt.Sprintf("c%d", i),
		)
	}
	return recs
}

// GridRecords generates a rows x cols integer grid, which is rich in ties on
// both axes.
func GridRecords(rows, cols int) []model.Record {
	recs := make([]model.Record, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			recs = append(recs, model.Point(float64(i), float64(j), fmt.Sprintf("g%d_%d", i, j)))
		}
	}
	return recs
}

// SortedRecords generates num records on a diagonal in ascending order, the
// worst case insertion order for an unbalanced tree.
func SortedRecords(num int) []model.Record {
	recs := make([]model.Record, num)
	for i := range recs {
		recs[i] = model.Point(float64(i), float64(i), fmt.Sprintf("s%d", i))
	}
	return recs
}

// ExactTopK computes the k nearest records to probe by linear scan, sorted
// ascending by distance (ties by index).
func ExactTopK(probe model.Record, recs []model.Record, k int) []SearchResult {
	var space distance.Planar

	all := make([]SearchResult, len(recs))
	for i := range recs {
		all[i] = SearchResult{Index: i, Distance: space.Distance(&probe, &recs[i])}
	}

	slices.SortFunc(all, func(a, b SearchResult) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	if k < len(all) {
		all = all[:max(k, 0)]
	}
	return all
}

// Distances returns the distances of results, sorted ascending. Comparing
// sorted distance lists checks top-k equivalence while ignoring tie order.
func Distances(results []SearchResult) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = r.Distance
	}
	slices.Sort(out)
	return out
}

// ComputeRecall computes recall@k by comparing approximate results against ground truth.
func ComputeRecall(groundTruth, approximate []SearchResult) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truthSet := make(map[int]struct{}, k)
	for i := range k {
		truthSet[groundTruth[i].Index] = struct{}{}
	}

	hits := 0
	for _, r := range approximate {
		if _, ok := truthSet[r.Index]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}
