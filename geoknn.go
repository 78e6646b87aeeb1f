package geoknn

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/geoknn/index"
	"github.com/hupe1980/geoknn/index/kdtree"
	"github.com/hupe1980/geoknn/internal/resource"
	"github.com/hupe1980/geoknn/model"
)

// Index is a geospatial k-nearest-neighbor index over model.Record values.
//
// Index is not safe for concurrent writers. Searches only read, so any number
// of them may run together as long as no insert or Close runs at the same
// time. Use SyncIndex when callers cannot guarantee that.
type Index struct {
	tree    *kdtree.Tree[model.Record]
	rc      *resource.Controller
	logger  *Logger
	metrics MetricsCollector
}

// Neighbor is a search hit with its row and distance.
type Neighbor struct {
	ID       model.RowID
	Distance float64
	Record   model.Record
}

// Stats describes the current state of an Index.
type Stats struct {
	Nodes         int
	Height        int
	Chunks        int
	BytesReserved int64
	MemoryUsage   int64
	MemoryLimit   int64
}

// SearchOptions configures a single search.
type SearchOptions struct {
	// Filter restricts results to row ids contained in the bitmap.
	Filter *roaring.Bitmap

	// FilterFunc restricts results to rows for which it returns true.
	// Combined with Filter, both must allow a row.
	FilterFunc func(id model.RowID) bool

	// Exact scans every row instead of walking the tree.
	Exact bool
}

// SearchOption configures a search.
type SearchOption func(o *SearchOptions)

// WithFilter restricts results to the row ids in bm.
func WithFilter(bm *roaring.Bitmap) SearchOption {
	return func(o *SearchOptions) {
		o.Filter = bm
	}
}

// WithFilterFunc restricts results to rows accepted by fn.
func WithFilterFunc(fn func(id model.RowID) bool) SearchOption {
	return func(o *SearchOptions) {
		o.FilterFunc = fn
	}
}

// WithExact forces a brute-force scan.
func WithExact() SearchOption {
	return func(o *SearchOptions) {
		o.Exact = true
	}
}

func (o *SearchOptions) filter() index.Filter {
	bm, fn := o.Filter, o.FilterFunc
	switch {
	case bm == nil && fn == nil:
		return nil
	case bm == nil:
		return fn
	case fn == nil:
		return func(id model.RowID) bool { return bm.Contains(uint32(id)) }
	default:
		return func(id model.RowID) bool { return bm.Contains(uint32(id)) && fn(id) }
	}
}

// New creates an empty index. Without options it partitions on latitude and
// longitude and ranks by squared planar distance.
func New(optFns ...Option) (*Index, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.logger == nil {
		opts.logger = NoopLogger()
	}
	if opts.metricsCollector == nil {
		opts.metricsCollector = NoopMetricsCollector{}
	}

	rc := opts.controller
	if rc == nil {
		rc = resource.NewController(opts.resources)
	}

	tree, err := kdtree.New(opts.space, func(o *kdtree.Options) {
		o.MemoryAcquirer = rc
		o.ChunkSize = opts.chunkSize
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &Index{
		tree:    tree,
		rc:      rc,
		logger:  opts.logger,
		metrics: opts.metricsCollector,
	}, nil
}

// Insert adds rec to the index and returns its row id. The record is copied.
//
// Records with a NaN or infinite coordinate are rejected with
// *ErrInvalidCoordinate. With WithInsertRate, Insert does not wait for a
// token and fails with ErrRateLimited instead. On any error the index is
// left unchanged.
func (idx *Index) Insert(ctx context.Context, rec model.Record) (model.RowID, error) {
	start := time.Now()

	var (
		id  model.RowID
		err error
	)
	if idx.rc.TryAcquireInsert() {
		id, err = idx.insert(&rec)
	} else {
		err = ErrRateLimited
	}

	idx.metrics.RecordInsert(time.Since(start), err)
	idx.logger.LogInsert(ctx, id, err)

	return id, err
}

func (idx *Index) insert(rec *model.Record) (model.RowID, error) {
	if err := rec.Validate(); err != nil {
		return model.InvalidRowID, translateError(err)
	}
	id, err := idx.tree.Insert(*rec)
	return id, translateError(err)
}

// InsertPoint builds a record from its parts and inserts it. The embedding
// must have exactly model.EmbeddingDim elements and id is truncated to fit.
func (idx *Index) InsertPoint(ctx context.Context, lat, lon float64, embedding []float32, id string) (model.RowID, error) {
	rec, err := model.NewRecord(lat, lon, embedding, id)
	if err != nil {
		err = translateError(err)
		idx.logger.LogInsert(ctx, model.InvalidRowID, err)
		return model.InvalidRowID, err
	}

	return idx.Insert(ctx, rec)
}

// BulkInsert inserts recs in order, pacing itself by the configured insert
// rate. It stops at the first error and returns how many records were
// inserted before it.
func (idx *Index) BulkInsert(ctx context.Context, recs []model.Record) (int, error) {
	start := time.Now()

	inserted := 0
	var err error
	for i := range recs {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = idx.rc.AcquireInsert(ctx); err != nil {
			break
		}
		if _, err = idx.insert(&recs[i]); err != nil {
			break
		}
		inserted++
	}

	idx.metrics.RecordBulkInsert(len(recs), len(recs)-inserted, time.Since(start))
	idx.logger.LogBulkInsert(ctx, len(recs), inserted, err)

	return inserted, err
}

func (idx *Index) search(probe model.Record, k int, optFns []SearchOption) ([]index.SearchResult, error) {
	var opts SearchOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := probe.Validate(); err != nil {
		return nil, err
	}

	if opts.Exact {
		return idx.tree.BruteSearch(probe, k, opts.filter())
	}
	return idx.tree.Search(probe, k, opts.filter())
}

// Neighbors returns up to k rows closest to probe together with their
// distances. Results come in the order they sit in the internal max-heap:
// the farthest retained neighbor first, the rest unsorted. Use
// index.SortByDistance for a ranked list.
//
// k == 0 and an empty index both yield an empty result. k < 0 is ErrInvalidK
// and a probe with a non-finite coordinate is *ErrInvalidCoordinate.
func (idx *Index) Neighbors(ctx context.Context, probe model.Record, k int, optFns ...SearchOption) ([]Neighbor, error) {
	start := time.Now()

	results, err := idx.search(probe, k, optFns)
	err = translateError(err)

	var out []Neighbor
	if err == nil {
		out = make([]Neighbor, 0, len(results))
		for _, r := range results {
			rec, _ := idx.tree.Get(r.ID)
			out = append(out, Neighbor{ID: r.ID, Distance: r.Distance, Record: rec})
		}
	}

	idx.metrics.RecordSearch(k, time.Since(start), err)
	idx.logger.LogSearch(ctx, k, len(out), err)

	return out, err
}

// KNearest returns copies of up to k records closest to probe, in the same
// order as Neighbors.
func (idx *Index) KNearest(ctx context.Context, probe model.Record, k int, optFns ...SearchOption) ([]model.Record, error) {
	neighbors, err := idx.Neighbors(ctx, probe, k, optFns...)
	if err != nil {
		return nil, err
	}

	recs := make([]model.Record, len(neighbors))
	for i := range neighbors {
		recs[i] = neighbors[i].Record
	}
	return recs, nil
}

// BatchKNearest runs KNearest for every probe concurrently. The number of
// searches in flight is bounded by the query slots of the resource controller.
// The result slice is index-aligned with probes.
//
// The first failing search cancels the rest and its error is returned.
func (idx *Index) BatchKNearest(ctx context.Context, probes []model.Record, k int, optFns ...SearchOption) ([][]model.Record, error) {
	start := time.Now()

	out := make([][]model.Record, len(probes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(int(idx.rc.MaxConcurrentQueries()))

	for i := range probes {
		g.Go(func() error {
			if err := idx.rc.AcquireQuery(gctx); err != nil {
				return err
			}
			defer idx.rc.ReleaseQuery()

			recs, err := idx.KNearest(gctx, probes[i], k, optFns...)
			if err != nil {
				return err
			}
			out[i] = recs
			return nil
		})
	}

	err := g.Wait()

	idx.metrics.RecordBatchSearch(len(probes), k, time.Since(start), err)
	idx.logger.LogBatchSearch(ctx, len(probes), k, err)

	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a copy of the record stored at id.
func (idx *Index) Get(id model.RowID) (model.Record, error) {
	if idx.tree.Closed() {
		return model.Record{}, ErrClosed
	}
	rec, ok := idx.tree.Get(id)
	if !ok {
		return model.Record{}, ErrNotFound
	}
	return rec, nil
}

// Len returns the number of records in the index.
func (idx *Index) Len() int {
	return idx.tree.Len()
}

// Stats returns a snapshot of the index shape and memory accounting.
func (idx *Index) Stats() Stats {
	ts := idx.tree.Stats()
	return Stats{
		Nodes:         ts.Nodes,
		Height:        ts.Height,
		Chunks:        ts.Chunks,
		BytesReserved: ts.BytesReserved,
		MemoryUsage:   idx.rc.MemoryUsage(),
		MemoryLimit:   idx.rc.MemoryLimit(),
	}
}

// Close releases every record and the node storage. It is safe to call more
// than once; subsequent operations return ErrClosed.
func (idx *Index) Close() error {
	if idx == nil || idx.tree.Closed() {
		return nil
	}

	start := time.Now()
	released := idx.tree.Close()

	idx.metrics.RecordTeardown(released, time.Since(start))
	idx.logger.LogTeardown(context.Background(), released)

	return nil
}
