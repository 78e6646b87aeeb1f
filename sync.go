package geoknn

import (
	"context"
	"sync"

	"github.com/hupe1980/geoknn/model"
)

// SyncIndex guards an Index with a read/write lock. Inserts and Close take
// the write lock, searches share the read lock.
type SyncIndex struct {
	mu  sync.RWMutex
	idx *Index
}

// NewSync creates an empty index wrapped in a SyncIndex.
func NewSync(optFns ...Option) (*SyncIndex, error) {
	idx, err := New(optFns...)
	if err != nil {
		return nil, err
	}
	return &SyncIndex{idx: idx}, nil
}

// Synchronized wraps an existing index. The caller must stop using idx directly.
func Synchronized(idx *Index) *SyncIndex {
	return &SyncIndex{idx: idx}
}

func (s *SyncIndex) Insert(ctx context.Context, rec model.Record) (model.RowID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Insert(ctx, rec)
}

func (s *SyncIndex) InsertPoint(ctx context.Context, lat, lon float64, embedding []float32, id string) (model.RowID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.InsertPoint(ctx, lat, lon, embedding, id)
}

// BulkInsert holds the write lock for the whole batch.
func (s *SyncIndex) BulkInsert(ctx context.Context, recs []model.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.BulkInsert(ctx, recs)
}

func (s *SyncIndex) KNearest(ctx context.Context, probe model.Record, k int, optFns ...SearchOption) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.KNearest(ctx, probe, k, optFns...)
}

func (s *SyncIndex) Neighbors(ctx context.Context, probe model.Record, k int, optFns ...SearchOption) ([]Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.Neighbors(ctx, probe, k, optFns...)
}

func (s *SyncIndex) BatchKNearest(ctx context.Context, probes []model.Record, k int, optFns ...SearchOption) ([][]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.BatchKNearest(ctx, probes, k, optFns...)
}

func (s *SyncIndex) Get(id model.RowID) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.Get(id)
}

func (s *SyncIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.Len()
}

func (s *SyncIndex) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.Stats()
}

func (s *SyncIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Close()
}

// Reset closes the current index and replaces it with an empty one built
// from optFns, atomically with respect to other callers. The old index is
// released first so its memory budget is available to the new one. If the
// new index cannot be built, the closed one stays in place.
func (s *SyncIndex) Reset(optFns ...Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idx.Close(); err != nil {
		return err
	}

	fresh, err := New(optFns...)
	if err != nil {
		return err
	}
	s.idx = fresh
	return nil
}
