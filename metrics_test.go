package geoknn_test

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geoknn"
	"github.com/hupe1980/geoknn/model"
)

func TestBasicMetricsCollector(t *testing.T) {
	ctx := t.Context()
	metrics := &geoknn.BasicMetricsCollector{}
	idx := newIndex(t, geoknn.WithMetricsCollector(metrics))

	_, err := idx.Insert(ctx, points[0])
	require.NoError(t, err)
	_, err = idx.BulkInsert(ctx, points[1:])
	require.NoError(t, err)

	_, err = idx.KNearest(ctx, points[0], 2)
	require.NoError(t, err)
	_, err = idx.KNearest(ctx, points[0], -1)
	require.Error(t, err)
	_, err = idx.BatchKNearest(ctx, points[:3], 1)
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.InsertCount)
	assert.Zero(t, stats.InsertErrors)
	assert.Equal(t, int64(1), stats.BulkInsertCount)
	assert.Equal(t, int64(len(points)-1), stats.BulkInsertItems)
	assert.Zero(t, stats.BulkInsertFailed)
	// two direct searches plus one per batch probe
	assert.Equal(t, int64(5), stats.SearchCount)
	assert.Equal(t, int64(1), stats.SearchErrors)
	assert.Equal(t, int64(1), stats.BatchCount)
	assert.Equal(t, int64(3), stats.BatchQueries)
}

func TestBasicMetricsCollector_BulkInsertStopsEarly(t *testing.T) {
	metrics := &geoknn.BasicMetricsCollector{}
	idx := newIndex(t, geoknn.WithMetricsCollector(metrics))

	recs := []model.Record{
		model.Point(1, 1, "ok"),
		model.Point(math.NaN(), 0, "bad"),
		model.Point(2, 2, "skipped"),
		model.Point(3, 3, "skipped"),
	}
	n, err := idx.BulkInsert(t.Context(), recs)
	require.Error(t, err)
	assert.Equal(t, 1, n)

	stats := metrics.GetStats()
	assert.Equal(t, int64(len(recs)), stats.BulkInsertItems)
	// the failing record and the two never tried
	assert.Equal(t, int64(3), stats.BulkInsertFailed)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := geoknn.NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	idx := newIndex(t, geoknn.WithLogger(logger))
	ctx := t.Context()

	_, err := idx.Insert(ctx, model.Point(1, 1, "x"))
	require.NoError(t, err)
	_, err = idx.KNearest(ctx, model.Point(1, 1, "q"), -3)
	require.Error(t, err)
	require.NoError(t, idx.Close())

	out := buf.String()
	assert.Contains(t, out, `"msg":"insert completed"`)
	assert.Contains(t, out, `"row":1`)
	assert.Contains(t, out, `"msg":"search failed"`)
	assert.Contains(t, out, `"k":-3`)
	assert.Contains(t, out, `"msg":"index closed"`)
	assert.Contains(t, out, `"released":1`)
}

func TestNoopLogger(t *testing.T) {
	logger := geoknn.NoopLogger()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
	logger.WithK(3).WithCount(2).LogSearch(t.Context(), 3, 0, nil)
}
