package geoknn

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/geoknn/model"
)

// Logger wraps slog.Logger with index-specific fields.
// Field names are kept stable so log pipelines can key on them.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable
	}))
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, id model.RowID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"row", uint32(id),
		)
	}
}

// LogBulkInsert logs a bulk insert operation.
func (l *Logger) LogBulkInsert(ctx context.Context, count, inserted int, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "bulk insert failed",
			"total", count,
			"inserted", inserted,
			"error", err,
		)
	case inserted < count:
		l.WarnContext(ctx, "bulk insert incomplete",
			"total", count,
			"inserted", inserted,
		)
	default:
		l.InfoContext(ctx, "bulk insert completed",
			"count", count,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogBatchSearch logs a batch of searches.
func (l *Logger) LogBatchSearch(ctx context.Context, queries, k int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch search failed",
			"queries", queries,
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "batch search completed",
			"queries", queries,
			"k", k,
		)
	}
}

// LogTeardown logs the release of an index.
func (l *Logger) LogTeardown(ctx context.Context, released int) {
	l.InfoContext(ctx, "index closed",
		"released", released,
	)
}
