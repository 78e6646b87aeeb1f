package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/geoknn"
	"github.com/hupe1980/geoknn/model"
)

const (
	requestIDHeader = "X-Request-ID"

	defaultShutdownTimeout = 15 * time.Second
)

var errIncomplete = errors.New("incomplete")

// Options configures a Server.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ShutdownTimeout bounds the graceful shutdown in Run. Defaults to 15s.
	ShutdownTimeout time.Duration

	// IndexOptions are applied to every index the server creates,
	// including the ones built by POST /v1/tree.
	IndexOptions []geoknn.Option

	// Logger is used for request logs and handed to the index.
	// Defaults to geoknn.NoopLogger.
	Logger *geoknn.Logger

	// Registry receives the index and process metrics. Defaults to a fresh
	// registry, so several servers can live in one process.
	Registry *prometheus.Registry
}

// Server serves a single geoknn index.
type Server struct {
	opts     Options
	idx      *geoknn.SyncIndex
	engine   *gin.Engine
	validate *validator.Validate
	logger   *geoknn.Logger
}

// New builds the index and the router.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = geoknn.NoopLogger()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
		opts.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	metrics := NewPrometheusCollector(opts.Registry)

	indexOpts := append([]geoknn.Option{
		geoknn.WithLogger(opts.Logger),
		geoknn.WithMetricsCollector(metrics),
	}, opts.IndexOptions...)
	opts.IndexOptions = indexOpts

	idx, err := geoknn.NewSync(indexOpts...)
	if err != nil {
		return nil, fmt.Errorf("server: create index: %w", err)
	}

	validate, err := newValidator()
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("server: create validator: %w", err)
	}

	s := &Server{
		opts:     opts,
		idx:      idx,
		validate: validate,
		logger:   opts.Logger,
	}

	promauto.With(opts.Registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "geoknn",
		Subsystem: "index",
		Name:      "points",
		Help:      "Points currently stored",
	}, func() float64 { return float64(s.idx.Len()) })
	promauto.With(opts.Registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "geoknn",
		Subsystem: "index",
		Name:      "memory_bytes",
		Help:      "Bytes reserved for node storage",
	}, func() float64 { return float64(s.idx.Stats().MemoryUsage) })

	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/tree", s.handleResetTree)
	v1.POST("/points", s.handleInsertPoint)
	v1.GET("/neighbors", s.handleNeighbors)

	return r
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Index returns the served index.
func (s *Server) Index() *geoknn.SyncIndex { return s.idx }

// Run serves until ctx is canceled, then shuts down gracefully and closes
// the index.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = s.idx.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if cerr := s.idx.Close(); err == nil {
		err = cerr
	}
	if lerr := <-errCh; !errors.Is(lerr, http.ErrServerClosed) && err == nil {
		err = lerr
	}
	return err
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.DebugContext(c.Request.Context(), "request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Points: s.idx.Len()})
}

func (s *Server) handleResetTree(c *gin.Context) {
	if err := s.idx.Reset(s.opts.IndexOptions...); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "tree initialized"})
}

func (s *Server) handleInsertPoint(c *gin.Context) {
	var req PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.invalid(c, err)
		return
	}

	id, err := s.idx.InsertPoint(c.Request.Context(), *req.Lat, *req.Lon, req.Embedding, req.PersonID)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("point %q inserted", model.TruncateID(req.PersonID)),
		Row:     id,
	})
}

func (s *Server) handleNeighbors(c *gin.Context) {
	var q NeighborsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	if err := s.validate.Struct(&q); err != nil {
		s.invalid(c, err)
		return
	}

	recs, err := s.idx.KNearest(c.Request.Context(), model.Point(*q.Lat, *q.Lon, "query"), q.N)
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]PointResponse, len(recs))
	for i := range recs {
		out[i] = newPointResponse(&recs[i])
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) invalid(c *gin.Context, err error) {
	resp := ErrorResponse{Error: "validation failed", Code: "VALIDATION_FAILED"}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			resp.Details = append(resp.Details, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
	}
	c.JSON(http.StatusUnprocessableEntity, resp)
}

func (s *Server) fail(c *gin.Context, err error) {
	var (
		code   = http.StatusInternalServerError
		name   = "INTERNAL"
		embErr *geoknn.ErrEmbeddingLength
		crdErr *geoknn.ErrInvalidCoordinate
	)
	switch {
	case errors.Is(err, geoknn.ErrAllocation):
		code, name = http.StatusInsufficientStorage, "ALLOCATION_FAILED"
	case errors.Is(err, geoknn.ErrRateLimited):
		code, name = http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, geoknn.ErrInvalidK):
		code, name = http.StatusUnprocessableEntity, "INVALID_K"
	case errors.As(err, &embErr):
		code, name = http.StatusUnprocessableEntity, "INVALID_EMBEDDING"
	case errors.As(err, &crdErr):
		code, name = http.StatusUnprocessableEntity, "INVALID_COORDINATE"
	}

	s.logger.ErrorContext(c.Request.Context(), "request failed",
		"request_id", c.GetString("request_id"),
		"path", c.FullPath(),
		"error", err,
	)
	c.JSON(code, ErrorResponse{Error: err.Error(), Code: name})
}
