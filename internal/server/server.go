// Package server exposes the analysis engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gzhole/scriptshield/internal/analyzer"
	"github.com/gzhole/scriptshield/internal/logger"
	"github.com/gzhole/scriptshield/internal/store"
)

const (
	serviceName     = "scriptshield"
	defaultFileName = "script"

	// bodyOverhead is the JSON envelope allowance on top of twice the
	// engine's size limit, which covers escaped script content.
	bodyOverhead = 1 << 20
)

// ResultStore persists serialized results by analysis id.
type ResultStore interface {
	Put(id, sha256 string, data []byte) error
	Get(id string) ([]byte, error)
	IDsByDigest(sha256 string) ([]string, error)
}

// AuditSink receives one event per completed analysis.
type AuditSink interface {
	Log(event logger.AuditEvent) error
}

// Options configures a Server. Engine and Logger are required; Store and
// Audit may be nil.
type Options struct {
	Engine         *analyzer.Engine
	Store          ResultStore
	Audit          AuditSink
	Logger         *zap.Logger
	RateLimitRPS   float64
	RateLimitBurst int
	Timeout        time.Duration
}

// Server is the HTTP front end of the engine.
type Server struct {
	engine  *analyzer.Engine
	store   ResultStore
	audit   AuditSink
	logger  *zap.Logger
	timeout time.Duration
	router  *gin.Engine
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	s := &Server{
		engine:  opts.Engine,
		store:   opts.Store,
		audit:   opts.Audit,
		logger:  opts.Logger,
		timeout: opts.Timeout,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	router := gin.New()
	_ = router.SetTrustedProxies(nil)
	router.Use(gin.Recovery())
	router.Use(PrometheusMiddleware())
	router.Use(requestLogger(s.logger))

	router.GET("/health", s.health)
	router.GET("/metrics", MetricsHandler())

	api := router.Group("/api")
	api.Use(RateLimiter(opts.RateLimitRPS, opts.RateLimitBurst))
	s.Register(api)

	s.router = router
	return s
}

// Register mounts the API routes on rg.
func (s *Server) Register(rg *gin.RouterGroup) {
	rg.POST("/analyze", s.analyze)
	rg.GET("/results/:id", s.getResult)
	rg.GET("/digests/:sha256", s.resultsByDigest)
	rg.GET("/catalog", s.catalog)
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  serviceName,
		"families": s.engine.Catalog().Len(),
	})
}

type analyzeRequest struct {
	ScriptContent *string `json:"script_content"`
	FileName      string  `json:"file_name"`
}

func (s *Server) analyze(c *gin.Context) {
	limit := 2*s.engine.MaxSize() + bodyOverhead
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return
	}

	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}
	if req.ScriptContent == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "script_content is required"})
		return
	}
	name := req.FileName
	if name == "" {
		name = defaultFileName
	}

	ctx := c.Request.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	id := uuid.New().String()
	start := time.Now()
	res, err := s.engine.AnalyzeBytes(ctx, name, []byte(*req.ScriptContent))
	elapsed := time.Since(start)
	switch {
	case errors.Is(err, analyzer.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "analysis timed out"})
		return
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis cancelled"})
		return
	}

	RecordAnalysis(res, elapsed)

	data, err := json.Marshal(res)
	if err != nil {
		s.logger.Error("marshal result", zap.String("analysis_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if s.store != nil {
		if err := s.store.Put(id, res.SHA256(), data); err != nil {
			s.logger.Warn("store result", zap.String("analysis_id", id), zap.Error(err))
		}
	}
	if s.audit != nil {
		if err := s.audit.Log(logger.NewAnalysisEvent(id, "http", res, elapsed)); err != nil {
			s.logger.Warn("audit log", zap.String("analysis_id", id), zap.Error(err))
		}
	}

	s.logger.Info("analysis complete",
		zap.String("analysis_id", id),
		zap.String("file_name", name),
		zap.String("category", string(res.RiskAssessment.Category)),
		zap.Float64("risk_score", res.RiskAssessment.RiskScorePercentage),
		zap.Duration("elapsed", elapsed),
	)

	c.Header("X-Analysis-ID", id)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Server) getResult(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis id"})
		return
	}
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "result store disabled"})
		return
	}

	data, err := s.store.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}
	if err != nil {
		s.logger.Error("load result", zap.String("analysis_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Header("X-Analysis-ID", id)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Server) resultsByDigest(c *gin.Context) {
	digest := strings.ToLower(c.Param("sha256"))
	if !sha256Pattern.MatchString(digest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sha256 digest"})
		return
	}
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "result store disabled"})
		return
	}

	ids, err := s.store.IDsByDigest(digest)
	if err != nil {
		s.logger.Error("lookup digest", zap.String("sha256", digest), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"sha256": digest, "analysis_ids": ids})
}

var sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

type familyView struct {
	ID              string   `json:"id"`
	Category        string   `json:"category"`
	Weight          int      `json:"weight"`
	CountMultiplier bool     `json:"count_multiplier"`
	Patterns        []string `json:"patterns"`
}

func (s *Server) catalog(c *gin.Context) {
	families := s.engine.Catalog().Families()
	out := make([]familyView, 0, len(families))
	for _, f := range families {
		out = append(out, familyView{
			ID:              f.ID,
			Category:        f.Category,
			Weight:          f.Weight,
			CountMultiplier: f.CountMultiplier,
			Patterns:        f.Patterns,
		})
	}
	c.JSON(http.StatusOK, gin.H{"families": out, "count": len(out)})
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
