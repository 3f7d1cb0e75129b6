// Package api exposes GigShield over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ppiankov/gigshield/internal/auth"
	"github.com/ppiankov/gigshield/internal/evidence"
	"github.com/ppiankov/gigshield/internal/knowledge"
	"github.com/ppiankov/gigshield/internal/llm"
	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/score"
	"github.com/ppiankov/gigshield/internal/store"
	"github.com/ppiankov/gigshield/internal/worker"
)

const (
	defaultState = "California"
	defaultTone  = "professional"
	contextTopK  = 3
	searchTopK   = 5

	limiterSweepInterval = 10 * time.Minute
)

// Options wires the server to its collaborators
type Options struct {
	Store     store.Store
	Knowledge *knowledge.Base
	Assistant *llm.Assistant
	Evidence  *evidence.Service
	Issuer    *auth.Issuer
	Limiter   *worker.Limiter

	// EvidenceDir is served at EvidenceURL when both are set
	EvidenceDir string
	EvidenceURL string

	StoreBackend string
	Version      string
}

// Server is the GigShield HTTP API
type Server struct {
	cfg    model.ServerConfig
	opts   Options
	scorer *score.Scorer
	router *gin.Engine
	now    func() time.Time
}

// NewServer builds the router
func NewServer(cfg model.ServerConfig, opts Options) *Server {
	if opts.Limiter == nil {
		opts.Limiter = worker.NewLimiter(0, 0)
	}
	if opts.Assistant == nil {
		opts.Assistant = llm.NewAssistant(nil, nil)
	}
	if opts.Knowledge == nil {
		opts.Knowledge = knowledge.NewBase(knowledge.BuiltinDocuments())
	}

	s := &Server{
		cfg:    cfg,
		opts:   opts,
		scorer: score.NewScorer(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{SkipPaths: []string{"/api/health"}}))
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "X-Requested-With", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.MaxMultipartMemory = model.MaxEvidenceBytes + 2<<20

	if s.opts.EvidenceDir != "" && strings.HasPrefix(s.opts.EvidenceURL, "/") {
		r.Static(s.opts.EvidenceURL, s.opts.EvidenceDir)
	}

	r.GET("/", s.handleRoot)

	public := r.Group("/api")
	{
		public.GET("/health", s.handleHealth)
		public.POST("/auth/register", s.handleRegister)
		public.POST("/auth/login", s.handleLogin)

		public.GET("/knowledge-base/search", s.handleKnowledgeSearch)
		public.GET("/knowledge-base/categories", s.handleKnowledgeCategories)
		public.GET("/knowledge-base/states", s.handleKnowledgeStates)
		public.GET("/knowledge-base/platforms", s.handleKnowledgePlatforms)

		public.GET("/analytics/overview", s.handleAnalyticsOverview)
		public.GET("/cases/:id/score", s.handleCaseScore)
	}

	protected := r.Group("/api")
	protected.Use(auth.Middleware(s.opts.Issuer))
	{
		limited := s.rateLimit()
		protected.POST("/analyze-notice", limited, s.handleAnalyzeNotice)
		protected.POST("/generate-appeal", limited, s.handleGenerateAppeal)
		protected.POST("/chat", limited, s.handleChat)

		protected.GET("/my-appeals", s.handleMyAppeals)
		protected.DELETE("/appeals/:id", s.handleDeleteAppeal)
		protected.PATCH("/appeals/:id/status", s.handleUpdateStatus)
		protected.POST("/upload-evidence", s.handleUploadEvidence)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go s.sweepLimiter(ctx, limiterSweepInterval)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// sweepLimiter drops idle per-user buckets every interval until ctx is done
func (s *Server) sweepLimiter(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.opts.Limiter.Prune(); n > 0 {
				slog.Debug("Pruned idle rate limit buckets", "count", n, "remaining", s.opts.Limiter.Len())
			}
		}
	}
}
