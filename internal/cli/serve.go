package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ppiankov/gigshield/internal/api"
	"github.com/ppiankov/gigshield/internal/auth"
	"github.com/ppiankov/gigshield/internal/cache"
	"github.com/ppiankov/gigshield/internal/evidence"
	"github.com/ppiankov/gigshield/internal/knowledge"
	"github.com/ppiankov/gigshield/internal/llm"
	"github.com/ppiankov/gigshield/internal/logging"
	"github.com/ppiankov/gigshield/internal/model"
	"github.com/ppiankov/gigshield/internal/store"
	"github.com/ppiankov/gigshield/internal/worker"
)

var (
	serveAddr    string
	serveBackend string
	serveNoIndex bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the GigShield HTTP API",
	Long: `Serve starts the HTTP API used by the GigShield web client.

On startup it connects the case store, loads the knowledge base, configures
the language model provider and, when a vector endpoint is configured,
indexes the knowledge base in the background.

Example:
  gigshield serve
  gigshield serve --addr :8080 --store memory
  GIGSHIELD_LLM_PROVIDER=ollama GIGSHIELD_LLM_MODEL=llama3.1:8b gigshield serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveBackend, "store", "", "case store backend: mongo or memory (overrides store.backend)")
	serveCmd.Flags().BoolVar(&serveNoIndex, "no-index", false, "skip knowledge base indexing on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveBackend != "" {
		cfg.Store.Backend = serveBackend
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	slog.SetDefault(logging.NewServerLogger(os.Stderr, level))
	if logging.ParseLogLevel(level) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.index != nil && !serveNoIndex {
		go a.indexKnowledge(ctx, false)
	}

	srv := api.NewServer(cfg.Server, api.Options{
		Store:        a.store,
		Knowledge:    a.kb,
		Assistant:    a.assistant,
		Evidence:     a.evidence,
		Issuer:       a.issuer,
		Limiter:      a.limiter,
		EvidenceDir:  a.evidenceDir,
		EvidenceURL:  cfg.Evidence.BaseURL,
		StoreBackend: cfg.Store.Backend,
		Version:      Version,
	})
	return srv.Run(ctx)
}

// app holds the collaborators shared by the serve and kb commands
type app struct {
	cfg         *model.Config
	store       store.Store
	cache       cache.Cache
	kb          *knowledge.Base
	index       *knowledge.QdrantIndex
	assistant   *llm.Assistant
	evidence    *evidence.Service
	evidenceDir string
	issuer      *auth.Issuer
	limiter     *worker.Limiter
}

func newApp(ctx context.Context, cfg *model.Config) (*app, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: st}

	a.cache = openCache(ctx, cfg.Cache)
	a.limiter = worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		slog.Warn("LLM provider unavailable, using fallback responses", "provider", cfg.LLM.Provider, "error", err)
		provider = nil
	}
	a.assistant = llm.NewAssistant(provider, a.cache)

	a.kb = knowledge.Load(ctx, st)
	if idx := knowledge.NewIndexFromConfig(cfg.Knowledge); idx != nil {
		a.index = idx
		a.kb.SetIndex(idx)
	}
	if a.cache != nil {
		a.kb.SetCache(a.cache, cfg.Cache.TTL)
	}

	if cfg.Evidence.Dir != "" {
		local := evidence.NewLocalStorage(cfg.Evidence.Dir, cfg.Evidence.BaseURL)
		a.evidence = evidence.NewService(local, cfg.Evidence.MaxBytes)
		a.evidenceDir = local.Dir()
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			a.Close()
			return nil, err
		}
		slog.Warn("No JWT secret configured, generated an ephemeral one; tokens will not survive a restart")
	}
	a.issuer, err = auth.NewIssuer(secret, cfg.Auth.TokenTTL)
	if err != nil {
		a.Close()
		return nil, err
	}

	slog.Info("GigShield ready",
		"store", cfg.Store.Backend,
		"llm", a.assistant.ProviderName(),
		"vector_search", a.kb.VectorEnabled(),
		"articles", len(a.kb.Documents()),
	)
	return a, nil
}

// openCache builds the configured cache; an unreachable Redis disables caching
func openCache(ctx context.Context, cfg model.CacheConfig) cache.Cache {
	c, err := cache.New(cfg)
	if err != nil {
		slog.Warn("Cache disabled", "backend", cfg.Backend, "error", err)
		return nil
	}
	if c == nil {
		return nil
	}
	if r, ok := c.(*cache.RedisCache); ok {
		if err := r.Ping(ctx); err != nil {
			slog.Warn("Redis unreachable, cache disabled", "addr", cfg.RedisAddr, "error", err)
			_ = r.Close()
			return nil
		}
	}
	return c
}

// indexKnowledge embeds the knowledge base into the vector index
func (a *app) indexKnowledge(ctx context.Context, force bool) (*knowledge.IndexReport, error) {
	indexer := knowledge.NewIndexer(a.index, a.cfg.Concurrency.Workers, worker.NewLimiter(10, 10))
	report, err := indexer.Index(ctx, a.kb.Documents(), force)
	if err != nil {
		slog.Warn("Knowledge base indexing failed, keyword search remains available", "error", err)
		return nil, err
	}
	for _, e := range report.Errors {
		slog.Warn("Document not indexed", "error", e)
	}
	if !report.Skipped {
		slog.Info("Knowledge base indexed", "indexed", report.Indexed, "total", report.Total)
	}
	return report, nil
}

func (a *app) Close() {
	if r, ok := a.cache.(*cache.RedisCache); ok {
		_ = r.Close()
	}
	if a.store != nil {
		closeStore(a.store)
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate JWT secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
