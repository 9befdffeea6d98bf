package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/stackmint/docqa/internal/chunker"
	"github.com/stackmint/docqa/internal/config"
	"github.com/stackmint/docqa/internal/domain"
	"github.com/stackmint/docqa/internal/embedding/hashing"
	"github.com/stackmint/docqa/internal/loader"
	logpkg "github.com/stackmint/docqa/internal/logger"
	"github.com/stackmint/docqa/internal/metrics"
	"github.com/stackmint/docqa/internal/repository/applog"
	"github.com/stackmint/docqa/internal/repository/embcache"
	"github.com/stackmint/docqa/internal/repository/memindex"
	chiTransport "github.com/stackmint/docqa/internal/transport/chi"
	openaiTransport "github.com/stackmint/docqa/internal/transport/openai"
	answeruc "github.com/stackmint/docqa/internal/usecase/answer"
	documentuc "github.com/stackmint/docqa/internal/usecase/document"
	healthuc "github.com/stackmint/docqa/internal/usecase/health"
	"github.com/stackmint/docqa/internal/usecase/rag"
	searchuc "github.com/stackmint/docqa/internal/usecase/search"
	"github.com/stackmint/docqa/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docqa API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("sqlite_path", cfg.Storage.SQLitePath),
	)

	registry, err := applog.NewStore(cfg.Storage.SQLitePath)
	if err != nil {
		logger.Fatal("Failed to open document registry", zap.Error(err))
	}
	defer registry.Close()
	logger.Info("Connected to document registry")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRAGMetrics()

	// The cache client outlives the lazily built stack; closed on shutdown.
	var redisKV *embcache.RedisKV
	defer func() {
		if redisKV != nil {
			redisKV.Close()
		}
	}()

	// The embedder is created inside the lazy build; health checks pick it up
	// once the stack has initialized.
	var embedderForHealth atomic.Value

	build := func(_ context.Context) (*rag.Services, error) {
		if cfg.Generation.APIKey == "" {
			return nil, fmt.Errorf("generation.api_key is required")
		}

		embedder, err := buildEmbedder(cfg, &redisKV, logger)
		if err != nil {
			return nil, fmt.Errorf("build embedder: %w", err)
		}
		embedderForHealth.Store(embedder)
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)

		index := memindex.New(embedder, embedder)
		splitter := chunker.New(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)

		docSvc := documentuc.New(registry, index, splitter, loader.Load, logger)

		completer := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
			APIKey:       cfg.Generation.APIKey,
			BaseURL:      cfg.Generation.BaseURL,
			DefaultModel: cfg.Generation.DefaultModel,
			Logger:       logger,
		})
		retriever := searchuc.New(index, cfg.Retrieval.TopK)
		answerSvc := answeruc.New(retriever, completer, logger)

		logger.Info("RAG services assembled",
			zap.Int("retrieval_top_k", retriever.TopK()),
			zap.String("generation_model", completer.DefaultModel()))

		return &rag.Services{Documents: docSvc, Answers: answerSvc}, nil
	}

	stack := rag.New(build, logger)

	healthSvc := healthuc.New(registry,
		&lazyEmbeddingChecker{value: &embedderForHealth},
		stackStateReporter{stack: stack})

	server := chiTransport.NewServer(
		stack, registry, registry, healthSvc, cfg.Storage.UploadsDir, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(metrics.Middleware())
	server.Routes(r)

	if cfg.Storage.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.Storage.StaticDir)))
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the embedder chain: provider -> cache decorator.
func buildEmbedder(cfg config.Config, redisKV **embcache.RedisKV, logger *zap.Logger) (domain.Embedder, error) {
	var base domain.Embedder

	switch cfg.Embedding.Provider {
	case "openai":
		base = openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   "openai",
			Logger:     logger,
		})
	case "hashing":
		h, err := hashing.New(cfg.Embedding.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("hashing embedder: %w", err)
		}
		base = h
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	if !cfg.Cache.Enabled {
		return base, nil
	}

	kv, err := embcache.NewRedisKV(embcache.RedisConfig{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
		TTL:      time.Duration(cfg.Cache.TTLHours) * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	*redisKV = kv

	return embcache.New(base, kv, metrics.EmbeddingCacheTotal, logger), nil
}

// lazyEmbeddingChecker checks the embedder once the stack has built it.
type lazyEmbeddingChecker struct {
	value *atomic.Value
}

func (c *lazyEmbeddingChecker) HealthCheck(ctx context.Context) error {
	v := c.value.Load()
	if v == nil {
		return nil
	}
	if hc, ok := v.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// stackStateReporter adapts rag.Stack to the health service contract.
type stackStateReporter struct {
	stack *rag.Stack
}

func (s stackStateReporter) State() string {
	return string(s.stack.State())
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
