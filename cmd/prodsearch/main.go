package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/app"
	"github.com/kailas-cloud/prodsearch/internal/config"
	logpkg "github.com/kailas-cloud/prodsearch/internal/logger"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
	keywordrepo "github.com/kailas-cloud/prodsearch/internal/repository/keyword"
	productrepo "github.com/kailas-cloud/prodsearch/internal/repository/product"
	vectorrepo "github.com/kailas-cloud/prodsearch/internal/repository/vector"
	chiTransport "github.com/kailas-cloud/prodsearch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/prodsearch/internal/usecase/health"
	"github.com/kailas-cloud/prodsearch/internal/usecase/query"
	searchuc "github.com/kailas-cloud/prodsearch/internal/usecase/search"
	"github.com/kailas-cloud/prodsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting prodsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("built", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx := context.Background()
	store, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	embedder, provider := app.BuildEmbedder(store, &cfg, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	indexRepo, err := app.IndexRepo(store, &cfg)
	if err != nil {
		logger.Fatal("Invalid index config", zap.Error(err))
	}
	created, err := indexRepo.EnsureIndex(ctx, false)
	if err != nil {
		logger.Fatal("Failed to ensure product index", zap.Error(err))
	}
	logger.Info("Product index ready", zap.Bool("created", created))

	keys := app.Keyspace(&cfg)
	searchSvc := searchuc.New(searchuc.Deps{
		Normalizer: query.NewNormalizer(cfg.Search.Categories),
		Keyword:    keywordrepo.New(store, keys),
		Semantic:   vectorrepo.New(store, keys),
		Embedder:   embedder,
		Products:   productrepo.New(store, keys, logger),
	}, app.SearchConfig(cfg.Search), logger)

	healthSvc := healthuc.New(store, indexRepo, provider)

	server := chiTransport.NewServer(searchSvc, healthSvc, logger).
		WithDefaultLimit(cfg.Search.DefaultLimit)
	handler := chiTransport.NewRouter(server, chiTransport.RouterOptions{
		APIKeys: cfg.Auth.APIKeys,
		Logger:  logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
