// Package app is the composition root shared by the API server and the ingest CLI.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/config"
	"github.com/kailas-cloud/prodsearch/internal/db"
	dbRedis "github.com/kailas-cloud/prodsearch/internal/db/redis"
	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
	"github.com/kailas-cloud/prodsearch/internal/repository/embcache"
	indexrepo "github.com/kailas-cloud/prodsearch/internal/repository/index"
	"github.com/kailas-cloud/prodsearch/internal/repository/keyspace"
	openaiEmb "github.com/kailas-cloud/prodsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/prodsearch/internal/usecase/embedding"
	searchuc "github.com/kailas-cloud/prodsearch/internal/usecase/search"
)

// OpenStore connects to Redis and waits until it answers PING.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	return store, nil
}

// Keyspace returns the key layout for the configured prefix.
func Keyspace(cfg *config.Config) keyspace.Keyspace {
	return keyspace.New(cfg.Storage.KeyPrefix)
}

// IndexRepo builds the product index manager from config.
func IndexRepo(store *dbRedis.Store, cfg *config.Config) (*indexrepo.Repo, error) {
	algo, err := db.ParseVectorAlgorithm(strings.ToUpper(cfg.Index.Algorithm))
	if err != nil {
		return nil, fmt.Errorf("index algorithm: %w", err)
	}
	return indexrepo.New(store, Keyspace(cfg), indexrepo.Config{
		Dimensions:  cfg.Embedding.Dimensions,
		Algorithm:   algo,
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.EFConstruct,
		TitleWeight: cfg.Index.TitleWeight,
	}), nil
}

// BuildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// The bare provider is returned as well for health checks, which must bypass the cache.
func BuildEmbedder(
	store *dbRedis.Store, cfg *config.Config, logger *zap.Logger,
) (domain.Embedder, *openaiEmb.Embedder) {
	ec := cfg.Embedding

	sendDims := 0
	if ec.SendDimensions {
		sendDims = ec.Dimensions
	}

	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: sendDims,
		Provider:   ec.Provider,
		Timeout:    ec.Timeout(),
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(
			base, store, Keyspace(cfg).EmbeddingCachePrefix(), ec.CacheTTL(),
			metrics.EmbeddingCacheTotal, logger,
		)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, ec.Dimensions, logger)

	return embedder, base
}

// SearchConfig maps the search section onto the orchestrator policy.
func SearchConfig(sc config.SearchConfig) searchuc.Config {
	w := sc.Weights
	return searchuc.Config{
		Weights: searchuc.Weights{
			Semantic:         w.Semantic,
			Keyword:          w.Keyword,
			Rating:           w.Rating,
			RatingExplainMin: w.RatingExplainMin,
			PriceBoost:       w.PriceBoost,
		},
		PoolFactor:     sc.PoolFactor,
		MaxLimit:       sc.MaxLimit,
		MaxQueryLength: sc.MaxQueryLength,
		SourceTimeout:  sc.SourceTimeout(),
		Degrade:        sc.DegradeEnabled(),
	}
}
