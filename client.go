// Package prodsearch embeds the hybrid product search pipeline in a Go program:
// it loads a catalog into Redis 8 and answers free-text queries by fusing
// vector similarity, BM25 relevance and product rating.
//
//	client, _ := prodsearch.New(
//	    prodsearch.WithRedis("localhost:6379", ""),
//	    prodsearch.WithEmbedder(myEmbedder, 384),
//	)
//	defer client.Close()
//	_ = client.EnsureIndex(ctx, false)
//	_, _ = client.Ingest(ctx, csvFile)
//	results, _ := client.Search(ctx, "wireless headphones under 100", 10)
package prodsearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/db"
	dbRedis "github.com/kailas-cloud/prodsearch/internal/db/redis"
	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	indexrepo "github.com/kailas-cloud/prodsearch/internal/repository/index"
	"github.com/kailas-cloud/prodsearch/internal/repository/keyspace"
	keywordrepo "github.com/kailas-cloud/prodsearch/internal/repository/keyword"
	productrepo "github.com/kailas-cloud/prodsearch/internal/repository/product"
	vectorrepo "github.com/kailas-cloud/prodsearch/internal/repository/vector"
	ingestuc "github.com/kailas-cloud/prodsearch/internal/usecase/ingest"
	"github.com/kailas-cloud/prodsearch/internal/usecase/query"
	searchuc "github.com/kailas-cloud/prodsearch/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "prodsearch:"
	defaultDimensions       = 384
	defaultTitleWeight      = 3
)

// Client is the prodsearch SDK entry point.
type Client struct {
	store     *dbRedis.Store
	index     *indexrepo.Repo
	searchSvc *searchuc.Service
	ingestSvc *ingestuc.Service
}

// New creates a Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	cfg.applyDefaults()

	if len(cfg.addrs) == 0 {
		return nil, errors.New("prodsearch: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("prodsearch: create redis store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("prodsearch: database not ready: %w", err)
	}

	return wireClient(store, cfg), nil
}

func (c *clientConfig) applyDefaults() {
	if c.keyPrefix == "" {
		c.keyPrefix = defaultKeyPrefix
	}
	if c.dimensions <= 0 {
		c.dimensions = defaultDimensions
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
}

func (c *clientConfig) searchConfig() searchuc.Config {
	sc := searchuc.DefaultConfig()
	if c.weights != nil {
		sc.Weights = searchuc.Weights(*c.weights)
	}
	if c.sourceTimeout > 0 {
		sc.SourceTimeout = c.sourceTimeout
	}
	sc.Degrade = !c.strict
	return sc
}

func wireClient(store *dbRedis.Store, cfg *clientConfig) *Client {
	keys := keyspace.New(cfg.keyPrefix)

	// Without an embedder search is keyword-only and ingestion fails every row.
	var (
		queryEmb  domain.Embedder
		ingestEmb domain.Embedder = noopEmbedder{}
	)
	if cfg.embedder != nil {
		queryEmb = &embedderAdapter{inner: cfg.embedder}
		ingestEmb = queryEmb
	}

	products := productrepo.New(store, keys, cfg.logger)
	index := indexrepo.New(store, keys, indexrepo.Config{
		Dimensions:  cfg.dimensions,
		Algorithm:   db.VectorHNSW,
		M:           cfg.hnswM,
		EFConstruct: cfg.hnswEF,
		TitleWeight: defaultTitleWeight,
	})

	searchSvc := searchuc.New(searchuc.Deps{
		Normalizer: query.NewNormalizer(cfg.categories),
		Keyword:    keywordrepo.New(store, keys),
		Semantic:   vectorrepo.New(store, keys),
		Embedder:   queryEmb,
		Products:   products,
	}, cfg.searchConfig(), cfg.logger)

	return &Client{
		store:     store,
		index:     index,
		searchSvc: searchSvc,
		ingestSvc: ingestuc.New(products, ingestEmb, ingestuc.Config{}, cfg.logger),
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// EnsureIndex creates the product index if it is absent, or rebuilds it with recreate.
func (c *Client) EnsureIndex(ctx context.Context, recreate bool) error {
	if _, err := c.index.EnsureIndex(ctx, recreate); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}

// Ingest loads a CSV product feed.
func (c *Client) Ingest(ctx context.Context, feed io.Reader) (IngestStats, error) {
	st, err := c.ingestSvc.Run(ctx, feed)
	return IngestStats(st), err
}

// Search returns at most limit ranked products for a free-text query.
func (c *Client) Search(ctx context.Context, q string, limit int) ([]Result, error) {
	resp, err := c.searchSvc.Search(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(resp.Results))
	for i := range resp.Results {
		out[i] = toResult(&resp.Results[i])
	}
	return out, nil
}

func toResult(r *result.Ranked) Result {
	p := r.Product()
	return Result{
		Product: Product{
			ID:          p.ID(),
			Title:       p.Title(),
			Brand:       p.Brand(),
			Description: p.Description(),
			Category:    p.Category(),
			Price:       p.Price(),
			Rating:      p.Rating(),
		},
		Score:       r.Score(),
		Explanation: r.Explanation(),
	}
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopEmbedder fails every call. Ingestion uses it when no embedder is configured.
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf("%w: embedder not configured (use WithEmbedder)",
		domain.ErrEmbeddingProviderError)
}
