package search

import (
	"context"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/candidate"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
)

// Normalizer splits raw query text into search text and filters.
type Normalizer interface {
	Normalize(raw string) (string, filter.Set)
}

// KeywordSource returns lexically matching product IDs with raw relevance scores.
type KeywordSource interface {
	Search(ctx context.Context, query string, filters filter.Set, limit int) ([]candidate.Result, error)
}

// SemanticSource returns the nearest product IDs to a query vector with similarity scores.
type SemanticSource interface {
	Search(ctx context.Context, vec []float32, k int) ([]candidate.Result, error)
}

// Hydrator resolves candidate IDs to product records. Unknown IDs are absent from the map.
type Hydrator interface {
	Hydrate(ctx context.Context, ids []string) (map[string]domprod.Product, error)
}

// Embedder vectorizes the cleaned query for the semantic source.
type Embedder = domain.Embedder
