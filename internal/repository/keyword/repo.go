package keyword

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/db"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/candidate"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/repository/keyspace"
)

// store is the consumer interface for keyword search (ISP).
type store interface {
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo is the BM25 candidate source over product titles and descriptions.
type Repo struct {
	store store
	keys  keyspace.Keyspace
}

// New creates a keyword candidate source.
func New(s store, keys keyspace.Keyspace) *Repo {
	return &Repo{store: s, keys: keys}
}

// Search returns up to limit products matching query under filters, best BM25 score first.
func (r *Repo) Search(
	ctx context.Context, query string, filters filter.Set, limit int,
) ([]candidate.Result, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}

	expr, err := filters.Expression()
	if err != nil {
		return nil, fmt.Errorf("keyword filters: %w", err)
	}

	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName: r.keys.IndexName(),
		Query:     query,
		Fields:    keyspace.TextFields,
		Filters:   expr,
		TopK:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search bm25: %w", err)
	}
	if sr == nil {
		return nil, nil
	}

	out := make([]candidate.Result, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id, ok := r.keys.ProductID(e.Key)
		if !ok {
			continue
		}
		out = append(out, candidate.Result{ID: id, Score: e.Score, Source: candidate.SourceKeyword})
	}
	return out, nil
}
