package vector

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/prodsearch/internal/db"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/candidate"
	"github.com/kailas-cloud/prodsearch/internal/repository/keyspace"
)

// store is the consumer interface for vector search (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo is the KNN candidate source over product embeddings.
type Repo struct {
	store store
	keys  keyspace.Keyspace
}

// New creates a semantic candidate source.
func New(s store, keys keyspace.Keyspace) *Repo {
	return &Repo{store: s, keys: keys}
}

// Search returns the k nearest products to vec. Scores are 1/(1+distance).
func (r *Repo) Search(ctx context.Context, vec []float32, k int) ([]candidate.Result, error) {
	if k <= 0 {
		return nil, nil
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:   r.keys.IndexName(),
		VectorField: keyspace.FieldVector,
		Vector:      vec,
		K:           k,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
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
		out = append(out, candidate.Result{
			ID:     id,
			Score:  candidate.SimilarityFromDistance(e.Score),
			Source: candidate.SourceSemantic,
		})
	}
	return out, nil
}
