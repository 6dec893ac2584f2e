package product

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/db"
	"github.com/kailas-cloud/prodsearch/internal/domain"
	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/repository/keyspace"
)

// store is the consumer interface for product records (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Repo reads and writes product hashes. It implements the candidate hydrator
// used by usecase/search and the writer used by usecase/ingest.
type Repo struct {
	store  store
	keys   keyspace.Keyspace
	logger *zap.Logger
}

// New creates a product repository.
func New(s store, keys keyspace.Keyspace, logger *zap.Logger) *Repo {
	return &Repo{store: s, keys: keys, logger: logger}
}

// Hydrate resolves IDs to products in one pipelined round-trip.
// Missing and malformed records are left out of the map.
func (r *Repo) Hydrate(ctx context.Context, ids []string) (map[string]domprod.Product, error) {
	out := make(map[string]domprod.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.keys.ProductKey(id)
	}

	records, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hydrate %d products: %w", len(ids), err)
	}

	for i, m := range records {
		if i >= len(ids) || len(m) == 0 {
			continue
		}
		p, err := parseHashFields(ids[i], m)
		if err != nil {
			r.logger.Warn("Skipping malformed product record",
				zap.String("product_id", ids[i]), zap.Error(err))
			continue
		}
		out[ids[i]] = p
	}

	return out, nil
}

// UpsertBatch writes products with their vectors in one pipelined round-trip.
func (r *Repo) UpsertBatch(ctx context.Context, products []domprod.Product) error {
	if len(products) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(products))
	for i := range products {
		p := &products[i]
		if len(p.Vector()) == 0 {
			return fmt.Errorf("%w: product %s has no vector", domain.ErrInvalidProduct, p.ID())
		}
		items[i] = db.HashSetItem{
			Key:    r.keys.ProductKey(p.ID()),
			Fields: buildHashFields(p),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d products: %w", len(products), err)
	}
	return nil
}
