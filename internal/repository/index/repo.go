package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/prodsearch/internal/db"
	"github.com/kailas-cloud/prodsearch/internal/repository/keyspace"
)

// store is the consumer interface for index lifecycle (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Config describes the product index schema parameters.
type Config struct {
	Dimensions  int
	Algorithm   db.VectorAlgorithm
	M           int
	EFConstruct int
	TitleWeight float64
}

// Repo manages the product FT index.
type Repo struct {
	store store
	keys  keyspace.Keyspace
	cfg   Config
}

// New creates an index repository.
func New(s store, keys keyspace.Keyspace, cfg Config) *Repo {
	if cfg.Algorithm == "" {
		cfg.Algorithm = db.VectorHNSW
	}
	return &Repo{store: s, keys: keys, cfg: cfg}
}

// Definition builds the product index: weighted title and description TEXT,
// brand and category TAG, price and rating NUMERIC, and an L2 vector field.
func (r *Repo) Definition() (*db.IndexDefinition, error) {
	b := db.NewIndex(r.keys.IndexName()).
		Prefix(r.keys.ProductPrefix()).
		TextWeighted(keyspace.FieldTitle, r.cfg.TitleWeight).
		Text(keyspace.FieldDescription).
		Tag(keyspace.FieldBrand).
		Tag(keyspace.FieldCategory).
		Numeric(keyspace.FieldPrice).
		Numeric(keyspace.FieldRating)

	switch r.cfg.Algorithm {
	case db.VectorFlat:
		b = b.VectorFlat(keyspace.FieldVector, r.cfg.Dimensions, db.DistanceL2)
	default:
		b = b.VectorHNSW(keyspace.FieldVector, r.cfg.Dimensions, db.DistanceL2, r.cfg.M, r.cfg.EFConstruct)
	}

	return b.Build()
}

// EnsureIndex creates the index if it is absent. With recreate the existing
// index is dropped first; product hashes survive and are re-indexed by the engine.
// It reports whether FT.CREATE ran.
func (r *Repo) EnsureIndex(ctx context.Context, recreate bool) (bool, error) {
	def, err := r.Definition()
	if err != nil {
		return false, fmt.Errorf("build index definition: %w", err)
	}

	if recreate {
		if err := r.store.DropIndex(ctx, def.Name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return false, fmt.Errorf("drop index %s: %w", def.Name, err)
		}
	} else {
		exists, err := r.store.IndexExists(ctx, def.Name)
		if err != nil {
			return false, fmt.Errorf("check index %s: %w", def.Name, err)
		}
		if exists {
			return false, nil
		}
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return true, nil
}

// Exists reports whether the product index is present.
func (r *Repo) Exists(ctx context.Context) (bool, error) {
	name := r.keys.IndexName()
	ok, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", name, err)
	}
	return ok, nil
}
