package product

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/prodsearch/internal/db"
	"github.com/kailas-cloud/prodsearch/internal/domain"
	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
)

func TestHydrate_DropsMissingAndStripsVector(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotKeys []string
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		gotKeys = keys
		return []map[string]string{
			{
				"title": "Studio Headphones", "brand": "Acme", "description": "Closed-back",
				"category": "headphones", "price": "89.99", "rating": "4.5",
				"__vector": "\x00\x00\x80\x3f",
			},
			{},
		}, nil
	}

	got, err := repo.Hydrate(context.Background(), []string{"A", "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotKeys) != 2 || gotKeys[0] != "ps:product:A" || gotKeys[1] != "ps:product:B" {
		t.Errorf("keys = %v", gotKeys)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 product, got %d", len(got))
	}
	a, ok := got["A"]
	if !ok {
		t.Fatal("product A missing")
	}
	if a.Title() != "Studio Headphones" || a.Price() != 89.99 || a.Rating() != 4.5 {
		t.Errorf("product A = %+v", a)
	}
	if a.Vector() != nil {
		t.Error("hydrated product must not carry the stored vector")
	}
	if _, ok := got["B"]; ok {
		t.Error("missing product B must be dropped")
	}
}

func TestHydrate_SkipsMalformed(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllMultiFn = func(_ context.Context, _ []string) ([]map[string]string, error) {
		return []map[string]string{
			{"title": "Bad price", "price": "cheap", "rating": "4"},
			{"title": "Bad rating", "price": "10", "rating": "9"},
			{"title": "Ok", "price": "10", "rating": "3"},
		}, nil
	}

	got, err := repo.Hydrate(context.Background(), []string{"x", "y", "z"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only z, got %v", got)
	}
	if _, ok := got["z"]; !ok {
		t.Error("z should be hydrated")
	}
}

func TestHydrate_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	storeErr := &db.Error{Op: db.OpHGetAll, Err: errors.New("connection reset")}

	ms.hgetAllMultiFn = func(_ context.Context, _ []string) ([]map[string]string, error) {
		return nil, storeErr
	}

	_, err := repo.Hydrate(context.Background(), []string{"A"})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestHydrate_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(_ context.Context, _ []string) ([]map[string]string, error) {
		t.Fatal("store must not be called for empty input")
		return nil, nil
	}

	got, err := repo.Hydrate(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestUpsertBatch(t *testing.T) {
	repo, ms := newTestRepo(t)

	var items []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, it []db.HashSetItem) error {
		items = it
		return nil
	}

	p, err := domprod.New("7", "Trail Watch", "Peak", "GPS watch", "watch", 199, 4.2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p = p.WithVector([]float32{1, 0})

	if err := repo.UpsertBatch(context.Background(), []domprod.Product{p}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Key != "ps:product:7" {
		t.Errorf("key = %q", items[0].Key)
	}
	f := items[0].Fields
	if f["price"] != "199" || f["rating"] != "4.2" || f["category"] != "watch" {
		t.Errorf("fields = %v", f)
	}
	if len(f["__vector"]) != 8 {
		t.Errorf("vector bytes = %d, want 8", len(f["__vector"]))
	}
}

func TestUpsertBatch_RequiresVector(t *testing.T) {
	repo, _ := newTestRepo(t)
	p := domprod.Reconstruct("7", "Trail Watch", "", "", "watch", 199, 4.2)

	err := repo.UpsertBatch(context.Background(), []domprod.Product{p})
	if !errors.Is(err, domain.ErrInvalidProduct) {
		t.Fatalf("expected ErrInvalidProduct, got %v", err)
	}
}

func TestUpsertBatch_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetMultiFn = func(_ context.Context, _ []db.HashSetItem) error {
		t.Fatal("store must not be called for empty batch")
		return nil
	}
	if err := repo.UpsertBatch(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
