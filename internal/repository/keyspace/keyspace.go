// Package keyspace owns the Redis key layout and hash field names shared by
// the product writer, the FT index and both candidate sources.
package keyspace

import "strings"

// Hash field names of a product record.
const (
	FieldTitle       = "title"
	FieldBrand       = "brand"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldPrice       = "price"
	FieldRating      = "rating"
	FieldVector      = "__vector"
)

// TextFields are the fields matched by keyword search.
var TextFields = []string{FieldTitle, FieldDescription}

// Keyspace derives keys from a configurable global prefix (e.g. "prodsearch:").
type Keyspace struct {
	prefix string
}

// New creates a Keyspace.
func New(prefix string) Keyspace {
	return Keyspace{prefix: prefix}
}

// ProductPrefix is the key prefix every product hash shares.
func (k Keyspace) ProductPrefix() string { return k.prefix + "product:" }

// ProductKey returns the hash key of a product.
func (k Keyspace) ProductKey(id string) string { return k.ProductPrefix() + id }

// ProductID extracts the product ID from a hash key.
func (k Keyspace) ProductID(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, k.ProductPrefix())
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// IndexName is the FT index covering product hashes.
func (k Keyspace) IndexName() string { return k.prefix + "products:idx" }

// EmbeddingCachePrefix is the key prefix of cached query and product embeddings.
func (k Keyspace) EmbeddingCachePrefix() string { return k.prefix + "emb_cache:" }
