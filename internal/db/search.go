package db

import "github.com/kailas-cloud/prodsearch/internal/domain/search/filter"

// KNNQuery is the input for vector nearest-neighbour search.
// Scores come back as the raw distance reported by the engine.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName string
	Query     string
	// Fields restricts the match to these TEXT fields; empty means all.
	Fields       []string
	Filters      filter.Expression
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
