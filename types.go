package prodsearch

import "context"

// Embedder turns text into a vector. Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult is the output of one Embed call.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Product is a catalog entry.
type Product struct {
	ID          string
	Title       string
	Brand       string
	Description string
	Category    string
	Price       float64
	Rating      float64
}

// Result is one ranked product with its fused score and the reasons behind it.
type Result struct {
	Product     Product
	Score       float64
	Explanation []string
}

// Weights are the score fusion coefficients.
type Weights struct {
	Semantic         float64
	Keyword          float64
	Rating           float64
	RatingExplainMin float64
	PriceBoost       float64
}

// IngestStats summarizes one feed load.
type IngestStats struct {
	Read    int64
	Indexed int64
	Invalid int64
	Failed  int64
}
