package result

import "github.com/kailas-cloud/prodsearch/internal/domain/product"

// Ranked is a hydrated product with its fused score and explanation trail.
type Ranked struct {
	product     product.Product
	score       float64
	explanation []string
}

// New creates a ranked result.
func New(p product.Product, score float64, explanation []string) Ranked {
	return Ranked{product: p, score: score, explanation: explanation}
}

// Product returns the hydrated product.
func (r *Ranked) Product() product.Product { return r.product }

// Score returns the fused score.
func (r *Ranked) Score() float64 { return r.score }

// Explanation returns the ordered human-readable scoring reasons.
func (r *Ranked) Explanation() []string { return r.explanation }
