package product

import (
	"fmt"
	"math"
	"strings"
)

// MaxRating is the top of the rating scale.
const MaxRating = 5.0

// Product is a read-only catalog record (immutable value object).
type Product struct {
	id          string
	title       string
	brand       string
	description string
	category    string
	price       float64
	rating      float64
	vector      []float32
}

// New validates and creates a Product.
// ID and title are required, price must be >= 0, rating must lie in [0, MaxRating].
func New(id, title, brand, description, category string, price, rating float64) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, fmt.Errorf("product ID is required")
	}
	if strings.ContainsAny(id, " \t\r\n") {
		return Product{}, fmt.Errorf("product ID %q must not contain whitespace", id)
	}
	if strings.TrimSpace(title) == "" {
		return Product{}, fmt.Errorf("product %s: title is required", id)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return Product{}, fmt.Errorf("product %s: price must be a non-negative number, got %v", id, price)
	}
	if math.IsNaN(rating) || rating < 0 || rating > MaxRating {
		return Product{}, fmt.Errorf("product %s: rating must be between 0 and %g, got %v", id, MaxRating, rating)
	}

	return Product{
		id:          id,
		title:       title,
		brand:       brand,
		description: description,
		category:    category,
		price:       price,
		rating:      rating,
	}, nil
}

// Reconstruct creates a Product without validation (storage hydration).
func Reconstruct(id, title, brand, description, category string, price, rating float64) Product {
	return Product{
		id: id, title: title, brand: brand, description: description,
		category: category, price: price, rating: rating,
	}
}

// WithVector returns a copy carrying the embedding used by the vector index.
func (p Product) WithVector(vec []float32) Product {
	p.vector = vec
	return p
}

// ID returns the product identifier.
func (p *Product) ID() string { return p.id }

// Title returns the product title.
func (p *Product) Title() string { return p.title }

// Brand returns the product brand.
func (p *Product) Brand() string { return p.brand }

// Description returns the product description.
func (p *Product) Description() string { return p.description }

// Category returns the product category.
func (p *Product) Category() string { return p.category }

// Price returns the product price.
func (p *Product) Price() float64 { return p.price }

// Rating returns the product rating on a 0..MaxRating scale.
func (p *Product) Rating() float64 { return p.rating }

// Vector returns the embedding vector. Empty for hydrated records.
func (p *Product) Vector() []float32 { return p.vector }

// EmbeddingText returns the text the product is embedded from.
func (p *Product) EmbeddingText() string {
	return p.title + " " + p.brand + " " + p.description
}
