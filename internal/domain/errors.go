package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals an empty, blank or oversized query, or a bad limit.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidFilter signals a filter value that violates its type contract.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidCandidate signals a candidate score that fusion cannot use (NaN, Inf, negative).
	ErrInvalidCandidate = errors.New("invalid candidate")
	// ErrUpstreamUnavailable signals that a candidate source or the product store is unreachable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrProductNotFound signals a missing product record.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidProduct signals a product record that violates the data model.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// SourceError records which candidate source failed and why.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s source: %s", e.Source, e.Err.Error())
}

func (e *SourceError) Unwrap() error { return e.Err }
