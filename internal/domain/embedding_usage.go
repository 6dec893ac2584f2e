package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects query embedding usage for a single search request.
// The handler places a pointer in the context, the orchestrator records into it,
// and the handler reads it back for response headers.
type EmbeddingUsage struct {
	TotalTokens int
	Used        bool
	CacheHit    bool
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Record stores the usage of one embedding call. Safe on a nil receiver.
func (u *EmbeddingUsage) Record(res EmbeddingResult) {
	if u == nil {
		return
	}
	u.TotalTokens += res.TotalTokens
	u.Used = true
	u.CacheHit = res.Cached
}
