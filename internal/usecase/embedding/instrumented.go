package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

// DefaultMaxAPIBatchSize is the largest batch sent in one provider request.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder wraps an embedder with logging, request chunking and a
// dimension check against the vector index. Transport metrics live in transport/openai.
type InstrumentedEmbedder struct {
	inner      domain.Embedder
	provider   string
	model      string
	dimensions int // 0 disables the check
	maxBatch   int
	logger     *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. Every vector must have exactly dimensions
// components unless dimensions is 0.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, dimensions int, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:      inner,
		provider:   provider,
		model:      model,
		dimensions: dimensions,
		maxBatch:   DefaultMaxAPIBatchSize,
		logger:     logger,
	}
}

// WithMaxBatch overrides the per-request chunk size.
func (p *InstrumentedEmbedder) WithMaxBatch(n int) *InstrumentedEmbedder {
	if n > 0 {
		p.maxBatch = n
	}
	return p
}

// Embed delegates to the inner embedder and validates the vector size.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	if err := p.checkDim(result.Embedding); err != nil {
		return domain.EmbeddingResult{}, err
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Bool("cached", result.Cached),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// BatchEmbed splits texts into provider-sized chunks and validates every vector.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()

	result, err := p.embedChunked(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	for i, vec := range result.Embeddings {
		if err := p.checkDim(vec); err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("text %d: %w", i, err)
		}
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

func (p *InstrumentedEmbedder) embedChunked(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}

	for offset := 0; offset < len(texts); offset += p.maxBatch {
		end := min(offset+p.maxBatch, len(texts))
		chunk := texts[offset:end]

		res, err := domain.BatchEmbed(ctx, p.inner, chunk)
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, err
		}
		if len(res.Embeddings) != len(chunk) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf(
				"chunk at %d: expected %d embeddings, got %d: %w",
				offset, len(chunk), len(res.Embeddings), domain.ErrEmbeddingProviderError)
		}

		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	return out, nil
}

func (p *InstrumentedEmbedder) checkDim(vec []float32) error {
	if p.dimensions > 0 && len(vec) != p.dimensions {
		return fmt.Errorf("%w: provider %s/%s returned %d, index expects %d",
			domain.ErrVectorDimMismatch, p.provider, p.model, len(vec), p.dimensions)
	}
	return nil
}
