package embedding

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

type mockEmbedder struct {
	result      domain.EmbeddingResult
	err         error
	batchResult domain.BatchEmbeddingResult
	batchErr    error
	batchCalls  int
	chunkSizes  []int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.chunkSizes = append(m.chunkSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	if m.batchResult.Embeddings != nil {
		return m.batchResult, nil
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// plainMockEmbedder has no native batch support.
type plainMockEmbedder struct {
	vec   []float32
	calls int
}

func (m *plainMockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 1}, nil
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1, 0.2, 0.3},
		TotalTokens: 7,
	}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 3, zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Embedding))
	}
	if result.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d, want 7", result.TotalTokens)
	}
}

func TestInstrumentedEmbedder_DimMismatch(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 384, zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestInstrumentedEmbedder_DimCheckDisabled(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 0, zap.NewNop())

	if _, err := p.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 3, zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1, 0.2},
		TotalTokens: 5,
	}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 2, zap.NewNop())

	result, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(result.Embeddings))
	}
	if result.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", result.TotalTokens)
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected 1 batch call, got %d", inner.batchCalls)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 2, zap.NewNop())

	result, err := p.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Embeddings != nil {
		t.Errorf("expected nil embeddings, got %v", result.Embeddings)
	}
	if inner.batchCalls != 0 {
		t.Error("inner must not be called for empty input")
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Chunks(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 1}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 1, zap.NewNop()).WithMaxBatch(2)

	result, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embeddings) != 5 || result.TotalTokens != 5 {
		t.Fatalf("result = %d embeddings / %d tokens", len(result.Embeddings), result.TotalTokens)
	}
	want := []int{2, 2, 1}
	if len(inner.chunkSizes) != len(want) {
		t.Fatalf("chunks = %v, want %v", inner.chunkSizes, want)
	}
	for i := range want {
		if inner.chunkSizes[i] != want[i] {
			t.Errorf("chunk %d size = %d, want %d", i, inner.chunkSizes[i], want[i])
		}
	}
}

func TestInstrumentedEmbedder_BatchEmbed_CountMismatch(t *testing.T) {
	inner := &mockEmbedder{batchResult: domain.BatchEmbeddingResult{Embeddings: [][]float32{{1}}}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 1, zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_DimMismatch(t *testing.T) {
	inner := &mockEmbedder{batchResult: domain.BatchEmbeddingResult{Embeddings: [][]float32{{1, 2}, {1}}}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 2, zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: domain.ErrEmbeddingProviderError}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 2, zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_FallbackToSingle(t *testing.T) {
	inner := &plainMockEmbedder{vec: []float32{0.5, 0.5}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", 2, zap.NewNop())

	result, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 single calls, got %d", inner.calls)
	}
	if len(result.Embeddings) != 3 || result.TotalTokens != 3 {
		t.Errorf("result = %d embeddings / %d tokens", len(result.Embeddings), result.TotalTokens)
	}
}
