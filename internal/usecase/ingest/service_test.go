package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockWriter struct {
	mu      sync.Mutex
	written map[string]domprod.Product
	batches int
	failIDs map[string]bool // a batch containing one of these IDs fails
}

func newMockWriter() *mockWriter {
	return &mockWriter{written: make(map[string]domprod.Product), failIDs: make(map[string]bool)}
}

func (m *mockWriter) UpsertBatch(_ context.Context, products []domprod.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	for i := range products {
		if m.failIDs[products[i].ID()] {
			return errors.New("pipeline write failed")
		}
	}
	for _, p := range products {
		m.written[p.ID()] = p
	}
	return nil
}

func (m *mockWriter) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.written))
	for id := range m.written {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type mockBatchEmbedder struct {
	mu      sync.Mutex
	calls   int
	texts   []string
	err     error
	dropOne bool
}

func (m *mockBatchEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New("single embed must not be used")
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.texts = append(m.texts, texts...)
	m.mu.Unlock()
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	n := len(texts)
	if m.dropOne {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 1}
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

func feed(rows int) string {
	var b strings.Builder
	b.WriteString("id,title,brand,description,category,price,rating\n")
	for i := range rows {
		fmt.Fprintf(&b, "p%03d,Title %d,Brand,Desc %d,laptop,%d,4\n", i, i, i, 100+i)
	}
	return b.String()
}

// --- Tests ---

func TestRun_IndexesAllRows(t *testing.T) {
	w := newMockWriter()
	emb := &mockBatchEmbedder{}
	svc := New(w, emb, Config{Workers: 3, BatchSize: 4, ReportEvery: 5}, zap.NewNop())

	before := testutil.ToFloat64(metrics.IngestRowsTotal.WithLabelValues(outcomeIndexed))

	st, err := svc.Run(context.Background(), strings.NewReader(feed(10)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st != (Stats{Read: 10, Indexed: 10}) {
		t.Errorf("stats = %+v", st)
	}
	if len(w.ids()) != 10 {
		t.Errorf("written = %d, want 10", len(w.ids()))
	}
	if emb.calls != 3 {
		t.Errorf("embed calls = %d, want 3 batches (4+4+2)", emb.calls)
	}
	for _, p := range w.written {
		if len(p.Vector()) != 2 {
			t.Fatalf("product %s written without vector", p.ID())
		}
	}
	if after := testutil.ToFloat64(metrics.IngestRowsTotal.WithLabelValues(outcomeIndexed)); after-before != 10 {
		t.Errorf("indexed metric delta = %v, want 10", after-before)
	}
}

func TestRun_EmbeddingText(t *testing.T) {
	emb := &mockBatchEmbedder{}
	svc := New(newMockWriter(), emb, Config{Workers: 1, BatchSize: 10}, zap.NewNop())

	data := "id,title,brand,description,price\n1,ZenBook,ASUS,Thin and light,500\n"
	if _, err := svc.Run(context.Background(), strings.NewReader(data)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(emb.texts) != 1 || emb.texts[0] != "ZenBook ASUS Thin and light" {
		t.Errorf("embedded texts = %q", emb.texts)
	}
}

func TestRun_SkipsInvalidRows(t *testing.T) {
	w := newMockWriter()
	svc := New(w, &mockBatchEmbedder{}, Config{Workers: 2, BatchSize: 2}, zap.NewNop())

	data := "id,title,price\n1,ok,10\n2,,10\n3,ok,abc\n4,ok,20\n"
	st, err := svc.Run(context.Background(), strings.NewReader(data))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st != (Stats{Read: 4, Indexed: 2, Invalid: 2}) {
		t.Errorf("stats = %+v", st)
	}
	if got := strings.Join(w.ids(), ","); got != "1,4" {
		t.Errorf("written = %s", got)
	}
}

func TestRun_BatchFailureIsIsolated(t *testing.T) {
	w := newMockWriter()
	w.failIDs["p001"] = true
	svc := New(w, &mockBatchEmbedder{}, Config{Workers: 2, BatchSize: 2}, zap.NewNop())

	st, err := svc.Run(context.Background(), strings.NewReader(feed(6)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st != (Stats{Read: 6, Indexed: 4, Failed: 2}) {
		t.Errorf("stats = %+v", st)
	}
	if got := strings.Join(w.ids(), ","); got != "p002,p003,p004,p005" {
		t.Errorf("written = %s", got)
	}
}

func TestRun_EmbeddingFailure(t *testing.T) {
	svc := New(newMockWriter(), &mockBatchEmbedder{err: domain.ErrEmbeddingProviderError},
		Config{Workers: 1, BatchSize: 5}, zap.NewNop())

	st, err := svc.Run(context.Background(), strings.NewReader(feed(7)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Failed != 7 || st.Indexed != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRun_EmbeddingCountMismatch(t *testing.T) {
	w := newMockWriter()
	svc := New(w, &mockBatchEmbedder{dropOne: true}, Config{Workers: 1, BatchSize: 3}, zap.NewNop())

	st, err := svc.Run(context.Background(), strings.NewReader(feed(3)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Failed != 3 || len(w.ids()) != 0 {
		t.Errorf("stats = %+v, written = %v", st, w.ids())
	}
}

func TestRun_BadHeader(t *testing.T) {
	svc := New(newMockWriter(), &mockBatchEmbedder{}, Config{}, zap.NewNop())

	if _, err := svc.Run(context.Background(), strings.NewReader("name,cost\nx,1\n")); err == nil {
		t.Fatal("expected header error")
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := newMockWriter()
	svc := New(w, &mockBatchEmbedder{}, Config{Workers: 1, BatchSize: 2}, zap.NewNop())

	st, err := svc.Run(ctx, strings.NewReader(feed(10)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if st.Read != 0 || len(w.ids()) != 0 {
		t.Errorf("nothing should be ingested after cancellation: %+v", st)
	}
}
