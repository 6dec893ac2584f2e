// Package ingest loads a product feed into the product store and search index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	domprod "github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
)

// Row outcome labels.
const (
	outcomeIndexed = "indexed"
	outcomeInvalid = "invalid"
	outcomeFailed  = "failed"
)

// ProductWriter persists embedded products.
type ProductWriter interface {
	UpsertBatch(ctx context.Context, products []domprod.Product) error
}

// Config controls ingestion throughput.
type Config struct {
	Workers     int // concurrent embed+write batches
	BatchSize   int // products per embedding request
	ReportEvery int // progress log interval in rows
}

// Stats summarizes one ingestion run.
type Stats struct {
	Read    int64 // rows read from the feed
	Indexed int64 // products embedded and written
	Invalid int64 // rows skipped as malformed
	Failed  int64 // valid rows lost to embedding or write errors
}

// Service embeds feed rows in batches and writes them through a bounded worker pool.
type Service struct {
	writer ProductWriter
	embed  domain.Embedder
	cfg    Config
	logger *zap.Logger
}

// New creates an ingestion service.
func New(writer ProductWriter, embed domain.Embedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.ReportEvery <= 0 {
		cfg.ReportEvery = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{writer: writer, embed: embed, cfg: cfg, logger: logger}
}

type counters struct {
	read, indexed, invalid, failed atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Read:    c.read.Load(),
		Indexed: c.indexed.Load(),
		Invalid: c.invalid.Load(),
		Failed:  c.failed.Load(),
	}
}

// Run ingests the whole feed. Malformed rows and failed batches are counted and
// skipped; only an unreadable feed or cancellation aborts the run.
func (s *Service) Run(ctx context.Context, feed io.Reader) (Stats, error) {
	reader, err := NewReader(feed)
	if err != nil {
		return Stats{}, err
	}

	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return Stats{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		c     counters
		wg    sync.WaitGroup
		batch = make([]domprod.Product, 0, s.cfg.BatchSize)
		start = time.Now()
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		items := batch
		batch = make([]domprod.Product, 0, s.cfg.BatchSize)

		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			s.processBatch(ctx, items, &c)
		}); err != nil {
			wg.Done()
			return fmt.Errorf("submit batch: %w", err)
		}
		return nil
	}

	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		p, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			c.read.Add(1)
			c.invalid.Add(1)
			metrics.IngestRowsTotal.WithLabelValues(outcomeInvalid).Inc()
			s.logger.Warn("Skipping invalid feed row", zap.Int("line", rowErr.Line), zap.Error(rowErr.Err))
			continue
		}
		if err != nil {
			runErr = fmt.Errorf("read feed: %w", err)
			break
		}

		if n := c.read.Add(1); n%int64(s.cfg.ReportEvery) == 0 {
			st := c.snapshot()
			s.logger.Info("Ingestion progress",
				zap.Int64("read", st.Read),
				zap.Int64("indexed", st.Indexed),
				zap.Int64("invalid", st.Invalid),
				zap.Int64("failed", st.Failed),
			)
		}

		batch = append(batch, p)
		if len(batch) >= s.cfg.BatchSize {
			if err := flush(); err != nil {
				runErr = err
				break
			}
		}
	}

	if runErr == nil {
		runErr = flush()
	}
	wg.Wait()

	st := c.snapshot()
	s.logger.Info("Ingestion finished",
		zap.Int64("read", st.Read),
		zap.Int64("indexed", st.Indexed),
		zap.Int64("invalid", st.Invalid),
		zap.Int64("failed", st.Failed),
		zap.Duration("duration", time.Since(start)),
	)

	return st, runErr
}

func (s *Service) processBatch(ctx context.Context, items []domprod.Product, c *counters) {
	start := time.Now()
	defer func() { metrics.IngestBatchDuration.Observe(time.Since(start).Seconds()) }()

	fail := func(stage string, err error) {
		c.failed.Add(int64(len(items)))
		metrics.IngestRowsTotal.WithLabelValues(outcomeFailed).Add(float64(len(items)))
		s.logger.Error("Ingestion batch failed",
			zap.String("stage", stage),
			zap.String("first_id", items[0].ID()),
			zap.Int("size", len(items)),
			zap.Error(err),
		)
	}

	texts := make([]string, len(items))
	for i := range items {
		texts[i] = items[i].EmbeddingText()
	}

	res, err := domain.BatchEmbed(ctx, s.embed, texts)
	if err != nil {
		fail("embed", err)
		return
	}
	if len(res.Embeddings) != len(items) {
		fail("embed", fmt.Errorf("expected %d embeddings, got %d: %w",
			len(items), len(res.Embeddings), domain.ErrEmbeddingProviderError))
		return
	}

	for i := range items {
		items[i] = items[i].WithVector(res.Embeddings[i])
	}

	if err := s.writer.UpsertBatch(ctx, items); err != nil {
		fail("write", err)
		return
	}

	c.indexed.Add(int64(len(items)))
	metrics.IngestRowsTotal.WithLabelValues(outcomeIndexed).Add(float64(len(items)))
}
