package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/candidate"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	"github.com/kailas-cloud/prodsearch/internal/logger"
	"github.com/kailas-cloud/prodsearch/internal/metrics"
)

// Source outcome labels.
const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeTimeout = "timeout"
	outcomeSkipped = "skipped"
)

// Config holds the orchestration policy.
type Config struct {
	Weights        Weights
	PoolFactor     int           // candidates requested per source = PoolFactor × limit
	MaxLimit       int           // larger limits are clamped
	MaxQueryLength int           // in runes
	SourceTimeout  time.Duration // per source call; zero disables the bound
	// Degrade serves the surviving source when the other one fails.
	Degrade bool
}

// DefaultConfig returns the default orchestration policy.
func DefaultConfig() Config {
	return Config{
		Weights:        DefaultWeights(),
		PoolFactor:     2,
		MaxLimit:       100,
		MaxQueryLength: 4096,
		SourceTimeout:  2 * time.Second,
		Degrade:        true,
	}
}

// Deps are the collaborators of the search pipeline. Embedder and Semantic
// may both be nil for keyword-only search.
type Deps struct {
	Normalizer Normalizer
	Keyword    KeywordSource
	Semantic   SemanticSource
	Embedder   Embedder
	Products   Hydrator
}

// Response is the outcome of one search.
type Response struct {
	Results []result.Ranked
	Query   string // cleaned query text
	Filters filter.Set
	Elapsed time.Duration
}

// ElapsedMs returns the wall-clock duration in milliseconds.
func (r *Response) ElapsedMs() float64 {
	return float64(r.Elapsed) / float64(time.Millisecond)
}

// Service runs the hybrid search pipeline: normalize, fan out to both sources,
// hydrate the union of candidates, fuse and truncate.
type Service struct {
	deps   Deps
	fuser  *Fuser
	cfg    Config
	logger *zap.Logger
}

// New creates a search service.
func New(deps Deps, cfg Config, logger *zap.Logger) *Service {
	if cfg.PoolFactor <= 0 {
		cfg.PoolFactor = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{deps: deps, fuser: NewFuser(cfg.Weights), cfg: cfg, logger: logger}
}

// Search returns at most limit ranked products for the raw query.
func (s *Service) Search(ctx context.Context, raw string, limit int) (Response, error) {
	start := time.Now()
	resp, err := s.search(ctx, raw, limit)
	resp.Elapsed = time.Since(start)

	metrics.SearchRequestDuration.WithLabelValues(statusLabel(err)).Observe(resp.Elapsed.Seconds())
	if err == nil {
		metrics.SearchResults.Observe(float64(len(resp.Results)))
	}
	return resp, err
}

func (s *Service) search(ctx context.Context, raw string, limit int) (Response, error) {
	if strings.TrimSpace(raw) == "" {
		return Response{}, fmt.Errorf("%w: query must not be blank", domain.ErrInvalidQuery)
	}
	if s.cfg.MaxQueryLength > 0 && utf8.RuneCountInString(raw) > s.cfg.MaxQueryLength {
		return Response{}, fmt.Errorf("%w: query exceeds %d characters", domain.ErrInvalidQuery, s.cfg.MaxQueryLength)
	}
	if limit <= 0 {
		return Response{}, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidQuery, limit)
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	log := logger.FromContextOr(ctx, s.logger)

	clean, filters := s.deps.Normalizer.Normalize(raw)
	if err := filters.Validate(); err != nil {
		return Response{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	log.Debug("query normalized",
		zap.String("clean", clean),
		zap.Stringer("filters", filters),
		zap.Int("limit", limit))

	resp := Response{Query: clean, Filters: filters, Results: []result.Ranked{}}
	if clean == "" {
		metrics.SearchSourceTotal.WithLabelValues(string(candidate.SourceKeyword), outcomeSkipped).Inc()
		metrics.SearchSourceTotal.WithLabelValues(string(candidate.SourceSemantic), outcomeSkipped).Inc()
		return resp, nil
	}

	semantic, keyword, err := s.retrieve(ctx, log, clean, filters, limit*s.cfg.PoolFactor)
	if err != nil {
		return Response{}, err
	}

	ids := candidate.UnionIDs(semantic, keyword)
	if len(ids) == 0 {
		return resp, nil
	}

	products, err := s.deps.Products.Hydrate(ctx, ids)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		return Response{}, fmt.Errorf("%w: hydrate: %w", domain.ErrUpstreamUnavailable, err)
	}
	if misses := len(ids) - len(products); misses > 0 {
		metrics.SearchHydrationMissesTotal.Add(float64(misses))
		log.Debug("hydration misses", zap.Int("misses", misses), zap.Int("candidates", len(ids)))
	}

	ranked, err := s.fuser.Fuse(semantic, keyword, products)
	if err != nil {
		return Response{}, fmt.Errorf("fuse: %w", err)
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	resp.Results = ranked
	return resp, nil
}

// retrieve queries both sources concurrently and applies the degradation policy.
func (s *Service) retrieve(
	ctx context.Context, log *zap.Logger, clean string, filters filter.Set, pool int,
) (semantic, keyword []candidate.Result, err error) {
	var semErr, kwErr error
	active := 2

	// Branches report through semErr/kwErr and never fail the group,
	// so one failing source does not cancel the other.
	var g errgroup.Group
	if s.semanticEnabled() {
		g.Go(func() error {
			semantic, semErr = s.callSource(ctx, candidate.SourceSemantic, func(ctx context.Context) ([]candidate.Result, error) {
				emb, err := s.deps.Embedder.Embed(ctx, clean)
				if err != nil {
					return nil, fmt.Errorf("embed query: %w", err)
				}
				domain.UsageFromContext(ctx).Record(emb)
				return s.deps.Semantic.Search(ctx, emb.Embedding, pool)
			})
			return nil
		})
	} else {
		active--
		metrics.SearchSourceTotal.WithLabelValues(string(candidate.SourceSemantic), outcomeSkipped).Inc()
	}
	g.Go(func() error {
		keyword, kwErr = s.callSource(ctx, candidate.SourceKeyword, func(ctx context.Context) ([]candidate.Result, error) {
			return s.deps.Keyword.Search(ctx, clean, filters, pool)
		})
		return nil
	})
	_ = g.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}

	var failed []error
	if semErr != nil {
		failed = append(failed, &domain.SourceError{Source: string(candidate.SourceSemantic), Err: semErr})
		semantic = nil
	}
	if kwErr != nil {
		failed = append(failed, &domain.SourceError{Source: string(candidate.SourceKeyword), Err: kwErr})
		keyword = nil
	}

	switch {
	case len(failed) == 0:
		return semantic, keyword, nil
	case len(failed) == active || !s.cfg.Degrade:
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, errors.Join(failed...))
	}

	log.Warn("candidate source degraded to empty", zap.Error(failed[0]))
	return semantic, keyword, nil
}

// semanticEnabled reports whether an embedder and a vector source are configured.
// Without them the service answers from keyword search alone.
func (s *Service) semanticEnabled() bool {
	return s.deps.Embedder != nil && s.deps.Semantic != nil
}

// callSource runs one source call under the per-source timeout and records its outcome.
func (s *Service) callSource(
	ctx context.Context, src candidate.Source, call func(context.Context) ([]candidate.Result, error),
) ([]candidate.Result, error) {
	if s.cfg.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SourceTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := call(ctx)
	metrics.SearchSourceDuration.WithLabelValues(string(src)).Observe(time.Since(start).Seconds())

	outcome := outcomeOK
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome = outcomeTimeout
	default:
		outcome = outcomeError
	}
	metrics.SearchSourceTotal.WithLabelValues(string(src), outcome).Inc()

	return res, err
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid"
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
