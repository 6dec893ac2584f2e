package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates that search still answers, possibly from one source only.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable and no search can be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckMissing indicates the product index has not been created yet.
	CheckMissing CheckResult = "missing"
)

// Component names in Report.Checks.
const (
	ComponentDatabase  = "database"
	ComponentIndex     = "index"
	ComponentEmbedding = "embedding"
)

// DefaultCheckTimeout bounds every individual check.
const DefaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	index     IndexChecker
	embedding EmbeddingChecker
	timeout   time.Duration
}

// New creates a Service. index and embedding can be nil.
func New(db DBPinger, index IndexChecker, embedding EmbeddingChecker) *Service {
	return &Service{db: db, index: index, embedding: embedding, timeout: DefaultCheckTimeout}
}

// WithTimeout overrides the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs all component checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, 3)
	)
	set := func(name string, r CheckResult) {
		mu.Lock()
		checks[name] = r
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		set(ComponentDatabase, s.run(ctx, s.db.Ping))
		return nil
	})
	if s.index != nil {
		g.Go(func() error {
			set(ComponentIndex, s.checkIndex(ctx))
			return nil
		})
	}
	if s.embedding != nil {
		g.Go(func() error {
			set(ComponentEmbedding, s.run(ctx, s.embedding.HealthCheck))
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}
	if checks[ComponentDatabase] != CheckOK {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := check(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}

func (s *Service) checkIndex(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := s.index.Exists(ctx)
	switch {
	case err != nil:
		return CheckError
	case !ok:
		return CheckMissing
	default:
		return CheckOK
	}
}
