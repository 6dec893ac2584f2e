package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/prodsearch/internal/logger"
	healthuc "github.com/kailas-cloud/prodsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/prodsearch/internal/usecase/search"
)

const welcomeMessage = "Welcome to Hybrid Product Search API"

// DefaultLimit is used when the client omits ?limit=.
const DefaultLimit = 10

// SearchService runs hybrid searches.
type SearchService interface {
	Search(ctx context.Context, raw string, limit int) (searchuc.Response, error)
}

// HealthService reports component readiness.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements the HTTP API on top of the use cases.
type Server struct {
	search        SearchService
	health        HealthService
	defaultLimit  int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates a Server.
func NewServer(search SearchService, health HealthService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:       search,
		health:       health,
		defaultLimit: DefaultLimit,
		logger:       logger,
	}
	// Order matters: a joined source failure may also carry an embedding error.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorResponseCodeInvalidQuery),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, ErrorResponseCodeInvalidQuery),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable,
			ErrorResponseCodeUpstreamUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway,
			ErrorResponseCodeEmbeddingProviderError),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorResponseCodeTimeout),
	}
	return s
}

// WithDefaultLimit overrides the limit applied when the client omits one.
func (s *Server) WithDefaultLimit(n int) *Server {
	if n > 0 {
		s.defaultLimit = n
	}
	return s
}

// Routes registers all endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	r.Get("/ready", s.ReadyCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.Search)
	})
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, WelcomeResponse{Message: welcomeMessage})
}

// HealthCheck handles GET /health. It only reports that the process is serving.
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: string(healthuc.Healthy)})
}

// ReadyCheck handles GET /ready.
func (s *Server) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	limit := s.defaultLimit
	if params.Limit != nil {
		limit = *params.Limit
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Search(ctx, params.Q, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	logpkg.FromContextOr(r.Context(), s.logger).Debug("search served",
		zap.String("query", resp.Query),
		zap.Stringer("filters", resp.Filters),
		zap.Int("results", len(resp.Results)),
	)

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponse(&resp))
}

func bindSearchParams(r *http.Request) (SearchParams, error) {
	var params SearchParams
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "q", query, &params.Q); err != nil {
		return params, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &params.Limit); err != nil {
		return params, err
	}
	return params, nil
}

func searchResponse(resp *searchuc.Response) SearchResponse {
	items := make([]SearchResultItem, len(resp.Results))
	for i := range resp.Results {
		items[i] = rankedToResponse(&resp.Results[i])
	}
	return SearchResponse{
		Results:         items,
		Total:           len(items),
		ExecutionTimeMs: resp.ElapsedMs(),
	}
}

func rankedToResponse(r *result.Ranked) SearchResultItem {
	p := r.Product()
	expl := r.Explanation()
	if expl == nil {
		expl = []string{}
	}
	return SearchResultItem{
		Product: ProductResponse{
			ID:          p.ID(),
			Title:       p.Title(),
			Brand:       p.Brand(),
			Description: p.Description(),
			Category:    p.Category(),
			Price:       p.Price(),
			Rating:      p.Rating(),
		},
		Score:       r.Score(),
		Explanation: expl,
	}
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
		if usage.CacheHit {
			w.Header().Set("X-Embedding-Cache", "hit")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrInvalidFilter,
		domain.ErrUpstreamUnavailable,
		domain.ErrEmbeddingProviderError,
		context.DeadlineExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	if errors.Is(err, context.Canceled) {
		// Client went away; nobody reads the body.
		log.Debug("search canceled", zap.Error(err))
		w.WriteHeader(statusClientClosedRequest)
		return
	}
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

// statusClientClosedRequest is the nginx convention for a request the client abandoned.
const statusClientClosedRequest = 499
