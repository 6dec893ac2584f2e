package chi

// ErrorResponseCode is the machine-readable error code returned to clients.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest             ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized           ErrorResponseCode = "unauthorized"
	ErrorResponseCodeInvalidQuery           ErrorResponseCode = "invalid_query"
	ErrorResponseCodeUpstreamUnavailable    ErrorResponseCode = "upstream_unavailable"
	ErrorResponseCodeEmbeddingProviderError ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeTimeout                ErrorResponseCode = "timeout"
	ErrorResponseCodeInternalError          ErrorResponseCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// ProductResponse is the public view of a product. The stored vector is never exposed.
type ProductResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Brand       string  `json:"brand"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Rating      float64 `json:"rating"`
}

// SearchResultItem is one ranked product.
type SearchResultItem struct {
	Product     ProductResponse `json:"product"`
	Score       float64         `json:"score"`
	Explanation []string        `json:"explanation"`
}

// SearchResponse is the body of GET /api/v1/search.
type SearchResponse struct {
	Results         []SearchResultItem `json:"results"`
	Total           int                `json:"total"`
	ExecutionTimeMs float64            `json:"execution_time_ms"`
}

// SearchParams are the query parameters of GET /api/v1/search.
type SearchParams struct {
	Q     string `form:"q" json:"q"`
	Limit *int   `form:"limit,omitempty" json:"limit,omitempty"`
}

// WelcomeResponse is the body of GET /.
type WelcomeResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health and GET /ready.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
