package prodsearch

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs         []string
	password      string
	keyPrefix     string
	embedder      Embedder
	dimensions    int
	categories    []string
	weights       *Weights
	hnswM         int
	hnswEF        int
	sourceTimeout time.Duration
	strict        bool
	logger        *zap.Logger
}

// WithRedis sets the Redis 8 address and password.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithKeyPrefix namespaces every key and the index name.
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) { c.keyPrefix = prefix }
}

// WithEmbedder sets the text embedder and the vector dimensions it produces.
func WithEmbedder(e Embedder, dimensions int) Option {
	return func(c *clientConfig) {
		c.embedder = e
		c.dimensions = dimensions
	}
}

// WithCategories replaces the category vocabulary recognized in queries.
func WithCategories(categories ...string) Option {
	return func(c *clientConfig) { c.categories = categories }
}

// WithWeights overrides the fusion weights.
func WithWeights(w Weights) Option {
	return func(c *clientConfig) { c.weights = &w }
}

// WithHNSW sets the HNSW graph parameters of the vector field.
func WithHNSW(m, efConstruct int) Option {
	return func(c *clientConfig) {
		c.hnswM = m
		c.hnswEF = efConstruct
	}
}

// WithSourceTimeout bounds each candidate source call.
func WithSourceTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.sourceTimeout = d }
}

// WithStrictSources fails a search when either candidate source fails
// instead of serving the surviving one.
func WithStrictSources() Option {
	return func(c *clientConfig) { c.strict = true }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}
