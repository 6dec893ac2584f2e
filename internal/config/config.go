package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the prodsearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Empty APIKeys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the embedding provider and cache settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	// SendDimensions forwards Dimensions to the API. Off for fixed-size models.
	SendDimensions bool `yaml:"send_dimensions"`
	TimeoutSec     int  `yaml:"timeout_sec"`
	CacheTTLSec    int  `yaml:"cache_ttl_sec"` // 0 = no expiry
}

// SearchConfig holds fusion weights and request limits.
type SearchConfig struct {
	Weights         WeightsConfig `yaml:"weights"`
	Categories      []string      `yaml:"categories"`
	PoolFactor      int           `yaml:"pool_factor"`
	DefaultLimit    int           `yaml:"default_limit"`
	MaxLimit        int           `yaml:"max_limit"`
	MaxQueryLength  int           `yaml:"max_query_length"`
	SourceTimeoutMs int           `yaml:"source_timeout_ms"`
	// Degrade treats a failed source as empty. Nil means true.
	Degrade *bool `yaml:"degrade"`
}

// WeightsConfig holds the score fusion weights.
type WeightsConfig struct {
	Semantic             float64 `yaml:"semantic"`
	Keyword              float64 `yaml:"keyword"`
	Rating               float64 `yaml:"rating"`
	RatingExplainMin     float64 `yaml:"rating_explain_min"`
	PriceBoost           float64 `yaml:"price_boost"`
	DisablePriceBoost    bool    `yaml:"disable_price_boost"`
	DisableRatingExplain bool    `yaml:"disable_rating_explain"`
}

// IndexConfig holds FT index settings.
type IndexConfig struct {
	Algorithm   string  `yaml:"algorithm"` // hnsw, flat
	HNSWM       int     `yaml:"hnsw_m"`
	EFConstruct int     `yaml:"hnsw_ef_construction"`
	TitleWeight float64 `yaml:"title_weight"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IngestConfig holds catalog ingestion settings.
type IngestConfig struct {
	File        string `yaml:"file"`
	Workers     int    `yaml:"workers"`
	BatchSize   int    `yaml:"batch_size"`
	ReportEvery int    `yaml:"report_every"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands env variables, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	c.Embedding.applyDefaults()
	c.Search.applyDefaults()

	if c.Index.Algorithm == "" {
		c.Index.Algorithm = "hnsw"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.EFConstruct <= 0 {
		c.Index.EFConstruct = 200
	}
	if c.Index.TitleWeight <= 0 {
		c.Index.TitleWeight = 3
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "prodsearch:"
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 4
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 64
	}
	if c.Ingest.ReportEvery <= 0 {
		c.Ingest.ReportEvery = 1000
	}
}

func (e *EmbeddingConfig) applyDefaults() {
	if e.Provider == "" {
		e.Provider = "local"
	}
	if e.Model == "" {
		e.Model = "all-MiniLM-L6-v2"
	}
	if e.Dimensions <= 0 {
		e.Dimensions = 384
	}
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 10
	}
}

func (s *SearchConfig) applyDefaults() {
	w := &s.Weights
	if w.Semantic == 0 && w.Keyword == 0 && w.Rating == 0 {
		w.Semantic, w.Keyword, w.Rating = 0.5, 0.3, 0.1
	}
	if w.RatingExplainMin == 0 && !w.DisableRatingExplain {
		w.RatingExplainMin = 0.08
	}
	if w.PriceBoost == 0 && !w.DisablePriceBoost {
		w.PriceBoost = 0.1
	}
	if len(s.Categories) == 0 {
		s.Categories = []string{"laptop", "headphones", "phone", "watch", "camera"}
	}
	if s.PoolFactor <= 0 {
		s.PoolFactor = 2
	}
	if s.DefaultLimit <= 0 {
		s.DefaultLimit = 10
	}
	if s.MaxLimit <= 0 {
		s.MaxLimit = 100
	}
	if s.MaxQueryLength <= 0 {
		s.MaxQueryLength = 4096
	}
	if s.SourceTimeoutMs <= 0 {
		s.SourceTimeoutMs = 2000
	}
	if s.Degrade == nil {
		d := true
		s.Degrade = &d
	}
}

// DegradeEnabled reports whether a failed source is tolerated.
func (s SearchConfig) DegradeEnabled() bool {
	return s.Degrade == nil || *s.Degrade
}

// SourceTimeout returns the per-source deadline.
func (s SearchConfig) SourceTimeout() time.Duration {
	return time.Duration(s.SourceTimeoutMs) * time.Millisecond
}

// CacheTTL returns the embedding cache TTL; zero means no expiry.
func (e EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLSec) * time.Second
}

// Timeout returns the embedding request timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSec) * time.Second
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return errors.New("database.addrs is required")
	}
	if c.Embedding.BaseURL == "" {
		return errors.New("embedding.base_url is required")
	}

	weights := []struct {
		name string
		v    float64
	}{
		{"semantic", c.Search.Weights.Semantic},
		{"keyword", c.Search.Weights.Keyword},
		{"rating", c.Search.Weights.Rating},
		{"rating_explain_min", c.Search.Weights.RatingExplainMin},
		{"price_boost", c.Search.Weights.PriceBoost},
	}
	for _, w := range weights {
		if math.IsNaN(w.v) || math.IsInf(w.v, 0) || w.v < 0 {
			return fmt.Errorf("search.weights.%s must be a non-negative number, got %v", w.name, w.v)
		}
	}

	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	for i, cat := range c.Search.Categories {
		if strings.TrimSpace(cat) == "" {
			return fmt.Errorf("search.categories[%d] must not be blank", i)
		}
	}

	switch strings.ToLower(c.Index.Algorithm) {
	case "hnsw", "flat":
	default:
		return fmt.Errorf("index.algorithm must be \"hnsw\" or \"flat\", got %q", c.Index.Algorithm)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests and `go run` from subdirectories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
