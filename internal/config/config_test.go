package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Database:  DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{BaseURL: "http://localhost:7997/v1"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Search.Weights.Semantic != 0.5 || cfg.Search.Weights.Keyword != 0.3 || cfg.Search.Weights.Rating != 0.1 {
		t.Errorf("weights = %+v", cfg.Search.Weights)
	}
	if cfg.Search.Weights.RatingExplainMin != 0.08 || cfg.Search.Weights.PriceBoost != 0.1 {
		t.Errorf("explain/boost = %+v", cfg.Search.Weights)
	}
	want := []string{"laptop", "headphones", "phone", "watch", "camera"}
	if strings.Join(cfg.Search.Categories, ",") != strings.Join(want, ",") {
		t.Errorf("categories = %v", cfg.Search.Categories)
	}
	if cfg.Search.PoolFactor != 2 || cfg.Search.DefaultLimit != 10 || cfg.Search.MaxLimit != 100 {
		t.Errorf("limits = %+v", cfg.Search)
	}
	if !cfg.Search.DegradeEnabled() {
		t.Error("degrade should default to true")
	}
	if cfg.Search.SourceTimeout() != 2*time.Second {
		t.Errorf("source timeout = %v", cfg.Search.SourceTimeout())
	}
	if cfg.Embedding.Model != "all-MiniLM-L6-v2" || cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Storage.KeyPrefix != "prodsearch:" {
		t.Errorf("key prefix = %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Index.Algorithm != "hnsw" || cfg.Index.TitleWeight != 3 {
		t.Errorf("index = %+v", cfg.Index)
	}
}

func TestApplyDefaults_DisabledBoosts(t *testing.T) {
	cfg := Config{Search: SearchConfig{Weights: WeightsConfig{
		Semantic:             1,
		DisablePriceBoost:    true,
		DisableRatingExplain: true,
	}}}
	cfg.ApplyDefaults()

	if cfg.Search.Weights.PriceBoost != 0 {
		t.Errorf("price boost = %v, want 0", cfg.Search.Weights.PriceBoost)
	}
	if cfg.Search.Weights.RatingExplainMin != 0 {
		t.Errorf("rating explain = %v, want 0", cfg.Search.Weights.RatingExplainMin)
	}
	if cfg.Search.Weights.Keyword != 0 {
		t.Error("explicit weights must not be overwritten")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"no addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"no base url", func(c *Config) { c.Embedding.BaseURL = "" }, "embedding.base_url"},
		{"negative weight", func(c *Config) { c.Search.Weights.Keyword = -0.1 }, "search.weights.keyword"},
		{"default above max", func(c *Config) { c.Search.DefaultLimit = 500 }, "search.default_limit"},
		{"blank category", func(c *Config) { c.Search.Categories = []string{"laptop", " "} }, "search.categories[1]"},
		{"bad algorithm", func(c *Config) { c.Index.Algorithm = "ivf" }, "index.algorithm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("PRODSEARCH_TEST_REDIS", "redis:6380")

	data := []byte(`
http:
  port: 8080
database:
  addrs: ["${PRODSEARCH_TEST_REDIS}"]
embedding:
  base_url: "${PRODSEARCH_TEST_UNSET:-http://embedder:7997/v1}"
search:
  degrade: false
  max_limit: 50
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Database.Addrs[0] != "redis:6380" {
		t.Errorf("addrs = %v", cfg.Database.Addrs)
	}
	if cfg.Embedding.BaseURL != "http://embedder:7997/v1" {
		t.Errorf("base_url = %q", cfg.Embedding.BaseURL)
	}
	if cfg.Search.DegradeEnabled() {
		t.Error("degrade: false must be honored")
	}
	if cfg.Search.MaxLimit != 50 {
		t.Errorf("max_limit = %d", cfg.Search.MaxLimit)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected YAML error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("GetEnv() = %q, want local", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("GetEnv() = %q, want prod", got)
	}
}
