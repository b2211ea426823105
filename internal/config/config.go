package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the readnext configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Recommend   RecommendConfig   `yaml:"recommend"`
	Corpus      CorpusConfig      `yaml:"corpus"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	CORS        CORSConfig        `yaml:"cors"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int  `yaml:"port"`
	ReadTimeoutSec  int  `yaml:"read_timeout_sec"`
	WriteTimeoutSec int  `yaml:"write_timeout_sec"`
	ShutdownSec     int  `yaml:"shutdown_timeout_sec"`
	TrustProxy      bool `yaml:"trust_proxy"`
}

// DatabaseConfig holds Redis-compatible store settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the OpenAI-compatible provider settings.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	Dimensions   int    `yaml:"dimensions"`
	TimeoutSec   int    `yaml:"timeout_sec"`
	MaxBatchSize int    `yaml:"max_batch_size"`
	Cache        struct {
		Enabled bool `yaml:"enabled"`
		TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
	} `yaml:"cache"`
}

// RecommendConfig holds pipeline tuning.
type RecommendConfig struct {
	Strategy          string  `yaml:"strategy"` // keyword, tag_embedding, tag_query, none
	Backend           string  `yaml:"backend"`  // store, qdrant
	Threshold         float64 `yaml:"threshold"`
	TagThreshold      float64 `yaml:"tag_threshold"`
	TopK              int     `yaml:"top_k"`
	MinCandidates     int     `yaml:"min_candidates"`
	MaxSample         int     `yaml:"max_sample"`
	TagTermCap        int     `yaml:"tag_term_cap"`
	FetchCap          int     `yaml:"fetch_cap"`
	ChunkSize         int     `yaml:"chunk_size"`
	Workers           int     `yaml:"workers"`
	Sampler           string  `yaml:"sampler"` // uniform, prefix
	Seed              uint64  `yaml:"seed"`
	GateAfterSampling bool    `yaml:"gate_after_sampling"`
	DescriptionWords  int     `yaml:"description_words"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// Timeout returns the pipeline deadline.
func (c RecommendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// CorpusConfig holds resource storage settings.
type CorpusConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
	MaxScan   int    `yaml:"max_scan"`
}

// VectorIndexConfig holds Qdrant settings. Enabled mirrors ingested
// resources into the collection even when the store backend serves queries.
type VectorIndexConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"tls"`
}

// CORSConfig holds browser origin settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds per-client limits for recommendation routes.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"` // 0 = disabled
	Burst int     `yaml:"burst"`
}

// CatalogConfig holds Google Books settings for ingestion.
type CatalogConfig struct {
	BaseURL    string  `yaml:"base_url"`
	APIKey     string  `yaml:"api_key"`
	TimeoutSec int     `yaml:"timeout_sec"`
	RPS        float64 `yaml:"rps"`
}

var defaultOrigins = []string{"https://culturebunker-keeper.vercel.app", "http://localhost:3000"}

// Load reads configuration for an environment name (local, dev, prod).
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

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	c.applyEmbeddingDefaults()
	c.applyRecommendDefaults()
	if c.Corpus.KeyPrefix == "" {
		c.Corpus.KeyPrefix = "readnext:resource:"
	}
	if c.Corpus.MaxScan <= 0 {
		c.Corpus.MaxScan = 5000
	}
	if c.VectorIndex.Port <= 0 {
		c.VectorIndex.Port = 6334
	}
	if c.VectorIndex.Collection == "" {
		c.VectorIndex.Collection = "readnext_resources"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = append([]string(nil), defaultOrigins...)
	}
	if c.Catalog.TimeoutSec <= 0 {
		c.Catalog.TimeoutSec = 30
	}
}

func (c *Config) applyEmbeddingDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}
}

func (c *Config) applyRecommendDefaults() {
	r := &c.Recommend
	if r.Strategy == "" {
		r.Strategy = "keyword"
	}
	if r.Backend == "" {
		r.Backend = "store"
	}
	if r.Threshold == 0 {
		r.Threshold = 0.4
	}
	if r.TagThreshold == 0 {
		r.TagThreshold = 0.4
	}
	if r.TopK <= 0 {
		r.TopK = 5
	}
	if r.MinCandidates <= 0 {
		r.MinCandidates = 5
	}
	if r.MaxSample <= 0 {
		r.MaxSample = 500
	}
	if r.TagTermCap <= 0 {
		r.TagTermCap = 10
	}
	if r.FetchCap <= 0 {
		r.FetchCap = 1000
	}
	if r.ChunkSize <= 0 {
		r.ChunkSize = 100
	}
	if r.Sampler == "" {
		r.Sampler = "uniform"
	}
	if r.DescriptionWords <= 0 {
		r.DescriptionWords = 50
	}
	if r.TimeoutSec <= 0 {
		r.TimeoutSec = 15
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return errors.New("database.addrs is required")
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model is required")
	}

	r := c.Recommend
	switch r.Strategy {
	case "keyword", "tag_embedding", "tag_query", "none":
	default:
		return fmt.Errorf("recommend.strategy must be keyword, tag_embedding, tag_query or none, got %q", r.Strategy)
	}
	switch r.Backend {
	case "store":
	case "qdrant":
		if !c.VectorIndex.Enabled || c.VectorIndex.Host == "" {
			return errors.New("recommend.backend qdrant requires vector_index.enabled and vector_index.host")
		}
	default:
		return fmt.Errorf("recommend.backend must be store or qdrant, got %q", r.Backend)
	}
	switch r.Sampler {
	case "uniform", "prefix":
	default:
		return fmt.Errorf("recommend.sampler must be uniform or prefix, got %q", r.Sampler)
	}
	if r.Threshold < -1 || r.Threshold > 1 {
		return fmt.Errorf("recommend.threshold must be within [-1, 1], got %v", r.Threshold)
	}
	if r.TagThreshold < -1 || r.TagThreshold > 1 {
		return fmt.Errorf("recommend.tag_threshold must be within [-1, 1], got %v", r.TagThreshold)
	}
	if c.VectorIndex.Enabled && c.VectorIndex.Host == "" {
		return errors.New("vector_index.host is required when vector_index.enabled")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must not be negative, got %v", c.RateLimit.RPS)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

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

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
