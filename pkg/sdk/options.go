package readnext

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	embedder Embedder

	keyPrefix     string
	strategy      string
	threshold     float64
	topK          int
	minCandidates int
	maxSample     int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:     "readnext:resource:",
		strategy:      "keyword",
		threshold:     0.4,
		topK:          5,
		minCandidates: 5,
		maxSample:     500,
	}
}

// WithRedis configures the client to connect to a Redis instance
// with the search module loaded.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithKeyPrefix sets the hash key prefix for stored resources.
// Default: "readnext:resource:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithStrategy selects the candidate filter: "keyword", "tag_query",
// "tag_embedding" or "none". Default: "keyword".
func WithStrategy(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.strategy = name
	})
}

// WithThreshold sets the minimum cosine similarity of a recommendation.
// Default: 0.4. Zero keeps the default; a negative value accepts every match.
func WithThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.threshold = t
	})
}

// WithTopK sets the maximum number of recommendations. Default: 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithMinCandidates sets how many filtered candidates are needed
// before the embedding provider is called. Default: 5. Values <= 0 keep
// the default.
func WithMinCandidates(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.minCandidates = n
	})
}

// WithMaxSample caps the number of candidates that get scored. Default: 500.
func WithMaxSample(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxSample = n
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
