package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_Strategy(t *testing.T) {
	for _, s := range []string{"keyword", "tag_embedding", "tag_query", "none"} {
		t.Run(s, func(t *testing.T) {
			cfg := validConfig()
			cfg.Recommend.Strategy = s
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for %q: %v", s, err)
			}
		})
	}

	cfg := validConfig()
	cfg.Recommend.Strategy = "bm25"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestValidate_QdrantBackendNeedsIndex(t *testing.T) {
	cfg := validConfig()
	cfg.Recommend.Backend = "qdrant"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without vector index")
	}

	cfg.VectorIndex.Enabled = true
	cfg.VectorIndex.Host = "localhost"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ThresholdRange(t *testing.T) {
	cfg := validConfig()
	cfg.Recommend.Threshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold above 1")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("unexpected embedding defaults %s/%d", cfg.Embedding.Model, cfg.Embedding.Dimensions)
	}
	r := cfg.Recommend
	if r.Strategy != "keyword" || r.Backend != "store" || r.Sampler != "uniform" {
		t.Errorf("unexpected recommend defaults %+v", r)
	}
	if r.Threshold != 0.4 || r.TopK != 5 || r.MinCandidates != 5 || r.MaxSample != 500 || r.TagTermCap != 10 {
		t.Errorf("unexpected recommend numbers %+v", r)
	}
	if r.GateAfterSampling {
		t.Error("gate must default to before sampling")
	}
	if r.Timeout() != 15*time.Second {
		t.Errorf("expected 15s timeout, got %v", r.Timeout())
	}
	if cfg.Corpus.KeyPrefix != "readnext:resource:" || cfg.Corpus.MaxScan != 5000 {
		t.Errorf("unexpected corpus defaults %+v", cfg.Corpus)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Errorf("expected default origins, got %v", cfg.CORS.AllowedOrigins)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Recommend: RecommendConfig{Threshold: 0.3, TopK: 3, Strategy: "tag_query"},
		Corpus:    CorpusConfig{KeyPrefix: "custom:"},
		CORS:      CORSConfig{AllowedOrigins: []string{"https://a.example"}},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Recommend.Threshold != 0.3 || cfg.Recommend.TopK != 3 || cfg.Recommend.Strategy != "tag_query" {
		t.Errorf("recommend overrides lost: %+v", cfg.Recommend)
	}
	if cfg.Corpus.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Corpus.KeyPrefix)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 {
		t.Errorf("origins override lost: %v", cfg.CORS.AllowedOrigins)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("READNEXT_TEST_KEY", "sk-test")
	data := []byte(`
http:
  port: ${READNEXT_TEST_PORT:-9090}
database:
  addrs: ["localhost:6379"]
embedding:
  api_key: ${READNEXT_TEST_KEY}
recommend:
  strategy: tag_embedding
  gate_after_sampling: true
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected default port from expansion, got %d", cfg.HTTP.Port)
	}
	if cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("expected api key from env, got %q", cfg.Embedding.APIKey)
	}
	if cfg.Recommend.Strategy != "tag_embedding" || !cfg.Recommend.GateAfterSampling {
		t.Errorf("unexpected recommend %+v", cfg.Recommend)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte("database:\n  addrs: [\"db:6379\"]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Database.Addrs[0] != "db:6379" {
		t.Errorf("unexpected addrs %v", cfg.Database.Addrs)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
