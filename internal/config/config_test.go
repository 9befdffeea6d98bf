package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 5001},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_UnknownEmbeddingProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "word2vec"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown embedding provider")
	}

	expected := `embedding.provider must be "openai" or "hashing", got "word2vec"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_OpenAIRequiresAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.APIKey = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing api key")
	}

	cfg.Embedding.APIKey = "test-key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with api key set: %v", err)
	}
}

func TestValidate_CacheRequiresAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for enabled cache without addrs")
	}

	cfg.Cache.Addrs = []string{"localhost:6379"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with addrs set: %v", err)
	}
}

func TestValidate_OverlapMustBeSmallerThanChunkSize(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.ChunkSize = 100
	cfg.Retrieval.ChunkOverlap = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for overlap >= chunk size")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 5001}}
	cfg.ApplyDefaults()

	if cfg.Retrieval.TopK != 2 {
		t.Errorf("default top_k = %d, want 2", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.ChunkSize != 1000 {
		t.Errorf("default chunk_size = %d, want 1000", cfg.Retrieval.ChunkSize)
	}
	if cfg.Retrieval.ChunkOverlap != 200 {
		t.Errorf("default chunk_overlap = %d, want 200", cfg.Retrieval.ChunkOverlap)
	}
	if cfg.Embedding.Provider != "hashing" {
		t.Errorf("default embedding provider = %q, want hashing", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("default dimensions = %d, want 384", cfg.Embedding.Dimensions)
	}
	if cfg.Storage.UploadsDir != "uploads" {
		t.Errorf("default uploads dir = %q, want uploads", cfg.Storage.UploadsDir)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("DOCQA_TEST_KEY", "secret")
	defer os.Unsetenv("DOCQA_TEST_KEY")

	got := string(expandEnvVars([]byte("api_key: ${DOCQA_TEST_KEY}")))
	if got != "api_key: secret" {
		t.Errorf("expandEnvVars = %q", got)
	}

	got = string(expandEnvVars([]byte("model: ${DOCQA_TEST_MISSING:-fallback}")))
	if got != "model: fallback" {
		t.Errorf("expandEnvVars with default = %q", got)
	}
}
