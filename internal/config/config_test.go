package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Embedding: EmbeddingConfig{
			Vectorizer: "local",
			Vectorizers: map[string]VectorizerConfig{
				"local": {Provider: ProviderHashing, Dimensions: 256},
			},
		},
		LLM: LLMConfig{Backends: []BackendConfig{{Name: "mock", Type: BackendStatic}}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"unknown driver", func(c *Config) { c.Index.Driver = "milvus" }, "index.driver"},
		{"redis without addrs", func(c *Config) { c.Index.Driver = DriverRedis }, "database.addrs"},
		{"cache without addrs", func(c *Config) { c.Embedding.Cache = true }, "embedding.cache"},
		{"no vectorizer", func(c *Config) { c.Embedding.Vectorizer = "" }, "embedding.vectorizer is required"},
		{"undefined vectorizer", func(c *Config) { c.Embedding.Vectorizer = "nope" }, "not defined"},
		{"zero dims", func(c *Config) {
			c.Embedding.Vectorizers["local"] = VectorizerConfig{Provider: ProviderHashing}
		}, "dimensions"},
		{"undefined provider", func(c *Config) {
			c.Embedding.Vectorizers["local"] = VectorizerConfig{Provider: "nebius", Model: "m", Dimensions: 8}
		}, `provider "nebius"`},
		{"no backends", func(c *Config) { c.LLM.Backends = nil }, "at least one backend"},
		{"duplicate backend", func(c *Config) {
			c.LLM.Backends = append(c.LLM.Backends, BackendConfig{Name: "mock", Type: BackendStatic})
		}, "duplicate name"},
		{"bad backend type", func(c *Config) { c.LLM.Backends[0].Type = "gemini" }, "type must be"},
		{"openai without model", func(c *Config) { c.LLM.Backends[0].Type = BackendOpenAI }, "model is required"},
		{"negative rate", func(c *Config) { c.LLM.Backends[0].RequestsPerSecond = -1 }, "requests_per_second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{LLM: LLMConfig{Backends: []BackendConfig{{Type: BackendOllama, Model: "llama3.2:3b"}}}}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Index.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %q", cfg.Index.Driver)
	}
	if cfg.Storage.KeyPrefix != "ragrec:" {
		t.Errorf("expected KeyPrefix='ragrec:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Retrieval.K != 10 {
		t.Errorf("expected K=10, got %d", cfg.Retrieval.K)
	}

	b := cfg.LLM.Backends[0]
	if b.Name != BackendOllama || b.TimeoutSec != 120 || b.MaxAttempts != 1 || b.BaseURL != DefaultOllamaBaseURL {
		t.Errorf("unexpected backend defaults: %+v", b)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Index:     IndexConfig{Driver: DriverValkey},
		Storage:   StorageConfig{KeyPrefix: "custom:"},
		Retrieval: RetrievalConfig{K: 4},
		LLM: LLMConfig{Backends: []BackendConfig{
			{Name: "groq", Type: BackendOpenAI, BaseURL: "https://api.groq.com/openai/v1", TimeoutSec: 30, MaxAttempts: 3},
		}},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Index.Driver != DriverValkey {
		t.Errorf("expected valkey, got %q", cfg.Index.Driver)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Retrieval.K != 4 {
		t.Errorf("expected K=4, got %d", cfg.Retrieval.K)
	}
	if b := cfg.LLM.Backends[0]; b.TimeoutSec != 30 || b.MaxAttempts != 3 || b.Name != "groq" {
		t.Errorf("backend settings overridden: %+v", b)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("RAGREC_TEST_KEY", "sk-123")
	data := []byte(`
http:
  port: ${RAGREC_TEST_PORT:-9090}
embedding:
  vectorizer: local
  vectorizers:
    local:
      provider: hashing
      dimensions: 128
llm:
  backends:
    - name: groq
      type: openai
      model: llama-3.1-8b-instant
      api_key: ${RAGREC_TEST_KEY}
    - type: static
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected default port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.LLM.Backends[0].APIKey != "sk-123" {
		t.Errorf("expected expanded key, got %q", cfg.LLM.Backends[0].APIKey)
	}
	if cfg.LLM.Backends[1].Name != BackendStatic {
		t.Errorf("expected static backend named after its type, got %q", cfg.LLM.Backends[1].Name)
	}
	if v, _ := cfg.ActiveVectorizer(); v.Dimensions != 128 {
		t.Errorf("expected 128 dims, got %d", v.Dimensions)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := "http:\n  port: 8081\nembedding:\n  vectorizer: v\n  vectorizers:\n    v:\n      provider: hashing\n      dimensions: 8\nllm:\n  backends:\n    - type: static\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 8081 {
		t.Errorf("expected 8081, got %d", cfg.HTTP.Port)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_RepositoryConfigs(t *testing.T) {
	for _, env := range []string{"local", "prod"} {
		t.Run(env, func(t *testing.T) {
			t.Setenv("GROQ_API_KEY", "test")
			t.Setenv("OPENAI_API_KEY", "test")
			if _, err := Load(env); err != nil {
				t.Fatalf("config/%s.yaml: %v", env, err)
			}
		})
	}
}
