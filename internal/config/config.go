package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Index drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverValkey = "valkey"
)

// Model backend types.
const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
	BackendStatic = "static"
)

// ProviderHashing is the built-in offline embedding provider. It needs no provider entry.
const ProviderHashing = "hashing"

// DefaultOllamaBaseURL is Ollama's OpenAI-compatible endpoint.
const DefaultOllamaBaseURL = "http://localhost:11434/v1"

// Config holds the ragrec configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Format    FormatConfig    `yaml:"format"`
	LLM       LLMConfig       `yaml:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxBodyKB       int `yaml:"max_body_kb"`
}

// IndexConfig selects the corpus index implementation.
type IndexConfig struct {
	Driver string `yaml:"driver"` // memory (default), redis, valkey
}

// DatabaseConfig holds Redis/Valkey connection settings. Used by the redis
// and valkey index drivers and by the embedding cache.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout and cache settings.
type StorageConfig struct {
	KeyPrefix   string `yaml:"key_prefix"`
	CacheTTLSec int    `yaml:"embedding_cache_ttl_sec"` // 0 = no expiry
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Vectorizer  string                      `yaml:"vectorizer"` // key of Vectorizers to use
	Cache       bool                        `yaml:"cache"`      // requires database.addrs
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	BatchSize           int    `yaml:"batch_size"`
}

// RetrievalConfig holds k-nearest search settings.
type RetrievalConfig struct {
	K int `yaml:"k"`
}

// FormatConfig bounds the context block handed to the model.
type FormatConfig struct {
	MaxChars int `yaml:"max_chars"` // 0 = unbounded
}

// LLMConfig lists model backends in fallback order.
type LLMConfig struct {
	Backends []BackendConfig `yaml:"backends"`
}

// BackendConfig describes one model backend.
type BackendConfig struct {
	Name              string  `yaml:"name"`
	Type              string  `yaml:"type"` // openai, ollama, static
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Temperature       float32 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	JSONMode          bool    `yaml:"json_mode"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	MaxAttempts       int     `yaml:"max_attempts"`
	RetryBackoffMs    int     `yaml:"retry_backoff_ms"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Response          string  `yaml:"response"` // static backend only
}

// PipelineConfig holds prompt settings.
type PipelineConfig struct {
	TemplateFile string `yaml:"template_file"` // empty = built-in recommender prompt
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	MaxInputChars   int      `yaml:"max_input_chars"`
	BannedWords     []string `yaml:"banned_words"`
	MaxPDFPages     int      `yaml:"max_pdf_pages"`
	FetchTimeoutSec int      `yaml:"fetch_timeout_sec"`
	Concurrency     int      `yaml:"concurrency"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// must outlive the slowest model call
		c.HTTP.WriteTimeoutSec = 150
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyKB <= 0 {
		c.HTTP.MaxBodyKB = 4096
	}
	if c.Index.Driver == "" {
		c.Index.Driver = DriverMemory
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "ragrec:"
	}
	if c.Retrieval.K <= 0 {
		c.Retrieval.K = 10
	}
	for i := range c.LLM.Backends {
		b := &c.LLM.Backends[i]
		if b.Name == "" {
			b.Name = b.Type
		}
		if b.TimeoutSec <= 0 {
			b.TimeoutSec = 120
		}
		if b.MaxAttempts <= 0 {
			b.MaxAttempts = 1
		}
		if b.Type == BackendOllama && b.BaseURL == "" {
			b.BaseURL = DefaultOllamaBaseURL
		}
	}
	if c.Ingest.MaxInputChars <= 0 {
		c.Ingest.MaxInputChars = 16000
	}
	if c.Ingest.FetchTimeoutSec <= 0 {
		c.Ingest.FetchTimeoutSec = 10
	}
	if c.Ingest.Concurrency <= 0 {
		c.Ingest.Concurrency = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Index.Driver {
	case DriverMemory:
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for index driver %q", c.Index.Driver)
		}
	default:
		return fmt.Errorf("index.driver must be memory, redis or valkey, got %q", c.Index.Driver)
	}
	if c.Embedding.Cache && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("embedding.cache requires database.addrs")
	}

	if err := c.validateEmbedding(); err != nil {
		return err
	}
	return c.validateBackends()
}

// ActiveVectorizer returns the vectorizer selected by embedding.vectorizer.
func (c *Config) ActiveVectorizer() (VectorizerConfig, bool) {
	v, ok := c.Embedding.Vectorizers[c.Embedding.Vectorizer]
	return v, ok
}

func (c *Config) validateEmbedding() error {
	if c.Embedding.Vectorizer == "" {
		return fmt.Errorf("embedding.vectorizer is required")
	}
	v, ok := c.ActiveVectorizer()
	if !ok {
		return fmt.Errorf("embedding.vectorizer %q is not defined in embedding.vectorizers", c.Embedding.Vectorizer)
	}
	if v.Dimensions <= 0 {
		return fmt.Errorf("embedding.vectorizers.%s.dimensions must be positive", c.Embedding.Vectorizer)
	}
	if v.Provider == ProviderHashing {
		return nil
	}
	if _, ok := c.Embedding.Providers[v.Provider]; !ok {
		return fmt.Errorf("embedding.vectorizers.%s.provider %q is not defined", c.Embedding.Vectorizer, v.Provider)
	}
	if v.Model == "" {
		return fmt.Errorf("embedding.vectorizers.%s.model is required", c.Embedding.Vectorizer)
	}
	return nil
}

func (c *Config) validateBackends() error {
	if len(c.LLM.Backends) == 0 {
		return fmt.Errorf("llm.backends must list at least one backend")
	}
	seen := make(map[string]bool, len(c.LLM.Backends))
	for i, b := range c.LLM.Backends {
		if b.Name == "" {
			return fmt.Errorf("llm.backends[%d].name is required", i)
		}
		if seen[b.Name] {
			return fmt.Errorf("llm.backends[%d]: duplicate name %q", i, b.Name)
		}
		seen[b.Name] = true

		switch b.Type {
		case BackendOpenAI, BackendOllama:
			if b.Model == "" {
				return fmt.Errorf("llm.backends[%d] (%s): model is required", i, b.Name)
			}
		case BackendStatic:
		default:
			return fmt.Errorf("llm.backends[%d] (%s): type must be openai, ollama or static, got %q", i, b.Name, b.Type)
		}
		if b.RequestsPerSecond < 0 {
			return fmt.Errorf("llm.backends[%d] (%s): requests_per_second must not be negative", i, b.Name)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
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
