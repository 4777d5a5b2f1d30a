package ragrec

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

type backendEntry struct {
	backend  Backend
	attempts int
}

type clientConfig struct {
	driver    string // "", "valkey" or "redis"; empty keeps items in memory
	addrs     []string
	password  string
	keyPrefix string

	embedder   Embedder
	hashing    bool
	dimensions int

	backends []backendEntry
	template string
	k        int
	maxChars int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey stores the corpus in a Valkey instance with the search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores the corpus in a Redis 8+ instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix namespaces Redis keys. Default: "ragrec:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithEmbedder sets the embedding provider and the dimension of its vectors.
func WithEmbedder(e Embedder, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.hashing = false
		c.dimensions = dimensions
	})
}

// WithHashingEmbedder uses the built-in offline feature-hashing embedder.
// Retrieval quality is lexical, but it needs no network and no API key.
func WithHashingEmbedder(dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = nil
		c.hashing = true
		c.dimensions = dimensions
	})
}

// WithBackend appends a model backend to the fallback chain. Backends are
// tried in the order they were added; attempts bounds tries per backend.
func WithBackend(b Backend, attempts int) Option {
	return optionFunc(func(c *clientConfig) {
		c.backends = append(c.backends, backendEntry{backend: b, attempts: attempts})
	})
}

// WithTemplate replaces the built-in prompt. The text may reference
// {profile}, {input} and {context}; literal braces are doubled.
func WithTemplate(text string) Option {
	return optionFunc(func(c *clientConfig) {
		c.template = text
	})
}

// WithRetrieval sets how many corpus items are retrieved per request. Default: 10.
func WithRetrieval(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.k = k
	})
}

// WithContextLimit bounds the context block handed to the model, in bytes.
// Whole trailing items are dropped to fit. Default: unbounded.
func WithContextLimit(maxChars int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxChars = maxChars
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
