package nbserve

import (
	"log/slog"
	"time"

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
	modelPath      string
	vocabularyPath string
	stopwords      []string

	driver      string // "valkey", "redis" or "memory", empty = no cache
	addrs       []string
	password    string
	standalone  bool
	cacheTTL    time.Duration
	cachePrefix string
	cacheSizeMB int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithModelPath sets the model artifact path (.json, .yaml, .yml, optionally .gz).
// Default: nb_classifier_model.json in the working directory.
func WithModelPath(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.modelPath = path
	})
}

// WithVocabularyPath sets the vocabulary artifact path.
// Default: vocab.json in the working directory.
func WithVocabularyPath(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.vocabularyPath = path
	})
}

// WithStopwords replaces the built-in English stopword list.
func WithStopwords(words []string) Option {
	return optionFunc(func(c *clientConfig) {
		c.stopwords = words
	})
}

// WithValkeyCache caches predictions in a Valkey instance.
func WithValkeyCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisCache caches predictions in a Redis instance.
func WithRedisCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemoryCache caches predictions in process, bounded to sizeMB megabytes.
func WithMemoryCache(sizeMB int) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.cacheSizeMB = sizeMB
	})
}

// WithStandalone disables cluster topology discovery for the cache.
func WithStandalone() Option {
	return optionFunc(func(c *clientConfig) {
		c.standalone = true
	})
}

// WithCacheTTL sets cache entry expiry. Zero keeps entries forever.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithCachePrefix namespaces cache keys. Default: "nbserve:".
func WithCachePrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cachePrefix = prefix
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
