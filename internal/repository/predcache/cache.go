package predcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nbserve/internal/db"
	"github.com/kailas-cloud/nbserve/internal/domain"
)

// DefaultPrefix namespaces prediction keys in a shared store.
const DefaultPrefix = "nbserve:"

// store is the consumer interface for the prediction cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache stores predictions keyed by normalized text in a key-value store.
// Keys embed the artifact fingerprint, so a new model never reads stale entries.
type Cache struct {
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Options configures key layout and expiry.
type Options struct {
	Prefix      string
	Fingerprint string
	TTL         time.Duration // <= 0 means no expiry
}

type entry struct {
	Label domain.Label `json:"label"`
	Class int          `json:"class"`
}

// New creates a prediction cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, opts Options, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:      s,
		prefix:     prefix + "pred:" + opts.Fingerprint + ":",
		ttl:        opts.TTL,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get returns a cached prediction. Store failures count as a miss.
func (c *Cache) Get(ctx context.Context, normalized string) (domain.Prediction, bool) {
	key := c.Key(normalized)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached prediction", zap.String("key", key), zap.Error(err))
		}
		c.incCache("miss")
		return domain.Prediction{}, false
	}

	p, err := decodeEntry(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached prediction", zap.String("key", key), zap.Error(err))
		c.incCache("miss")
		return domain.Prediction{}, false
	}

	c.incCache("hit")
	return p, true
}

// Put stores a prediction. Failures are logged and swallowed.
func (c *Cache) Put(ctx context.Context, normalized string, p domain.Prediction) {
	key := c.Key(normalized)

	data, err := json.Marshal(entry{Label: p.Label, Class: p.Class})
	if err != nil {
		c.logger.Warn("Failed to encode prediction", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache prediction", zap.String("key", key), zap.Error(err))
	}
}

// Key returns the store key for normalized text.
func (c *Cache) Key(normalized string) string {
	h := sha256.Sum256([]byte(normalized))
	return c.prefix + hex.EncodeToString(h[:])
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func decodeEntry(data []byte) (domain.Prediction, error) {
	if len(data) == 0 {
		return domain.Prediction{}, errors.New("empty cache entry")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var e entry
	if err := dec.Decode(&e); err != nil {
		return domain.Prediction{}, fmt.Errorf("decode cache entry: %w", err)
	}
	if e.Label == nil || e.Class < 0 {
		return domain.Prediction{}, fmt.Errorf("invalid cache entry: class=%d", e.Class)
	}
	return domain.Prediction{Label: e.Label, Class: e.Class}, nil
}
