package nbserve

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nbserve/internal/artifact"
	"github.com/kailas-cloud/nbserve/internal/db"
	"github.com/kailas-cloud/nbserve/internal/db/memory"
	dbRedis "github.com/kailas-cloud/nbserve/internal/db/redis"
	"github.com/kailas-cloud/nbserve/internal/domain/text"
	"github.com/kailas-cloud/nbserve/internal/repository/predcache"
	healthuc "github.com/kailas-cloud/nbserve/internal/usecase/health"
	predictionuc "github.com/kailas-cloud/nbserve/internal/usecase/prediction"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped out in tests.
type predictionUseCase interface {
	Predict(ctx context.Context, text string) (predictionuc.Result, error)
}

// Client is the nbserve SDK entry point. It is safe for concurrent use.
type Client struct {
	store      db.Store
	predSvc    predictionUseCase
	healthSvc  healthUseCase
	normalizer *text.Normalizer
	model      ModelInfo
	obs        *observer
}

// New loads the artifacts and, if a cache is configured, connects to it.
// The provided context is used for the initial cache readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	bundle, err := artifact.Load(artifact.Config{
		ModelPath:      cfg.modelPath,
		VocabularyPath: cfg.vocabularyPath,
	})
	if err != nil {
		return nil, fmt.Errorf("nbserve: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if cfg.driver != "" {
		store, err = createStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("nbserve: cache not ready: %w", err)
		}
	}

	return wireClient(bundle, store, cfg, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.addrs,
			Password:   cfg.password,
			Standalone: cfg.standalone,
		})
		if err != nil {
			return nil, fmt.Errorf("nbserve: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "memory":
		return memory.NewStore(cfg.cacheSizeMB), nil
	default:
		return nil, fmt.Errorf("nbserve: unknown driver %q", cfg.driver)
	}
}

func wireClient(bundle *artifact.Bundle, store db.Store, cfg *clientConfig, obs *observer) *Client {
	normalizer := text.English
	if cfg.stopwords != nil {
		normalizer = text.NewNormalizer(cfg.stopwords)
	}

	// Pass nil interfaces (not typed nil pointers) without a store.
	var (
		cache  predictionuc.Cache
		pinger healthuc.CachePinger
	)
	if store != nil {
		cache = predcache.New(store, predcache.Options{
			Prefix:      cfg.cachePrefix,
			Fingerprint: bundle.Fingerprint,
			TTL:         cfg.cacheTTL,
		}, obs.cacheCounter(), zap.NewNop())
		pinger = store
	}

	return &Client{
		store:      store,
		predSvc:    predictionuc.New(normalizer, bundle.Vectorizer, bundle.Model, cache),
		healthSvc:  healthuc.New(bundle, pinger),
		normalizer: normalizer,
		model:      modelInfoFrom(bundle.Info()),
		obs:        obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Predict classifies raw text. Empty text is valid and yields the majority class.
func (c *Client) Predict(ctx context.Context, text string) (p Prediction, err error) {
	start := time.Now()
	defer func() { c.obs.observe("predict", start, err, "cached", p.Cached) }()

	res, err := c.predSvc.Predict(ctx, text)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	return predictionFrom(res), nil
}

// Normalize returns text as the classifier sees it: lowercased,
// without ASCII punctuation and stopwords.
func (c *Client) Normalize(text string) string {
	return c.normalizer.Normalize(text)
}

// Model describes the loaded artifacts.
func (c *Client) Model() ModelInfo {
	return c.model
}
