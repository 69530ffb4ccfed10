package prediction

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nbserve/internal/domain"
	"github.com/kailas-cloud/nbserve/internal/logger"
	"github.com/kailas-cloud/nbserve/internal/metrics"
)

// Result is the outcome of one prediction.
type Result struct {
	Prediction  domain.Prediction
	Normalized  string
	KnownTokens int // in-vocabulary token count, 0 on cache hit
	Cached      bool
}

// Service runs the normalize, vectorize, classify pipeline.
type Service struct {
	normalizer Normalizer
	vectorizer domain.Vectorizer
	classifier domain.Classifier
	cache      Cache
}

// New creates a Service. cache can be nil.
func New(n Normalizer, v domain.Vectorizer, c domain.Classifier, cache Cache) *Service {
	return &Service{normalizer: n, vectorizer: v, classifier: c, cache: cache}
}

// Predict classifies raw text. Empty text is valid and yields the all-zero vector.
func (s *Service) Predict(ctx context.Context, text string) (Result, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	normalized := s.normalizer.Normalize(text)

	if s.cache != nil {
		if p, ok := s.cache.Get(ctx, normalized); ok {
			s.observe(start, "hit", p, nil)
			log.Debug("Prediction served from cache", zap.Any("label", p.Label))
			return Result{Prediction: p, Normalized: normalized, Cached: true}, nil
		}
	}

	vec := s.vectorizer.Transform(normalized)
	known := countTokens(vec)

	p, err := s.classifier.Predict(vec)
	if err != nil {
		s.observe(start, s.cacheState(), p, err)
		log.Error("Classification failed", zap.Int("vector_len", len(vec)), zap.Error(err))
		return Result{}, fmt.Errorf("classify: %w", err)
	}

	if s.cache != nil {
		s.cache.Put(ctx, normalized, p)
	}

	s.observe(start, s.cacheState(), p, nil)
	metrics.PredictionTokens.Observe(float64(known))

	log.Debug("Prediction completed",
		zap.Any("label", p.Label),
		zap.Int("class", p.Class),
		zap.Int("known_tokens", known),
		zap.Duration("duration", time.Since(start)),
	)

	return Result{Prediction: p, Normalized: normalized, KnownTokens: known}, nil
}

func (s *Service) cacheState() string {
	if s.cache == nil {
		return "disabled"
	}
	return "miss"
}

func (s *Service) observe(start time.Time, cache string, p domain.Prediction, err error) {
	metrics.PredictionDuration.WithLabelValues(cache).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues("", "error").Inc()
		return
	}
	metrics.PredictionsTotal.WithLabelValues(fmt.Sprint(p.Label), "ok").Inc()
}

func countTokens(v domain.FeatureVector) int {
	var n float64
	for _, x := range v {
		n += x
	}
	return int(n)
}
