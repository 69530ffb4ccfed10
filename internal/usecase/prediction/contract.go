package prediction

import (
	"context"

	"github.com/kailas-cloud/nbserve/internal/domain"
)

// Normalizer cleans raw text before vectorization.
type Normalizer interface {
	Normalize(s string) string
}

// Cache is an optional read-through store keyed by normalized text.
// Implementations never fail a request: errors surface as misses.
type Cache interface {
	Get(ctx context.Context, normalized string) (domain.Prediction, bool)
	Put(ctx context.Context, normalized string, p domain.Prediction)
}
