package nbserve

import "github.com/kailas-cloud/nbserve/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidArtifact = domain.ErrInvalidArtifact
	ErrShapeMismatch   = domain.ErrShapeMismatch
)
