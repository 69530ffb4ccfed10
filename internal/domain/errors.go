package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArtifact signals a vocabulary or model artifact that cannot be used.
	ErrInvalidArtifact = errors.New("invalid artifact")
	// ErrShapeMismatch signals a feature vector whose length differs from the model's feature count.
	ErrShapeMismatch = errors.New("feature vector shape mismatch")
	// ErrMissingText signals a prediction request without a text field.
	ErrMissingText = errors.New("missing text field")
)

// ShapeMismatchError wraps ErrShapeMismatch with the expected and actual vector lengths.
type ShapeMismatchError struct {
	Expected int
	Actual   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d features, got %d", ErrShapeMismatch.Error(), e.Expected, e.Actual)
}

func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// NewShapeMismatch creates a shape mismatch error.
func NewShapeMismatch(expected, actual int) error {
	return &ShapeMismatchError{Expected: expected, Actual: actual}
}
