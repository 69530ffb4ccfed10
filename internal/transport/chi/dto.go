package chi

import "github.com/kailas-cloud/nbserve/internal/domain"

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeNotFound         ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed ErrorCode = "method_not_allowed"
	ErrorCodePayloadTooLarge  ErrorCode = "payload_too_large"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
}

// PredictResponse is the body of POST /predict. Prediction always has one element.
type PredictResponse struct {
	Prediction []domain.Label `json:"prediction"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ModelResponse is the body of GET /model.
type ModelResponse struct {
	Kind           string         `json:"kind"`
	Classes        []domain.Label `json:"classes"`
	VocabularySize int            `json:"vocabulary_size"`
	Fingerprint    string         `json:"fingerprint"`
	Build          string         `json:"build"`
}
