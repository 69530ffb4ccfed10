package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nbserve/internal/artifact"
	"github.com/kailas-cloud/nbserve/internal/domain"
	"github.com/kailas-cloud/nbserve/internal/logger"
	healthuc "github.com/kailas-cloud/nbserve/internal/usecase/health"
	predictionuc "github.com/kailas-cloud/nbserve/internal/usecase/prediction"
	"github.com/kailas-cloud/nbserve/internal/version"
)

// DefaultMaxBodyBytes caps POST /predict bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the classifier over HTTP.
type Server struct {
	prediction    *predictionuc.Service
	health        *healthuc.Service
	model         artifact.Info
	home          *template.Template
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP server. maxBodyBytes <= 0 selects DefaultMaxBodyBytes.
func NewServer(
	prediction *predictionuc.Service,
	health *healthuc.Service,
	model artifact.Info,
	home *template.Template,
	maxBodyBytes int64,
) *Server {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{
		prediction:   prediction,
		health:       health,
		model:        model,
		home:         home,
		maxBodyBytes: maxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		payloadTooLargeHandler,
		sentinelHandler(domain.ErrMissingText, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(errBadForm, http.StatusBadRequest, ErrorCodeBadRequest),
	}
	return s
}

// Routes mounts all endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.Home)
	r.Post("/predict", s.Predict)
	r.Get("/health", s.HealthCheck)
	r.Get("/model", s.ModelInfo)
	r.Get("/metrics", s.Metrics)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed")
	})
}

var errBadForm = errors.New("malformed form body")

// Predict handles POST /predict.
func (s *Server) Predict(w http.ResponseWriter, r *http.Request) {
	text, err := s.formText(w, r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx := logger.With(r.Context(), zap.Int("text_len", len(text)))
	res, err := s.prediction.Predict(ctx, text)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if res.Cached {
		w.Header().Set("X-Cache", "hit")
	}
	writeJSON(w, http.StatusOK, PredictResponse{
		Prediction: []domain.Label{res.Prediction.Label},
	})
}

// formText reads the text field from an urlencoded or multipart body.
// An empty value is valid; an absent field is not.
func (s *Server) formText(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	var err error
	if isMultipart(r) {
		err = r.ParseMultipartForm(s.maxBodyBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", errBadForm, err)
	}

	values, ok := r.PostForm["text"]
	if !ok || len(values) == 0 {
		return "", domain.ErrMissingText
	}
	return values[0], nil
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// ModelInfo handles GET /model.
func (s *Server) ModelInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ModelResponse{
		Kind:           string(s.model.Kind),
		Classes:        s.model.Classes,
		VocabularySize: s.model.VocabularySize,
		Fingerprint:    s.model.Fingerprint,
		Build:          version.String(),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func payloadTooLargeHandler(w http.ResponseWriter, err error) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	writeError(w, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("request rejected", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
