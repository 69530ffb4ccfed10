package chi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nbserve/internal/artifact"
	"github.com/kailas-cloud/nbserve/internal/domain"
	"github.com/kailas-cloud/nbserve/internal/domain/naivebayes"
	"github.com/kailas-cloud/nbserve/internal/domain/text"
	"github.com/kailas-cloud/nbserve/internal/domain/vocabulary"
	healthuc "github.com/kailas-cloud/nbserve/internal/usecase/health"
	predictionuc "github.com/kailas-cloud/nbserve/internal/usecase/prediction"
)

// --- Helpers ---

type panicClassifier struct{}

func (panicClassifier) Predict(domain.FeatureVector) (domain.Prediction, error) {
	panic("classifier exploded")
}

type failingClassifier struct{}

func (failingClassifier) Predict(domain.FeatureVector) (domain.Prediction, error) {
	return domain.Prediction{}, domain.NewShapeMismatch(3, 2)
}

type testServerOpts struct {
	classifier   domain.Classifier
	maxBodyBytes int64
	debug        bool
}

// testBundle: vocabulary [bad, great, product], neg is the majority class.
func testBundle(t *testing.T) *artifact.Bundle {
	t.Helper()
	vocab, err := vocabulary.New(map[string]int{"bad": 0, "great": 1, "product": 2})
	if err != nil {
		t.Fatalf("vocabulary: %v", err)
	}
	alpha := 1.0
	model, err := naivebayes.New(naivebayes.Params{
		Kind:         naivebayes.Multinomial,
		Classes:      []domain.Label{"neg", "pos"},
		ClassCount:   []float64{3, 1},
		FeatureCount: [][]float64{{5, 0, 1}, {0, 5, 1}},
		Alpha:        &alpha,
	})
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	return &artifact.Bundle{
		Vocabulary:  vocab,
		Vectorizer:  vocabulary.NewCountVectorizer(vocab),
		Model:       model,
		Fingerprint: "testfingerprint",
	}
}

func newTestRouter(t *testing.T, opts testServerOpts) http.Handler {
	t.Helper()
	b := testBundle(t)

	var clf domain.Classifier = b.Model
	if opts.classifier != nil {
		clf = opts.classifier
	}

	home, err := LoadHomeTemplate("")
	if err != nil {
		t.Fatalf("home template: %v", err)
	}

	s := NewServer(
		predictionuc.New(text.English, b.Vectorizer, clf, nil),
		healthuc.New(b, nil),
		b.Info(),
		home,
		opts.maxBodyBytes,
	)
	return NewRouter(s, zap.NewNop(), opts.debug)
}

func postForm(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodePrediction(t *testing.T, rec *httptest.ResponseRecorder) []any {
	t.Helper()
	var resp struct {
		Prediction []any `json:"prediction"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Prediction
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

// --- Home ---

func TestHome_ServesStaticPage(t *testing.T) {
	h := newTestRouter(t, testServerOpts{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected text/html, got %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `action="/predict"`) || !strings.Contains(body, `name="text"`) {
		t.Errorf("home page must contain the prediction form, got:\n%s", body)
	}

	// Static: identical on every request.
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec2.Body.String() != body {
		t.Error("home page must be identical across requests")
	}
}

func TestLoadHomeTemplate_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte("<h1>custom</h1>"), 0o600); err != nil {
		t.Fatal(err)
	}

	tmpl, err := LoadHomeTemplate(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "<h1>custom</h1>" {
		t.Errorf("unexpected body %q", buf.String())
	}
}

func TestLoadHomeTemplate_Errors(t *testing.T) {
	if _, err := LoadHomeTemplate(filepath.Join(t.TempDir(), "missing.html")); err == nil {
		t.Error("expected error for missing template")
	}

	path := filepath.Join(t.TempDir(), "broken.html")
	if err := os.WriteFile(path, []byte("{{ .Unclosed "), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadHomeTemplate(path); err == nil {
		t.Error("expected error for unparsable template")
	}
}

// --- Predict ---

func TestPredict(t *testing.T) {
	h := newTestRouter(t, testServerOpts{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"positive", "text=" + url.QueryEscape("This is a GREAT product!!!"), "pos"},
		{"negative", "text=" + url.QueryEscape("bad, bad product"), "neg"},
		{"empty text yields majority class", "text=", "neg"},
		{"only stopwords", "text=" + url.QueryEscape("this is the"), "neg"},
		{"out of vocabulary", "text=" + url.QueryEscape("zebra xylophone"), "neg"},
		{"extra fields ignored", "lang=en&text=great", "pos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postForm(t, h, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected application/json, got %q", ct)
			}
			pred := decodePrediction(t, rec)
			if len(pred) != 1 {
				t.Fatalf("prediction must have exactly one element, got %v", pred)
			}
			if pred[0] != tt.want {
				t.Errorf("expected %q, got %v", tt.want, pred[0])
			}
		})
	}
}

func TestPredict_Multipart(t *testing.T) {
	h := newTestRouter(t, testServerOpts{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("text", "great product"); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/predict", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if pred := decodePrediction(t, rec); len(pred) != 1 || pred[0] != "pos" {
		t.Errorf("unexpected prediction %v", pred)
	}
}

func TestPredict_Deterministic(t *testing.T) {
	h := newTestRouter(t, testServerOpts{})

	first := postForm(t, h, "text=great+bad+product").Body.String()
	for range 5 {
		if got := postForm(t, h, "text=great+bad+product").Body.String(); got != first {
			t.Fatalf("non-deterministic response: %q vs %q", got, first)
		}
	}
}

func TestPredict_MissingText(t *testing.T) {
	h := newTestRouter(t, testServerOpts{})

	tests := []struct {
		name        string
		body        string
		contentType string
	}{
		{"no fields", "", "application/x-www-form-urlencoded"},
		{"other field only", "message=hello", "application/x-www-form-urlencoded"},
		{"json body", `{"text":"great"}`, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if resp := decodeError(t, rec); resp.Code != ErrorCodeBadRequest {
				t.Errorf("expected code %q, got %q", ErrorCodeBadRequest, resp.Code)
			}
		})
	}
}

func TestPredict_QueryStringIsNotForm(t *testing.T) {
	h := newTestRouter(t, testServerOpts{})

	req := httptest.NewRequest(http.MethodPost, "/predict?text=great", nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for text only in query string, got %d", rec.Code)
	}
}

func TestPredict_MalformedForm(t *testing.T) {
	h := newTestRouter(t, testServerOpts{})

	rec := postForm(t, h, "text=%zz")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != ErrorCodeBadRequest {
		t.Errorf("expected code %q, got %q", ErrorCodeBadRequest, resp.Code)
	}
}

func TestPredict_BodyTooLarge(t *testing.T) {
	h := newTestRouter(t, testServerOpts{maxBodyBytes: 64})

	rec := postForm(t, h, "text="+strings.Repeat("great+", 100))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeError(t, rec); resp.Code != ErrorCodePayloadTooLarge {
		t.Errorf("expected code %q, got %q", ErrorCodePayloadTooLarge, resp.Code)
	}
}

func TestPredict_ClassifierFailure(t *testing.T) {
	h := newTestRouter(t, testServerOpts{classifier: failingClassifier{}})

	rec := postForm(t, h, "text=great")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Code != ErrorCodeInternalError || resp.Message != "internal error" {
		t.Errorf("unexpected error body %+v", resp)
	}
	if resp.Detail != "" {
		t.Error("internal error details must not leak")
	}
}

func TestPredict_GetNotAllowed(t *testing.T) {
	h := newTestRouter(t, testServerOpts{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predict", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestRouter(t, testServerOpts{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != ErrorCodeNotFound {
		t.Errorf("expected code %q, got %q", ErrorCodeNotFound, resp.Code)
	}
}

// --- Panic recovery ---

func TestPredict_PanicRecovered(t *testing.T) {
	for _, debug := range []bool{false, true} {
		h := newTestRouter(t, testServerOpts{classifier: panicClassifier{}, debug: debug})

		rec := postForm(t, h, "text=great")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("debug=%v: expected 500, got %d", debug, rec.Code)
		}
		resp := decodeError(t, rec)
		if resp.Code != ErrorCodeInternalError {
			t.Errorf("debug=%v: unexpected code %q", debug, resp.Code)
		}
		if debug && resp.Detail != "classifier exploded" {
			t.Errorf("debug mode must expose panic detail, got %q", resp.Detail)
		}
		if !debug && resp.Detail != "" {
			t.Errorf("non-debug mode must hide panic detail, got %q", resp.Detail)
		}
	}
}

// --- Ops endpoints ---

func TestHealthCheck(t *testing.T) {
	h := newTestRouter(t, testServerOpts{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Checks["model"] != "ok" {
		t.Errorf("unexpected health %+v", resp)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestHealthCheck_Unhealthy(t *testing.T) {
	home, err := LoadHomeTemplate("")
	if err != nil {
		t.Fatal(err)
	}
	var missing *artifact.Bundle
	s := NewServer(nil, healthuc.New(missing, nil), artifact.Info{}, home, 0)
	h := NewRouter(s, zap.NewNop(), false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestModelInfo(t *testing.T) {
	h := newTestRouter(t, testServerOpts{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/model", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Kind           string `json:"kind"`
		Classes        []any  `json:"classes"`
		VocabularySize int    `json:"vocabulary_size"`
		Fingerprint    string `json:"fingerprint"`
		Build          string `json:"build"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Kind != "multinomial" || resp.VocabularySize != 3 || resp.Fingerprint != "testfingerprint" {
		t.Errorf("unexpected model info %+v", resp)
	}
	if !strings.HasPrefix(resp.Build, "nbserve ") {
		t.Errorf("unexpected build %q", resp.Build)
	}
	if len(resp.Classes) != 2 || resp.Classes[0] != "neg" || resp.Classes[1] != "pos" {
		t.Errorf("unexpected classes %v", resp.Classes)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, testServerOpts{})

	postForm(t, h, "text=great")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `nbserve_http_requests_total{method="POST",path="/predict",status="200"}`) {
		t.Error("expected /predict request counter in exposition")
	}
}
