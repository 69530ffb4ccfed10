package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nbserve/internal/metrics"
)

// NewRouter wires the middleware chain and mounts the server routes.
func NewRouter(s *Server, log *zap.Logger, debug bool) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(log, debug))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(log))
	r.Use(metrics.Middleware())
	s.Routes(r)
	return r
}
