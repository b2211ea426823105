package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kailas-cloud/readnext/internal/metrics"
)

// RouterConfig holds transport-level knobs.
type RouterConfig struct {
	AllowedOrigins []string
	// RateLimitRPS <= 0 disables per-client rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxy makes X-Forwarded-For / X-Real-IP the client address.
	TrustProxy bool
}

// NewRouter wires middleware and routes around s.
func NewRouter(s *Server, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(jsonRecoverer(logger))
	if cfg.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Embedding-Tokens"},
		MaxAge:         300,
	}))

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Group(func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).middleware)
		}
		r.Post("/", s.Recommend)
		r.Post("/api/v1/recommendations", s.Recommend)
	})
	r.Get("/api/v1/resources/{id}", s.GetResource)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
