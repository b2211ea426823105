// Package chi exposes the recommendation service over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/readnext/internal/domain"
	domres "github.com/kailas-cloud/readnext/internal/domain/resource"
	logpkg "github.com/kailas-cloud/readnext/internal/logger"
	healthuc "github.com/kailas-cloud/readnext/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// Client-facing messages. Details stay in the logs.
const (
	msgEmptyContent     = "Content cannot be empty"
	msgInternal         = "Internal server error"
	msgResourceNotFound = "Resource not found"
	msgTooManyRequests  = "Too many requests"
)

// Recommender produces recommendations for note content.
type Recommender interface {
	Recommend(ctx context.Context, content string) ([]domres.Recommendation, error)
}

// ResourceReader loads a stored resource by ID.
type ResourceReader interface {
	Get(ctx context.Context, id string) (domres.Resource, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	recommender   Recommender
	resources     ResourceReader
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
	metrics       http.Handler
}

// NewServer creates an HTTP API server.
func NewServer(rec Recommender, resources ResourceReader, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		recommender: rec,
		resources:   resources,
		health:      health,
		logger:      logger,
		metrics:     promhttp.Handler(),
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, msgEmptyContent),
			sentinelHandler(domain.ErrNotFound, http.StatusNotFound, msgResourceNotFound),
		},
	}
}

type recommendRequest struct {
	Content string `json:"content"`
}

type recommendationResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

type resourceResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url,omitempty"`
	Tags        []string `json:"tags"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Recommend handles POST / and POST /api/v1/recommendations.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logpkg.FromContext(r.Context()).Info("Invalid request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgEmptyContent)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	recs, err := s.recommender.Recommend(ctx, req.Content)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := make([]recommendationResponse, len(recs))
	for i, rec := range recs {
		out[i] = recommendationResponse{Title: rec.Title, Description: rec.Description, URL: rec.URL}
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, out)
}

// GetResource handles GET /api/v1/resources/{id}.
func (s *Server) GetResource(w http.ResponseWriter, r *http.Request) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil || id == "" {
		writeError(w, http.StatusNotFound, msgResourceNotFound)
		return
	}

	res, err := s.resources.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	tags := res.Tags
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, resourceResponse{
		ID:          res.ID,
		Title:       res.Title,
		Description: res.Description,
		URL:         res.URL,
		Tags:        tags,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, msg string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Info("Request rejected", zap.Error(err))
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, msgInternal)
}
