// Package api serves modules, validation and learner sessions over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/learner"
	"github.com/satslab/satslab/internal/progression"
	"github.com/satslab/satslab/internal/tutor"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// BadgeLister returns a learner's badges.
type BadgeLister interface {
	List(ctx context.Context, userID string) ([]badges.Award, error)
}

// Options are the collaborators of a Server. Badges and Tutor may be nil.
type Options struct {
	Catalog     *catalog.Catalog
	Registry    *learner.Registry
	Validator   progression.Validator
	Badges      BadgeLister
	Tutor       *tutor.Service
	Logger      *zap.Logger
	CORSOrigins []string
	Now         func() time.Time

	// Registerer receives the metrics. Defaults to a private registry.
	Registerer *prometheus.Registry
}

// Server holds the HTTP handlers.
type Server struct {
	catalog   *catalog.Catalog
	registry  *learner.Registry
	validator progression.Validator
	badges    BadgeLister
	tutor     *tutor.Service
	logger    *zap.Logger
	origins   []string
	now       func() time.Time
	metrics   *metrics
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		catalog:   opts.Catalog,
		registry:  opts.Registry,
		validator: opts.Validator,
		badges:    opts.Badges,
		tutor:     opts.Tutor,
		logger:    logger,
		origins:   origins,
		now:       now,
		metrics:   newMetrics(reg, opts.Registry),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(CORS(s.origins))

	r.Handle("/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(identify)

		r.Get("/modules", s.listModules)
		r.Get("/modules/{moduleID}", s.getModule)
		r.Post("/validate", s.validate)
		r.Get("/badges", s.listBadges)

		r.Route("/modules/{moduleID}/session", func(r chi.Router) {
			r.Post("/", s.openSession)
			r.Get("/", s.getSession)
			r.Delete("/", s.restartSession)
		})
		r.Route("/modules/{moduleID}/quiz", func(r chi.Router) {
			r.Post("/answers", s.answerQuestion)
			r.Post("/finish", s.finishQuiz)
		})
		r.Route("/modules/{moduleID}/tasks", func(r chi.Router) {
			r.Post("/{index}/submit", s.submitTask)
			r.Post("/advance", s.advanceTask)
			r.Post("/hint", s.requestHint)
			r.Post("/explain", s.explainTask)
			r.Post("/finish", s.finishTasks)
		})
	})
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) module(w http.ResponseWriter, r *http.Request) (*catalog.Module, bool) {
	m, err := s.catalog.Get(chi.URLParam(r, "moduleID"))
	if errors.Is(err, catalog.ErrNotFound) {
		Error(w, http.StatusNotFound, "module not found")
		return nil, false
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return m, true
}
