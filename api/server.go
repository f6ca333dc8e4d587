package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comfyqueue/scheduler/metrics"
	"github.com/comfyqueue/scheduler/store"
)

// Server is the Control API's HTTP handler set.
type Server struct {
	store    store.Store
	log      *slog.Logger
	validate *validator.Validate
	metrics  *metrics.Registry
}

// New builds a Server over st, registering m's collectors at /metrics.
func New(st store.Store, m *metrics.Registry, log *slog.Logger) *Server {
	return &Server{
		store:    st,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  m,
	}
}

// Router builds the chi router serving every Control API route
// (spec.md §4.4).
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registerer(), promhttp.HandlerOpts{}))

	r.Route("/api/queue", func(r chi.Router) {
		r.Get("/", s.handleListQueue)
		r.Get("/{configName}", s.handleJobDetails)
		r.Put("/{configName}/priority", s.handleUpdatePriority)
		r.Post("/{configName}/retry", s.handleRetryJob)
		r.Post("/{configName}/god-mode", s.handleGodMode)
	})

	r.Route("/api/jobs", func(r chi.Router) {
		r.Get("/", s.handleListAllJobs)
		r.Get("/export", s.handleExportCSV)
		r.Post("/retry-failed", s.handleRetryAllFailed)
		r.Post("/cancel-all", s.handleCancelAllPending)
		r.Post("/bulk-retry", s.handleBulkRetry)
		r.Post("/bulk-delete", s.handleBulkDelete)
	})

	r.Get("/api/stats", s.handleStats)
	r.Post("/api/sql", s.handleExecuteSQL)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start))
	})
}
