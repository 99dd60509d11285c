// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/promoscout/promoscout/internal/monitoring"
	"github.com/promoscout/promoscout/internal/store"
	"github.com/promoscout/promoscout/internal/tracker"
	"github.com/promoscout/promoscout/internal/utils"
)

// PipelineRunner triggers scan-and-reconcile cycles on demand.
type PipelineRunner interface {
	RunOnce(ctx context.Context) (*tracker.RunSummary, error)
	RunOnceWithSeed(ctx context.Context) (*tracker.RunSummary, error)
}

// Server exposes the campaign store and the scrape trigger over HTTP.
type Server struct {
	store    store.Store
	pipeline PipelineRunner
	logger   utils.Logger
	metrics  *monitoring.Metrics

	enableMetrics bool
	httpServer    *http.Server
}

// Options configures the API server.
type Options struct {
	Host          string
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	Metrics       *monitoring.Metrics
	EnableMetrics bool
}

// NewServer wires the API around a store and an optional pipeline runner.
// When pipeline is nil the scrape trigger responds 503.
func NewServer(st store.Store, pipeline PipelineRunner, logger utils.Logger, opts Options) *Server {
	if logger == nil {
		logger = utils.NewLogger()
	}
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 30 * time.Second
	}

	s := &Server{
		store:         st,
		pipeline:      pipeline,
		logger:        logger,
		metrics:       opts.Metrics,
		enableMetrics: opts.EnableMetrics,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:      s.Routes(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	return s
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.enableMetrics {
		r.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/campaigns", s.handleListCampaigns).Methods("GET")
	api.HandleFunc("/campaigns/{id:[0-9]+}", s.handleGetCampaign).Methods("GET")
	api.HandleFunc("/categories", s.handleListCategories).Methods("GET")
	api.HandleFunc("/competitors", s.handleListCompetitors).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/scrape", s.handleTriggerScrape).Methods("POST")
	api.HandleFunc("/scrape/logs", s.handleListRunLogs).Methods("GET")

	r.Use(s.loggingMiddleware)
	return r
}

// ListenAndServe starts the server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("API server listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request handled")
	})
}

// envelope is the uniform response shape: data on success, a message
// otherwise.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		s.logger.Errorf("failed to encode response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: false, Error: message}); err != nil {
		s.logger.Errorf("failed to encode error response: %v", err)
	}
}
