// File: internal/server/server.go
// Description: HTTP front end for the assessment engine. Routes are served by
// gorilla/mux; request bodies are validated before they reach the engine.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
	"github.com/xkilldash9x/synthmind/internal/orchestrator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Assessor runs one assessment. *orchestrator.Orchestrator satisfies it.
type Assessor interface {
	RunAssessment(ctx context.Context, req orchestrator.Request) (*orchestrator.Assessment, error)
}

// Server exposes assessments and their sessions over HTTP.
type Server struct {
	cfg      config.ServerConfig
	assessor Assessor
	sessions schemas.SessionStore
	gatherer prometheus.Gatherer
	validate *validator.Validate
	logger   *zap.Logger
	router   *mux.Router
	now      func() time.Time
}

// New builds a Server and registers its routes. gatherer may be nil, in which
// case /metrics is not served.
func New(cfg config.ServerConfig, assessor Assessor, sessions schemas.SessionStore, gatherer prometheus.Gatherer, logger *zap.Logger) (*Server, error) {
	if assessor == nil || sessions == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize server with nil dependencies")
	}
	s := &Server{
		cfg:      cfg,
		assessor: assessor,
		sessions: sessions,
		gatherer: gatherer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Named("server"),
		router:   mux.NewRouter(),
		now:      time.Now,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Use(s.recoverer, s.accessLog)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/load-test", s.handleAssess).Methods(http.MethodPost)
	api.HandleFunc("/load-test/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/load-test/{id}/transcript", s.handleAppendTranscript).Methods(http.MethodPost)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.cfg.MetricsEnabled && s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on cfg.Addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// In-flight assessments finish during Shutdown instead of being cancelled with ctx.
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening.", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server.")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -- Middleware --

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("Request served.",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Handler panicked.", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
