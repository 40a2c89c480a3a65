// Package httpapi exposes the dispatch adapter over HTTP: DELETE
// routes for object and edge instances, plus validate/healthz/metrics.
// It is a thin, out-of-core-scope collaborator — all it does is
// translate a path into a dispatch.Dispatcher call and a status code.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mcmcgrath13/delf/internal/dispatch"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Validator runs the schema validate() entry point on demand (spec.md §6).
type Validator interface {
	Validate(ctx context.Context) error
}

// ServerConfig configures the delf HTTP server.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8080").
	ListenAddr string
}

// Server is the delf HTTP server: DELETE /object/..., DELETE /edge/...,
// GET /validate, GET /healthz, GET /metrics.
type Server struct {
	config     ServerConfig
	dispatcher *dispatch.Dispatcher
	validator  Validator
	log        *zap.Logger
	mux        *http.ServeMux
}

// NewServer creates a delf HTTP server bound to dispatcher.
func NewServer(cfg ServerConfig, dispatcher *dispatch.Dispatcher, validator Validator, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		config:     cfg,
		dispatcher: dispatcher,
		validator:  validator,
		log:        log,
		mux:        http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler, wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return s.logMiddleware(s.mux)
}

// Start starts the server and blocks until ctx is canceled or the
// server errors out.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting delf HTTP server", zap.String("addr", s.config.ListenAddr))

	httpSrv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("httpapi: shutdown failed: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("httpapi: server error after shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("httpapi: server failed: %w", err)
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /metrics", promhttp.Handler().ServeHTTP)
	s.mux.HandleFunc("GET /validate", s.handleValidate)
	s.mux.HandleFunc("DELETE /object/{object_type}/{id}", s.handleDeleteObject)
	s.mux.HandleFunc("DELETE /edge/{edge_type}/{from_id}/{to_id}", s.handleDeleteEdge)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if err := s.validator.Validate(r.Context()); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	objectType := r.PathValue("object_type")
	id := r.PathValue("id")

	err := s.dispatcher.DeleteObject(r.Context(), objectType, id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, dispatch.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown object type %q", objectType))
	default:
		s.log.Warn("delete_object failed", zap.String("object", objectType), zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	edgeType := r.PathValue("edge_type")
	fromID := r.PathValue("from_id")
	toID := r.PathValue("to_id")

	err := s.dispatcher.DeleteEdge(r.Context(), edgeType, fromID, toID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, dispatch.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown edge type %q", edgeType))
	default:
		s.log.Warn("delete_edge failed", zap.String("edge", edgeType), zap.String("from_id", fromID), zap.String("to_id", toID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
