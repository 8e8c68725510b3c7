package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"songline/internal/api"
	"songline/internal/config"
	"songline/internal/lifecycle"
	"songline/internal/logging"
	"songline/internal/services"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	cfg    *config.Config

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		cfg:    cfg,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/requests", s.handleSubmit)
	mux.HandleFunc("DELETE /api/requests/{id}", s.handleRemove)
	mux.HandleFunc("POST /api/requests/{id}/front", s.handleMoveToFront)
	mux.HandleFunc("PUT /api/requests/{id}/link", s.handleEditLink)
	mux.HandleFunc("POST /api/queue/clear", s.handleClear)
	mux.HandleFunc("PUT /api/queue/order", s.handleReorder)
	mux.HandleFunc("PUT /api/active", s.handleSetActive)
	mux.HandleFunc("POST /api/active/finish", s.handleFinish)
	mux.HandleFunc("GET /api/archive", s.handleArchive)
	mux.HandleFunc("POST /api/archive/{id}/requeue", s.handleRequeue)
	mux.HandleFunc("DELETE /api/archive/{id}", s.handleDeleteArchived)
	mux.HandleFunc("GET /api/blocklist", s.handleBlocklist)
	mux.HandleFunc("POST /api/blocklist/{login}", s.handleBlock)
	mux.HandleFunc("DELETE /api/blocklist/{login}", s.handleUnblock)
	mux.HandleFunc("GET /api/filters", s.handleFilters)
	mux.HandleFunc("POST /api/filters", s.handleAddFilter)
	mux.HandleFunc("DELETE /api/filters", s.handleRemoveFilter)
	mux.HandleFunc("PUT /api/settings/ceilings/{class}", s.handleCeiling)
	mux.HandleFunc("POST /api/donations", s.handleDonation)
	mux.HandleFunc("POST /api/match", s.handleMatch)
	mux.HandleFunc("POST /api/test-notify", s.handleTestNotify)
	mux.HandleFunc("GET /api/logs", s.handleLogs)

	root := http.NewServeMux()
	root.Handle("/api/", correlationMiddleware(authMiddleware(s.cfg.Paths.APIToken, mux)))
	if s.cfg.Metrics.Enabled && s.daemon.deps.Metrics != nil {
		root.Handle("GET /metrics", s.daemon.deps.Metrics.Handler())
	}
	return root
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api listen: paths.api_bind is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.shutdown()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(s.logger, w, status, payload)
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: kind})
}

// writeServiceError maps an error kind onto an HTTP status.
func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.Kind(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lifecycle.ErrStopped):
		status, kind = http.StatusServiceUnavailable, "unavailable"
	case kind == "validation":
		status = http.StatusBadRequest
	case kind == "not_found":
		status = http.StatusNotFound
	case kind == "policy":
		status = http.StatusConflict
	case kind == "configuration":
		status = http.StatusServiceUnavailable
	case kind == "timeout":
		status = http.StatusGatewayTimeout
	case kind == "transient":
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "api call failed", "api_call_failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	s.writeError(w, status, kind, err.Error())
}

// decode reads a JSON body into dst, writing a 400 on failure.
func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
