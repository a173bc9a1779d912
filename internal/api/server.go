package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rymbridge/internal/broadcast"
	"rymbridge/internal/logging"
	"rymbridge/internal/ratings"
	"rymbridge/internal/resolver"
	"rymbridge/internal/store"
)

// StatusFunc supplies daemon diagnostics for GET /api/status.
type StatusFunc func(ctx context.Context) StatusResponse

// Server is the HTTP boundary of the rating engine.
type Server struct {
	bind     string
	logger   *slog.Logger
	resolver *resolver.Resolver
	store    *store.Store
	hub      *broadcast.Hub
	status   StatusFunc

	listener net.Listener
	server   *http.Server
}

// NewServer wires the HTTP surface. A nil status func yields a minimal
// status payload.
func NewServer(bind string, rs *resolver.Resolver, st *store.Store, hub *broadcast.Hub, status StatusFunc, logger *slog.Logger) *Server {
	srv := &Server{
		bind:     strings.TrimSpace(bind),
		logger:   logging.NewComponentLogger(logger, "api-server"),
		resolver: rs,
		store:    st,
		hub:      hub,
		status:   status,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/resolve", srv.handleResolve)
	mux.HandleFunc("/api/ratings", srv.handleRatings)
	mux.HandleFunc("/api/updates", srv.handleUpdates)
	mux.HandleFunc("/api/status", srv.handleStatus)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Resolutions and long polls both sit behind the write deadline.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

// Start begins serving until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ResolveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Artist) == "" || strings.TrimSpace(req.Album) == "" {
		s.writeError(w, http.StatusBadRequest, "artist and album are required")
		return
	}

	outcome, err := s.resolver.Resolve(r.Context(), req.Artist, req.Album)
	switch {
	case errors.Is(err, resolver.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, ResolveResponse{NotFound: true})
	case errors.Is(err, resolver.ErrClosed):
		s.writeError(w, http.StatusServiceUnavailable, "resolver shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, err.Error())
	case err != nil:
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, ResolveResponse{
			Rating:        FromRecord(outcome.Record),
			Source:        string(outcome.Source),
			Stale:         outcome.Stale,
			PersistFailed: outcome.PersistErr != nil,
		})
	}
}

func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	artist := strings.TrimSpace(query.Get("artist"))
	album := strings.TrimSpace(query.Get("album"))
	if artist == "" || album == "" {
		s.writeError(w, http.StatusBadRequest, "artist and album are required")
		return
	}

	rec, err := s.store.Get(r.Context(), ratings.NewKey(artist, album))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		s.writeJSON(w, http.StatusNotFound, RatingsResponse{Found: false})
		return
	}
	s.writeJSON(w, http.StatusOK, RatingsResponse{Rating: FromRecord(rec), Found: true})
}

func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")

	updates, next, err := s.hub.Fetch(r.Context(), since, limit, follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := UpdatesResponse{Next: next, Updates: make([]UpdatePayload, 0, len(updates))}
	for _, u := range updates {
		payload.Updates = append(payload.Updates, UpdatePayload{
			Sequence:  u.Sequence,
			Timestamp: u.Timestamp,
			Rating:    FromRecord(u.Record),
		})
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload StatusResponse
	if s.status != nil {
		payload = s.status(r.Context())
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
