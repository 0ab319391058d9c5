// ABOUTME: HTTP server exposing the websocket endpoint and health check
// ABOUTME: Wires services, realtime router, and store behind a gorilla/mux router

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/2389/duet-server/internal/dm"
	"github.com/2389/duet-server/internal/realtime"
	"github.com/2389/duet-server/internal/store"
)

const defaultWriteTimeout = 10 * time.Second

// Options tunes the transport layer
type Options struct {
	// AllowedOrigins restricts websocket upgrades and CORS. Empty
	// allows any origin.
	AllowedOrigins []string

	// WriteTimeout bounds each socket write. Zero selects the default.
	WriteTimeout time.Duration
}

// Server is the websocket transport for the messaging core
type Server struct {
	conversations *dm.ConversationService
	messages      *dm.MessageService
	router        *realtime.Router
	store         *store.SQLiteStore
	logger        *slog.Logger
	upgrader      websocket.Upgrader
	writeTimeout  time.Duration
	handler       http.Handler
}

// New creates a Server. Pass nil logger for default.
func New(conversations *dm.ConversationService, messages *dm.MessageService, router *realtime.Router, st *store.SQLiteStore, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	s := &Server{
		conversations: conversations,
		messages:      messages,
		router:        router,
		store:         st,
		logger:        logger.With("component", "server"),
		writeTimeout:  writeTimeout,
	}

	s.upgrader = websocket.Upgrader{
		CheckOrigin: originChecker(opts.AllowedOrigins),
	}

	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Use(corsMiddleware(opts.AllowedOrigins))

	s.handler = r
	return s
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealth reports whether the store is reachable
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// originChecker builds the upgrade origin policy. No configured
// origins means any origin is accepted (same default as the browser
// clients in development).
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin header
		return origin == "" || set[origin]
	}
}
