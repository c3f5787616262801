package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/aseangps/agenthub/agent"
	"github.com/aseangps/agenthub/hub"
	"github.com/aseangps/agenthub/logging"
	"github.com/aseangps/agenthub/magentic"
)

// Server wires the hub, the runtime adapter, and the orchestration engine
// into an http.Handler. Engine may be nil when no orchestrated profile is
// configured; the review endpoint then reports not found.
type Server struct {
	Hub     *hub.Hub
	Adapter *agent.Adapter
	Engine  *magentic.Engine
	Logger  logging.Logger

	// WriteTimeout bounds a single websocket write. Zero means 10s.
	WriteTimeout time.Duration
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/review", s.handleReview)
	mux.HandleFunc("/api/sessions/ws", s.handleSessionWS)

	return s.withLogger(mux)
}

// withLogger seeds every request context with the server's logger so
// handlers and their spawned goroutines log through logging.FromContext.
func (s *Server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(logging.WithContext(r.Context(), s.logger())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) logger() logging.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logging.NoOpLogger{}
}

func (s *Server) writeTimeout() time.Duration {
	if s.WriteTimeout > 0 {
		return s.WriteTimeout
	}
	return 10 * time.Second
}

// Run serves the handler on addr until ctx is cancelled, then drains with a
// short shutdown grace period.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger().Info("http server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func decodeJSON(body io.Reader, dest any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}
