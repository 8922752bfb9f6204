package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"apptcal/internal/config"
	appLog "apptcal/internal/log"
	"apptcal/internal/manager"
)

// Server is the HTTP front end over the appointment manager. All manager
// access goes through the shared manager.Locked.
type Server struct {
	cfg  *config.Config
	book *manager.Locked
	mux  *http.ServeMux

	// now is the clock used to resolve "today"; replaced in tests.
	now func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, book *manager.Locked) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if book == nil {
		book = manager.NewLocked(nil)
	}
	s := &Server{
		cfg:  cfg,
		book: book,
		mux:  http.NewServeMux(),
		now:  time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="apptcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves the API on cfg.Listen until ctx is cancelled, then
// shuts down gracefully.
func ListenAndServe(ctx context.Context, cfg *config.Config, book *manager.Locked) error {
	s := NewServer(cfg, book)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

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
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/appointments", s.handleList)
	s.mux.HandleFunc("POST /api/appointments", s.handleCreate)
	s.mux.HandleFunc("GET /api/appointments/on", s.handleOn)
	s.mux.HandleFunc("GET /api/appointments/{id}", s.handleGet)
	s.mux.HandleFunc("PUT /api/appointments/{id}", s.handleUpdate)
	s.mux.HandleFunc("DELETE /api/appointments/{id}", s.handleDelete)

	s.mux.HandleFunc("GET /api/occurrences", s.handleOccurrences)
	s.mux.HandleFunc("GET /api/calendar.ics", s.handleExport)
	s.mux.HandleFunc("POST /api/import", s.handleImport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
