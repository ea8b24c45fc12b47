// Package devserver is a development stand-in for the subscription API. It
// serves the user info and subscription endpoints from SQLite and can inject
// failures and latency to exercise client rollback.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hermes-notify/subsync/pkg/fetch"
	"github.com/hermes-notify/subsync/pkg/session"
	"github.com/hermes-notify/subsync/pkg/subscription"
	"github.com/hermes-notify/subsync/pkg/version"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

// Config holds configuration for the dev server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// DBPath is the SQLite database path. Empty means ":memory:".
	DBPath string

	// Version selects the /api/{version} prefix. Zero means version.Current.
	Version version.APIVersion

	// DefaultToken is used for requests without an Authorization header.
	// Empty makes the header mandatory.
	DefaultToken string

	// Logger receives request logs. Nil disables logging.
	Logger *slog.Logger
}

// Server serves the subscription API.
type Server struct {
	config Config
	prefix string
	store  *Store
	faults faultInjector
	logger *slog.Logger
	mux    *http.ServeMux
	server *http.Server
}

// New creates a server and opens its store.
func New(cfg Config) (*Server, error) {
	if cfg.Version.Major == 0 {
		cfg.Version = version.MustParse(version.Current)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = ":memory:"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store, err := NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	s := &Server{
		config: cfg,
		prefix: cfg.Version.Prefix(),
		store:  store,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/_dev/faults", s.handleFaults)
	s.mux.HandleFunc(s.prefix+session.UserInfoPath, s.api(s.handleMe))
	s.mux.HandleFunc(s.prefix+subscription.SubscriptionsPath, s.api(s.handleSubscriptions))
}

// Store returns the backing store, for seeding.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// SetFaults replaces the injected faults.
func (s *Server) SetFaults(f Faults) {
	s.faults.set(f)
}

// ListenAndServe serves on the configured address.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Serve serves on l.
func (s *Server) Serve(l net.Listener) error {
	return s.server.Serve(l)
}

// Shutdown stops the HTTP server and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close closes the store without an HTTP shutdown, for handler-only use.
func (s *Server) Close() error {
	return s.store.Close()
}

type apiHandler func(w http.ResponseWriter, r *http.Request, token string)

// api wraps an endpoint with auth, fault injection and request logging.
func (s *Server) api(h apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get(fetch.RequestIDHeader)

		fail, latency := s.faults.take(r.Method == http.MethodPost)
		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}
		if fail {
			s.logger.Info("DevServer: injected failure", "method", r.Method, "path", r.URL.Path, "request_id", reqID)
			writeError(w, http.StatusServiceUnavailable, "injected failure")
			return
		}

		token, ok := s.token(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		h(w, r, token)
		s.logger.Debug("DevServer: request", "method", r.Method, "path", r.URL.Path,
			"request_id", reqID, "duration", time.Since(start))
	}
}

func (s *Server) token(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return s.config.DefaultToken, s.config.DefaultToken != ""
	}
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	users, _ := s.store.CountUsers()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.config.Version.String(),
		"users":   users,
	})
}

func (s *Server) handleFaults(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.faults.get())
	case http.MethodPut, http.MethodPost:
		var f Faults
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&f); err != nil {
			writeError(w, http.StatusBadRequest, "invalid faults: "+err.Error())
			return
		}
		if f.FailReads < 0 || f.FailWrites < 0 || f.Latency < 0 {
			writeError(w, http.StatusBadRequest, "faults must not be negative")
			return
		}
		s.faults.set(f)
		writeJSON(w, http.StatusOK, f)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, token string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	info, err := s.store.User(token)
	if errors.Is(err, ErrUnknownUser) {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// subscriptionsBody is the POST payload: topics only.
type subscriptionsBody struct {
	Subscriptions *[]string `json:"subscriptions"`
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request, token string) {
	switch r.Method {
	case http.MethodGet:
		if _, err := s.store.User(token); err != nil {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		topics, err := s.store.Topics(token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, topics)

	case http.MethodPost:
		var body subscriptionsBody
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
			return
		}
		if body.Subscriptions == nil {
			writeError(w, http.StatusBadRequest, "subscriptions is required")
			return
		}
		err := s.store.ReplaceTopics(token, *body.Subscriptions)
		if errors.Is(err, ErrUnknownUser) {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.logger.Info("DevServer: subscriptions replaced", "count", len(*body.Subscriptions))
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a plain-text error; clients use the body as the message.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}
