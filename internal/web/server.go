// Package web exposes the generation pipeline over HTTP: conversation
// and profile endpoints, sample upload, and the SSE generation stream.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/inkvoice/inkvoice/internal/convo"
	"github.com/inkvoice/inkvoice/internal/generate"
	"github.com/inkvoice/inkvoice/internal/ingest"
	"github.com/inkvoice/inkvoice/internal/style"
)

// Pinger reports backing-store health. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	orch         *generate.Orchestrator
	store        convo.Store
	profiles     style.ProfileStore
	uploads      *ingest.Service
	pinger       Pinger
	limiter      *rate.Limiter
	defaultOwner string
}

// ServerConfig contains everything a Server needs.
type ServerConfig struct {
	Logger       *slog.Logger
	Orchestrator *generate.Orchestrator // Required
	Store        convo.Store            // Required
	Profiles     style.ProfileStore     // Required
	Uploads      *ingest.Service        // Optional: nil disables sample upload
	Pinger       Pinger                 // Optional: nil skips the DB health check
	DefaultOwner string                 // Owner used when the request names none
	// RateLimit caps mutating requests per second. Zero disables
	// limiting.
	RateLimit rate.Limit
	RateBurst int
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Profiles == nil {
		return nil, errors.New("profile store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultOwner == "" {
		cfg.DefaultOwner = "local"
	}

	s := &Server{
		mux:          http.NewServeMux(),
		logger:       cfg.Logger,
		orch:         cfg.Orchestrator,
		store:        cfg.Store,
		profiles:     cfg.Profiles,
		uploads:      cfg.Uploads,
		pinger:       cfg.Pinger,
		defaultOwner: cfg.DefaultOwner,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	s.mux.HandleFunc("GET /api/healthz", s.handleHealth)

	s.mux.HandleFunc("POST /api/conversations", s.handleCreateConversation)
	s.mux.HandleFunc("GET /api/conversations", s.handleListConversations)
	s.mux.HandleFunc("GET /api/conversations/{id}/messages", s.handleListMessages)
	s.mux.HandleFunc("POST /api/conversations/{id}/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/conversations/{id}/stop", s.handleStop)
	s.mux.HandleFunc("POST /api/generate", s.handleGenerateSync)

	s.mux.HandleFunc("POST /api/profiles", s.handleCreateProfile)
	s.mux.HandleFunc("GET /api/profiles", s.handleListProfiles)
	s.mux.HandleFunc("POST /api/profiles/{id}/activate", s.handleActivateProfile)
	s.mux.HandleFunc("POST /api/profiles/{id}/samples", s.handleUploadSample)

	return s, nil
}

// ServeHTTP implements http.Handler with the middleware stack:
// Recovery catches panics from every layer below, Logging tracks all
// requests, the rate limiter guards mutations.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var handler http.Handler = s.mux
	if s.limiter != nil {
		handler = RateLimitMiddleware(s.limiter)(handler)
	}
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler.ServeHTTP(w, r)
}

// owner resolves the acting owner for a request.
func (s *Server) owner(r *http.Request) string {
	if o := r.Header.Get("X-Owner-ID"); o != "" {
		return o
	}
	return s.defaultOwner
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
