// Package server wires the netprofile HTTP API together.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pendergraft/netprofile/internal/auth"
	"github.com/pendergraft/netprofile/internal/chains"
	"github.com/pendergraft/netprofile/internal/config"
	"github.com/pendergraft/netprofile/internal/middleware/logging"
	"github.com/pendergraft/netprofile/internal/middleware/ratelimit"
	"github.com/pendergraft/netprofile/internal/middleware/realip"
	"github.com/pendergraft/netprofile/internal/middleware/security"
	"github.com/pendergraft/netprofile/internal/networks/domain"
	"github.com/pendergraft/netprofile/internal/networks/transport"
	"github.com/pendergraft/netprofile/internal/observability/metrics"
	"github.com/pendergraft/netprofile/internal/profile"
)

// Server is the HTTP server
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	router  *chi.Mux
	limiter *ratelimit.RateLimiter
	keys    auth.KeyValidator

	networksSvc transport.Service
}

// New builds the server around one loaded document. env is the environment
// the document was resolved against; chain connects to its networks.
func New(cfg *config.Config, doc *profile.Document, env profile.Environment, chain chains.Chain, logger *slog.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		router: chi.NewRouter(),
	}

	impl := domain.NewService(doc, env, chain, domain.Options{ProbeTimeout: cfg.Probe.Timeout})
	s.networksSvc = domain.LoggingMiddleware(logger)(impl)

	if cfg.Auth.Type == "api-key" {
		keys, err := auth.NewStaticKeys(cfg.Auth.APIKeyHashes)
		if err != nil {
			return nil, fmt.Errorf("loading api key hashes: %w", err)
		}
		s.keys = keys
	}

	if err := s.setupMiddleware(); err != nil {
		return nil, err
	}
	s.setupRoutes()

	return s, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases background resources. The HTTP listener is owned by the caller.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) setupMiddleware() error {
	// Client IP first, everything after depends on it.
	clientIP, err := realip.Middleware(realip.Config{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	})
	if err != nil {
		return err
	}
	s.router.Use(clientIP)

	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(security.Filter(s.cfg.Security.FilterEnabled))
	s.router.Use(security.LimitBody(s.cfg.Security.MaxBodySizeMB))

	if s.cfg.RateLimit.Enabled {
		s.limiter = ratelimit.New(ratelimit.Config{
			RequestsPerMin:      s.cfg.RateLimit.RequestsPerMin,
			BurstSize:           s.cfg.RateLimit.BurstSize,
			ProbeRequestsPerMin: s.cfg.RateLimit.ProbeRequestsPerMin,
			CleanupMinutes:      s.cfg.RateLimit.CleanupMinutes,
		})
		s.router.Use(s.limiter.Middleware())
	}

	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(time.Duration(s.cfg.Server.RequestTimeout) * time.Second))
	}
	s.router.Use(middleware.Compress(5))

	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-API-Key")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	return nil
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)
	if metrics.Enabled() {
		s.router.Handle("/metrics", metrics.Handler())
	}

	networks := transport.NewHandler(s.networksSvc)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleInfo)
		networks.RegisterReadRoutes(r)

		// Probes reach out to remote nodes and uploads cost parsing, so
		// both sit behind the API key when one is configured.
		r.Group(func(r chi.Router) {
			if s.keys != nil {
				r.Use(auth.Middleware(s.keys, writeError))
			}
			networks.RegisterWriteRoutes(r)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready only while the served document is valid.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	report, err := s.networksSvc.Report(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	if !report.Valid() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "invalid document",
			"errors": len(report.Errors()),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.networksSvc.Info(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
