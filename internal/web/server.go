// Package web provides the HTTP API of the leads importer.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/leadimport/internal/config"
	"github.com/JonMunkholm/leadimport/internal/core"
	"github.com/JonMunkholm/leadimport/internal/logging"
	"github.com/JonMunkholm/leadimport/internal/metrics"
	"github.com/JonMunkholm/leadimport/internal/web/middleware"
)

// LeadService is what the handlers need from core.Service.
type LeadService interface {
	ImportLeads(ctx context.Context, req core.ImportRequest) (core.ImportResult, error)
	Columns(ctx context.Context) ([]core.ColumnDescriptor, error)
	SuggestMapping(ctx context.Context, headers []string) ([]core.HeaderMapping, error)
	GetLead(ctx context.Context, id int64) (map[string]any, error)
	DeleteLead(ctx context.Context, id int64) error
	LimiterStatus() core.ImportLimiterStatus
}

// Server is the HTTP server.
type Server struct {
	service LeadService
	cfg     *config.Config
	metrics *metrics.Metrics
	router  *chi.Mux
	server  *http.Server

	checks   []healthCheck
	limiters []*middleware.RateLimiter
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type healthCheck struct {
	name  string
	check HealthCheck
}

// Option customizes a Server.
type Option func(*Server)

// WithHealthCheck adds a dependency to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		s.checks = append(s.checks, healthCheck{name: name, check: check})
	}
}

// NewServer builds the router. m may be nil when metrics are disabled.
func NewServer(service LeadService, cfg *config.Config, m *metrics.Metrics, opts ...Option) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		metrics: m,
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	if len(s.cfg.Security.CORSAllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Security.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	s.router.Use(securityHeaders)
	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.cfg.Rate.RequestsPerMinute))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		// Imports are bounded by the service's own timeout and limiter.
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(s.rateLimit(s.cfg.Rate.ImportLimit))
			}
			r.Post("/leads/import", s.handleImport)
			r.Post("/leads/import/file", s.handleImportFile)
			r.Post("/leads/import/preview", s.handlePreview)
		})

		r.Group(func(r chi.Router) {
			if s.cfg.Server.RequestTimeout > 0 {
				r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
			}
			r.Get("/leads/columns", s.handleColumns)
			r.Get("/leads/{id}", s.handleGetLead)
			r.Delete("/leads/{id}", s.handleDeleteLead)
		})
	})
}

// rateLimit returns a per-minute limiter middleware, or a pass-through
// when perMinute is not positive.
func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rl := middleware.NewRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl.Middleware
}

// Start listens until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	logging.FromContext(context.Background()).Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

type healthResponse struct {
	Status       string                   `json:"status"`
	Dependencies map[string]string        `json:"dependencies,omitempty"`
	Imports      core.ImportLimiterStatus `json:"imports"`
}

// handleHealth answers 503 when any dependency check fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Imports: s.service.LimiterStatus()}
	status := http.StatusOK
	if len(s.checks) > 0 {
		resp.Dependencies = make(map[string]string, len(s.checks))
	}
	for _, c := range s.checks {
		if err := c.check(ctx); err != nil {
			resp.Dependencies[c.name] = "unhealthy: " + err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[c.name] = "healthy"
	}
	writeJSON(w, r, status, resp)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v with status. Encoding errors are only logged since
// the header is already out.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
