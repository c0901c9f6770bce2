// Package web provides the HTTP API and HTML fragments for the table engine.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/JonMunkholm/facilitytables/internal/config"
	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/JonMunkholm/facilitytables/internal/web/middleware"
)

// Options carries optional collaborators of a Server.
type Options struct {
	// Metrics serves GET /metrics when set.
	Metrics http.Handler

	// Observer records request latencies when set.
	Observer middleware.RequestObserver
}

// Server is the HTTP server for the table engine.
type Server struct {
	engine *core.Engine
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
}

// NewServer creates a new Server instance.
func NewServer(engine *core.Engine, cfg *config.Config, opts Options) *Server {
	s := &Server{
		engine: engine,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupMiddleware(opts)
	s.setupRoutes(opts)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger(opts.Observer))
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(s.securityHeaders)
	s.router.Use(s.limitBody)

	if s.cfg.Rate.Enabled && s.cfg.Rate.RequestsPerMinute > 0 {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(opts Options) {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/tables", s.handleListTables)
		r.Get("/schema", s.handleSchema)
		r.Post("/validate", s.handleValidate)

		r.Route("/tables/{tableType}", func(r chi.Router) {
			r.Get("/config", s.handleGetConfig)
			r.Post("/compile", s.handleCompile)
			r.Post("/format", s.handleFormat)
			r.Post("/optimize", s.handleOptimize)
			r.Post("/render", s.handleRender)
			r.Post("/rows", s.handleRows)

			// Column mutations
			r.Group(func(r chi.Router) {
				s.guardWrites(r)
				r.Post("/columns", s.handleAddColumn)
				r.Post("/columns/reorder", s.handleReorderColumns)
				r.Put("/columns/{key}", s.handleUpdateColumn)
				r.Delete("/columns/{key}", s.handleRemoveColumn)
			})
		})

		r.Group(func(r chi.Router) {
			s.guardWrites(r)
			r.Post("/cache/clear", s.handleClearCache)
		})
	})
}

// guardWrites applies API key auth and the stricter mutation rate limit.
func (s *Server) guardWrites(r chi.Router) {
	r.Use(middleware.APIKeyAuth(&s.cfg.Security))
	if s.cfg.Rate.Enabled && s.cfg.Rate.MutationLimit > 0 {
		limiter := newRateLimiter(s.cfg.Rate.MutationLimit, time.Minute)
		r.Use(limiter.middleware)
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			// Rendered fragments carry no scripts.
			w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody caps request bodies at SERVER_MAX_BODY_BYTES.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter keeps a token bucket per client IP. Each bucket holds up to
// limit tokens and refills at limit per window.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	window   time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newRateLimiter creates a rate limiter allowing n requests per window.
func newRateLimiter(n int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(max(n, 1))),
		burst:    n,
		window:   window,
		now:      time.Now,
	}
}

// allow consumes a token for ip. Idle visitors are dropped while the lock
// is held.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.visitors) > 1024 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.window*2 {
				delete(rl.visitors, k)
			}
		}
	}

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeErrorJSON(w, http.StatusTooManyRequests, core.UserMessage{
				Message: "リクエストが多すぎます",
				Action:  "しばらく待ってから再度お試しください",
				Code:    "RATE001",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json encode error", "error", err)
	}
}
