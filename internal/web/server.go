// Package web provides the HTTP server of the register: HTML pages, the JSON
// API, file import and export, and the websocket change feed.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/tamween/internal/config"
	"github.com/JonMunkholm/tamween/internal/core"
	"github.com/JonMunkholm/tamween/internal/realtime"
	"github.com/JonMunkholm/tamween/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the register.
type Server struct {
	service *core.Service
	hub     *realtime.Hub
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	limiter *rateLimiter
}

// NewServer creates a Server. hub may be nil, in which case /ws is not
// served.
func NewServer(service *core.Service, hub *realtime.Hub, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		hub:     hub,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = newRateLimiter(cfg.Server.RateLimit, time.Minute)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(s.securityHeaders)
	s.router.Use(requestSource)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	// The websocket lives outside the request timeout and compression.
	if s.hub != nil {
		s.router.Handle("/ws", s.hub)
	}

	s.router.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))
		if s.cfg.Server.RequestTimeout > 0 {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
		}

		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
		r.Get("/healthz", s.handleHealth)

		// Pages
		r.Get("/", s.handleIndex)
		r.Get("/customers/new", s.handleNewForm)
		r.Post("/customers", s.handleCreate)
		r.Get("/customers/{id}/edit", s.handleEditForm)
		r.Post("/customers/{id}", s.handleUpdate)
		r.Get("/customers/{id}/delete", s.handleDeleteConfirm)
		r.Post("/customers/{id}/delete", s.handleDelete)
		r.Get("/import", s.handleImportForm)
		r.Post("/import", s.handleImport)
		r.Get("/export/{format}", s.handleExport)

		// JSON API
		r.Route("/api", func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.limiter.middleware)
			}
			r.Get("/customers", s.handleAPIList)
			r.Post("/customers", s.handleAPICreate)
			r.Get("/customers/{id}", s.handleAPIGet)
			r.Put("/customers/{id}", s.handleAPIUpdate)
			r.Delete("/customers/{id}", s.handleAPIDelete)
			r.Get("/stats", s.handleAPIStats)
			r.Get("/changes", s.handleChanges)
			r.Post("/reset", s.handleAPIReset)
			r.Post("/import", s.handleAPIImport)
			r.Get("/export/{format}", s.handleExport)
		})
	})
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
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
		w.Header().Set("Referrer-Policy", "same-origin")
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; script-src 'self'; style-src 'self'; connect-src 'self'; img-src 'self' data:")
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a fixed-window request counter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup drops idle visitors until stop is called.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// allow consumes a token for ip if one is left in the current window.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok || time.Since(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded", Message: "rate limit exceeded", Code: "REQ429",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
