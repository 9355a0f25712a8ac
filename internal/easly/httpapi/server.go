// Package httpapi serves the assistant and the shop REST endpoints over
// HTTP using a chi router.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/assistant"
	"github.com/shopeasly/easly/internal/easly/catalog"
	"github.com/shopeasly/easly/internal/easly/ratelimit"
)

// MaxBodyBytes bounds request bodies; image attachments travel inline.
const MaxBodyBytes = 12 << 20

// Pinger reports database health; *store.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Server. Limiter, Metrics, DB and
// UploadsDir are optional.
type Deps struct {
	Assistant *assistant.Assistant
	Catalog   *catalog.Catalog
	Executor  *actions.Executor
	Limiter   *ratelimit.Limiter
	Metrics   http.Handler
	DB        Pinger
	// Providers lists the configured model providers for /status.
	Providers []string

	UploadsDir    string
	UploadsPrefix string
}

// Server is the HTTP front end.
type Server struct {
	deps      Deps
	startedAt time.Time
	router    chi.Router
	server    *http.Server
}

// New builds the router. It does not listen.
func New(d Deps) *Server {
	s := &Server{deps: d, startedAt: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(traceRequests)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}
		r.Post("/api/ai", s.handleAI)
	})

	r.Route("/inventory/api", func(r chi.Router) {
		r.Get("/", s.listInventory)
		r.Post("/", s.createInventory)
		r.Put("/{id}", s.updateInventory)
		r.Delete("/{id}", s.deleteInventory)
	})
	r.Get("/orders/api", s.listOrders)

	if d.UploadsDir != "" {
		prefix := strings.TrimRight(d.UploadsPrefix, "/")
		if prefix == "" {
			prefix = "/images/uploads"
		}
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(d.UploadsDir))))
	}

	s.router = r
	return s
}

// ServeHTTP lets the server be exercised with httptest without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on addr and serves in the background until ctx is
// cancelled. It returns once the listener is open.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Agent turns chain several model calls.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server stopped", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop shuts the server down, waiting up to ten seconds for in-flight
// requests.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		slog.Warn("http server shutdown error", "err", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("httpapi: failed to encode JSON response", "err", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
