package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"readyscriptpro/internal/infra/config"
	"readyscriptpro/internal/infra/middleware"
)

// Server is the HTTP front of the API.
type Server struct {
	cfg      config.ServerConfig
	handlers *Handlers
	logger   *slog.Logger
	server   *http.Server

	// Actual bound address (set after Start)
	boundAddr string

	// Lifecycle management for rate limiter cleanup goroutine
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates the API server.
func NewServer(cfg config.ServerConfig, handlers *Handlers, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, handlers: handlers, logger: logger}
}

// Start begins serving. Non-blocking; the listener runs in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.boundAddr = ln.Addr().String()

	go func() {
		s.logger.Info("api server started", "addr", s.boundAddr)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// BoundAddr returns the address the listener bound to, useful when the
// configured address is ":0".
func (s *Server) BoundAddr() string { return s.boundAddr }

// Handler builds the full middleware-wrapped handler without binding a
// listener. Start uses it; tests can serve it directly.
func (s *Server) Handler(ctx context.Context) http.Handler {
	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(ctx)
	}
	mux := http.NewServeMux()
	mux.Handle("/api/generate-script", postOnly(s.handlers.HandleGenerate))
	mux.Handle("/api/script-doctor/analyze", postOnly(s.handlers.HandleAnalyze))
	mux.Handle("/api/script-doctor/apply-suggestion", postOnly(s.handlers.HandleApplySuggestion))
	mux.Handle("/api/script-doctor/rewrite", postOnly(s.handlers.HandleRewrite))
	mux.Handle("/api/export/fdx", postOnly(s.handlers.HandleExportFDX))
	mux.HandleFunc("/api/health", s.handleHealth)

	// CORS runs innermost so OPTIONS preflights still pass the limiter,
	// and every response carries the CORS headers.
	return middleware.SecurityHeaders(
		middleware.RateLimitWithConfig(s.ctx, middleware.RateLimitConfig{
			RequestsPerMin: s.cfg.RequestsPerMin,
			BurstSize:      s.cfg.BurstSize,
			TrustedProxies: s.cfg.TrustedProxies,
		})(middleware.CORS(mux)),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// postOnly rejects everything except POST. OPTIONS never reaches here;
// the CORS middleware answers preflights.
func postOnly(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	})
}
