// Package server exposes the cookbook conversation over HTTP: a browser chat
// page, JSON endpoints for text turns and a voice endpoint that returns the
// reply as speech.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koscakluka/ema-cookbook/core/dialog"
	"github.com/koscakluka/ema-cookbook/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Assistant runs conversations keyed by session ID.
type Assistant interface {
	Start(ctx context.Context, sessionID string) dialog.Turn
	Respond(ctx context.Context, sessionID string, utterance string) (dialog.Turn, error)
	Synthesize(ctx context.Context, text string) (*texttospeech.Speech, error)
	PruneSessions(idle time.Duration) int
}

type Server struct {
	assistant   Assistant
	router      *chi.Mux
	index       *template.Template
	idleTimeout time.Duration
	secure      bool
}

type ServerOption func(*Server)

// WithSessionIdleTimeout sets how long sessions are kept without any request.
func WithSessionIdleTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		if timeout > 0 {
			s.idleTimeout = timeout
		}
	}
}

// WithSecureCookies marks the session cookie as HTTPS only.
func WithSecureCookies() ServerOption {
	return func(s *Server) { s.secure = true }
}

func NewServer(assistant Assistant, opts ...ServerOption) (*Server, error) {
	index, err := template.ParseFS(webFiles, "web/templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}
	static, err := fs.Sub(webFiles, "web/static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static files: %w", err)
	}

	s := &Server{
		assistant:   assistant,
		router:      chi.NewRouter(),
		index:       index,
		idleTimeout: time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.NotFound(s.handleNotFound)
	s.router.MethodNotAllowed(s.handleMethodNotAllowed)

	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))
	s.router.Post("/start", s.handleStart)
	s.router.Post("/chat", s.handleChat)
	s.router.Post("/text", s.handleText)

	return s, nil
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "cookbook",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Run serves on addr until ctx is done and then shuts down gracefully.
// Idle sessions are pruned in the background.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.pruneSessions(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func (s *Server) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(max(s.idleTimeout/4, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := s.assistant.PruneSessions(s.idleTimeout); pruned > 0 {
				logger.DebugContext(ctx, "pruned idle sessions", "count", pruned)
			}
		}
	}
}
