package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nov03/bgdeploy-ts/internal/apperr"
	"github.com/nov03/bgdeploy-ts/internal/config"
	"github.com/nov03/bgdeploy-ts/internal/logger"
	"github.com/nov03/bgdeploy-ts/internal/server/handlers"
	appmiddleware "github.com/nov03/bgdeploy-ts/internal/server/middleware"
	"github.com/nov03/bgdeploy-ts/internal/telemetry"
	"github.com/nov03/bgdeploy-ts/internal/version"
)

type Server struct {
	config  *config.ServerEnvironment
	logger  *slog.Logger
	router  *chi.Mux
	handler http.Handler

	ready atomic.Bool

	mu   sync.Mutex
	addr net.Addr
}

func NewServer(
	cfg *config.ServerEnvironment,
	logger *slog.Logger,
) (*Server, error) {
	server := &Server{
		config: cfg,
		logger: logger,
		router: chi.NewRouter(),
	}

	if err := server.setupMiddleware(); err != nil {
		return nil, err
	}
	server.registerRoutes()

	return server, nil
}

// setupMiddleware wraps the router in the middleware chain.
//
// The chain wraps the router instead of being added with router.Use because chi only runs
// Use middleware once a route is registered, and by default no routes are registered.
func (s *Server) setupMiddleware() error {
	tracing, err := telemetry.NewMiddleware(s.config.InstanceID)
	if err != nil {
		return err
	}

	s.handler = chi.Chain(
		middleware.RequestID,
		middleware.RealIP,
		logger.RequestLogging(s.logger),
		tracing,
		appmiddleware.Recoverer,
		appmiddleware.InstanceID(s.config.InstanceID),
		appmiddleware.SecurityHeaders(s.config.Environment),
		appmiddleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst),
		appmiddleware.RequestSizeLimit(s.config.MaxRequestBodyBytes),
		middleware.Timeout(s.config.HandlerTimeout),
	).Handler(s.router)

	return nil
}

func (s *Server) registerRoutes() {
	s.router.NotFound(s.handleNotFound)
	s.router.MethodNotAllowed(s.handleMethodNotAllowed)

	if !s.config.InfraRoutesEnabled {
		return
	}

	s.router.Get("/health/live", handlers.HandleHealth)
	s.router.Get("/health/ready", handlers.HandleReadiness(s))
	s.router.Get("/version", handlers.HandleVersion(version.Get(), s.config.InstanceID))
}

// Handler returns the http handler including the middleware chain
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Ready reports whether the server is listening and not shutting down
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// Addr returns the address the server is bound to, or nil if it is not listening
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the configured address and serves requests until ctx is cancelled.
//
// The listener is bound synchronously: a port that cannot be bound (already in use, permission denied)
// is returned as an error straight away.
func (s *Server) Start(ctx context.Context) error {
	serverAddr := s.config.Addr()

	listener, err := net.Listen("tcp", serverAddr)
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return s.Serve(ctx, listener)
}

// Serve serves requests on listener until ctx is cancelled, then shuts down gracefully.
// The listener is closed when Serve returns.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()

	serverErrors := make(chan error, 1)

	s.ready.Store(true)
	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", listener.Addr().String()),
			slog.String("instance_id", s.config.InstanceID))

		err := httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		s.ready.Store(false)
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	// stop reporting ready so load balancers stop routing new requests while in-flight requests complete
	s.ready.Store(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// StartupHint returns a short explanation for common listener errors, or "" if there is none.
func StartupHint(err error) string {
	switch {
	case errors.Is(err, syscall.EADDRINUSE):
		return "the port is already in use by another process"
	case errors.Is(err, os.ErrPermission):
		return "binding to ports below 1024 requires root or the CAP_NET_BIND_SERVICE capability (or set PORT)"
	default:
		return ""
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	apperr.RespondWithError(w, r, apperr.NewNotFoundError(fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	apperr.RespondWithError(w, r, apperr.NewMethodNotAllowedError(fmt.Sprintf("method %s not allowed for %s", r.Method, r.URL.Path)))
}
