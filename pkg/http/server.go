package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"office_word_mcp_server/internal/config"
	"office_word_mcp_server/pkg/circuitbreaker"
	"office_word_mcp_server/pkg/httpmiddleware"
	"office_word_mcp_server/pkg/logger"
	"office_word_mcp_server/pkg/ratelimiter"
)

// HealthPath answers liveness probes and is never authenticated.
const HealthPath = "/healthz"

// Middleware defines a function to wrap an http.Handler.
type Middleware func(http.Handler) http.Handler

// Server is a custom HTTP server that wraps the standard http.Server
// and provides built-in support for middleware.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	log        *logger.Logger
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// NewServer creates and configures a new Server instance based on the provided AppConfig and options.
// JWT auth, per-client rate limiting and circuit breaking are applied in that order when enabled.
func NewServer(cfg *config.AppConfig, opts ...ServerOption) (*Server, error) {
	mux := http.NewServeMux()
	var handler http.Handler = mux
	log := logger.New("http-server", "", "")

	// Chain middleware
	var middlewares []Middleware

	if cfg.Auth.Method == "jwt" {
		if cfg.Auth.JwtSecret == "" {
			return nil, errors.New("jwt auth requires a secret")
		}
		log.Info("Enabling JWT auth middleware.")
		middlewares = append(middlewares, httpmiddleware.JWTAuth(cfg.Auth.JwtSecret, HealthPath))
	}

	if cfg.Middleware.RateLimiter.Enabled {
		limiter, err := createRateLimiter(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		log.Infof("Enabling Rate Limiter middleware with algorithm: %s", cfg.Middleware.RateLimiter.Algorithm)
		middlewares = append(middlewares, httpmiddleware.RateLimit(limiter, cfg.Middleware.RateLimiter.TrustForwardedFor))
	}

	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := NewBreaker("http", cfg.Middleware.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		log.Info("Enabling Circuit Breaker middleware.")
		middlewares = append(middlewares, httpmiddleware.CircuitBreak(breaker))
	}

	// Apply all middlewares in reverse order
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	srv := &Server{
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		mux: mux,
		log: log,
	}
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	// Apply all the options
	for _, opt := range opts {
		opt(srv)
	}

	// Set a default address if none was provided
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = cfg.Server.Addr()
	}

	return srv, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Handle registers the handler for the given pattern.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// HandleFunc registers the handler function for the given pattern.
func (s *Server) HandleFunc(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	if s.httpServer.Addr == "" {
		return fmt.Errorf("server address is not set")
	}
	s.log.Infof("Starting server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// grace.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		// Streaming connections (SSE) do not end by themselves.
		s.log.WithError(err).Warn("graceful shutdown timed out, closing connections")
		_ = s.httpServer.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// createRateLimiter initializes a per-client rate limiter based on the configuration.
func createRateLimiter(cfg config.RateLimiterConfig) (*ratelimiter.Keyed, error) {
	settings := ratelimiter.Settings{Algorithm: cfg.Algorithm}
	switch cfg.Algorithm {
	case "", ratelimiter.AlgorithmTokenBucket:
		settings.Rate = cfg.TokenBucket.Rate
		settings.Capacity = cfg.TokenBucket.Capacity
	case ratelimiter.AlgorithmLeakyBucket:
		settings.Rate = cfg.LeakyBucket.Rate
		settings.Capacity = cfg.LeakyBucket.Capacity
	case ratelimiter.AlgorithmFixedWindow:
		window, err := time.ParseDuration(cfg.FixedWindow.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid fixedWindow duration: %w", err)
		}
		settings.Limit, settings.Window = cfg.FixedWindow.Limit, window
	case ratelimiter.AlgorithmSlidingLog:
		window, err := time.ParseDuration(cfg.SlidingLog.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid slidingLog duration: %w", err)
		}
		settings.Limit, settings.Window = cfg.SlidingLog.Limit, window
	case ratelimiter.AlgorithmSlidingCounter:
		window, err := time.ParseDuration(cfg.SlidingCounter.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid slidingCounter duration: %w", err)
		}
		settings.Limit, settings.Window = cfg.SlidingCounter.Limit, window
		settings.Buckets = cfg.SlidingCounter.Buckets
	}
	return ratelimiter.NewKeyed(settings, cfg.MaxClients)
}

// NewBreaker builds a named circuit breaker from the configuration. State
// changes are logged.
func NewBreaker(name string, cfg config.CircuitBreakerConfig) (*circuitbreaker.Breaker, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	log := logger.New("circuit-breaker", "", "")
	return circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout,
		circuitbreaker.WithName(name),
		circuitbreaker.WithStateChange(func(name string, from, to circuitbreaker.State) {
			log.WithField("breaker", name).Warn(fmt.Sprintf("circuit breaker %s -> %s", from, to))
		}),
	), nil
}
