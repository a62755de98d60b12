// Package api exposes the orchestrator state over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	logger "log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/rpc"
	"github.com/vietddude/bridge/internal/infra/storage"
)

// Runner is the orchestrator surface the API drives.
type Runner interface {
	Start(ctx context.Context, req domain.Request) (domain.Run, error)
	Snapshot() domain.Run
	Busy() bool
	Cancel() bool
	Reset() error
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// ProviderHealth lists RPC provider health for one chain.
type ProviderHealth func() map[string]rpc.HealthStatus

type Server struct {
	runner    Runner
	journal   storage.RunRepository
	checks    map[string]HealthCheck
	providers map[string]ProviderHealth
	runCtx    context.Context
	log       *logger.Logger
	engine    *gin.Engine
}

type Option func(*Server)

// WithJournal enables the /runs endpoints.
func WithJournal(repo storage.RunRepository) Option {
	return func(s *Server) {
		s.journal = repo
	}
}

// WithHealthCheck adds a dependency to /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// WithProviderHealth adds RPC provider health for chain to /health.
func WithProviderHealth(chain string, fn ProviderHealth) Option {
	return func(s *Server) {
		s.providers[chain] = fn
	}
}

// WithRunContext sets the parent context of runs started through the API.
// Runs outlive the request that started them.
func WithRunContext(ctx context.Context) Option {
	return func(s *Server) {
		s.runCtx = ctx
	}
}

func NewServer(runner Runner, opts ...Option) *Server {
	s := &Server{
		runner:    runner,
		checks:    make(map[string]HealthCheck),
		providers: make(map[string]ProviderHealth),
		runCtx:    context.Background(),
		log:       logger.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	s.RegisterRoutes(r)
	s.engine = r
	return s
}

func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.POST("/bridge", s.StartBridge)
	r.GET("/status", s.Status)
	r.POST("/cancel", s.Cancel)
	r.POST("/reset", s.Reset)
	r.GET("/runs", s.ListRuns)
	r.GET("/runs/:id", s.GetRun)
	r.GET("/health", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on port until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API server listening", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
