// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/avivl/lockkeeper/internal/config"
	"github.com/avivl/lockkeeper/internal/lock"
	"github.com/avivl/lockkeeper/internal/lockservice"
	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/avivl/lockkeeper/internal/store"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// StoreInitializer builds the coordination store the server's locks use.
type StoreInitializer func(context.Context, *config.GlobalConfig, *observability.SLogger) (store.Store, error)

// NewStoreFromConfig builds the store selected by backend.type through the lockservice registry.
func NewStoreFromConfig(ctx context.Context, cfg *config.GlobalConfig, logger *observability.SLogger) (store.Store, error) {
	storeConfig := cfg.StoreConfig()
	if storeConfig == nil {
		return nil, fmt.Errorf("no configuration for backend %q", cfg.Backend.Type)
	}
	return lockservice.NewStore(ctx, cfg.Backend.Type, storeConfig, logger)
}

// Server exposes the configured locks over HTTP.
type Server struct {
	e       *echo.Echo
	logger  *observability.SLogger
	config  *config.GlobalConfig
	metrics observability.MetricsClient

	mu       sync.Mutex
	store    store.Store
	listener net.Listener

	locks atomic.Pointer[lock.Set]

	metricsHandler http.Handler
}

// Option customizes a Server.
type Option func(*Server)

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

func NewServer(cfg *config.GlobalConfig, logger *observability.SLogger, metrics observability.MetricsClient, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}

	s := &Server{
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.e = s.newEcho()
	return s, nil
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.Recover())
	e.Use(s.metricsMiddleware())

	e.GET("/health", s.health)
	if s.metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}

	v1 := e.Group("/v1")
	v1.GET("/locks", s.listLocks)
	v1.POST("/locks/:name/acquire", s.acquire)
	v1.POST("/locks/:name/release", s.release)
	v1.GET("/locks/:name/:suffix", s.check)
	v1.POST("/batches/:name/acquire", s.acquireBatch)
	v1.POST("/batches/:name/release", s.releaseBatch)

	return e
}

// Handler returns the HTTP handler. Init must have been called.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Init builds the store and the lock set without listening.
func (s *Server) Init(ctx context.Context, storeInitializer StoreInitializer) error {
	st, err := storeInitializer(ctx, s.config, s.logger)
	if err != nil {
		s.logger.ErrorCtx(ctx, err)
		return err
	}

	set, err := s.buildLocks(st, s.config.Definitions())
	if err != nil {
		_ = st.Close()
		return err
	}

	s.mu.Lock()
	s.store = st
	s.mu.Unlock()
	s.locks.Store(set)
	return nil
}

func (s *Server) buildLocks(st store.Store, defs []lock.Definition) (*lock.Set, error) {
	return lock.NewSet(st, defs, lock.WithLogger(s.logger), lock.WithMetrics(s.metrics))
}

// UpdateLocks swaps the lock definitions. The store is kept.
func (s *Server) UpdateLocks(defs []lock.Definition) error {
	s.mu.Lock()
	st := s.store
	s.mu.Unlock()
	if st == nil {
		return errors.New("server is not initialized")
	}

	set, err := s.buildLocks(st, defs)
	if err != nil {
		s.logger.Errorf("rejecting lock definitions: %v", err)
		return err
	}
	s.locks.Store(set)
	s.logger.Infof("lock definitions updated: %v", set.Names())
	return nil
}

// Start listens on the configured address and serves until Stop is called.
func (s *Server) Start(ctx context.Context, storeInitializer StoreInitializer) error {
	listener, err := net.Listen("tcp", s.config.ServerAddress)
	if err != nil {
		s.logger.ErrorCtx(ctx, err)
		return err
	}

	if err := s.Init(ctx, storeInitializer); err != nil {
		_ = listener.Close()
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.e.Listener = listener
	s.mu.Unlock()

	s.logger.InfoCtx(ctx, "server listening at "+listener.Addr().String())

	if err := s.e.Start(s.config.ServerAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down and closes the store.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")

	err := s.e.Shutdown(ctx)

	s.mu.Lock()
	st := s.store
	s.store = nil
	s.listener = nil
	s.mu.Unlock()

	if st != nil {
		if cerr := st.Close(); cerr != nil {
			s.logger.Errorf("closing store: %v", cerr)
			err = errors.Join(err, cerr)
		}
	}
	return err
}
