package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"todo-api/backend/internal/cache"
	"todo-api/backend/internal/config"
	"todo-api/backend/internal/monitoring"
	"todo-api/backend/internal/repositories"
	"todo-api/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	store      repositories.TodoStore
	closeStore CloseFunc
	cache      cache.Cache
}

// New connects the store (and the cache when enabled), migrates it and
// builds the HTTP server. Nothing is listening until Run is called.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open todo store: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		closeStore(context.Background())
		return nil, fmt.Errorf("failed to migrate todo store: %w", err)
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		closeStore: closeStore,
	}

	monitor := monitoring.NewRegistry()
	monitor.RegisterHealthCheck("database", store.Health)

	var todoService services.TodoService = services.NewTodoService(store)
	if cfg.Cache.Enabled {
		s.cache = cache.NewMultiLevelCache(cache.NewRedisCache(&cache.CacheConfig{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    cache.DefaultCacheConfig().KeyPrefix,
		}))
		monitor.RegisterOptionalCheck("cache", s.cache.Health)

		cached := services.NewCachedTodoService(todoService, s.cache, cfg.Cache.ListTTL, cfg.Cache.ItemTTL)
		if err := cached.WarmCache(ctx); err != nil {
			logger.Warn("starting with a cold cache", "error", err)
		}
		todoService = cached
	}

	router := NewRouter(Dependencies{
		TodoService: todoService,
		Monitor:     monitor,
		Logger:      logger,
		CORS:        cfg.CORS,
	})

	s.httpServer = &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to Server.ShutdownTimeout and releases the store and cache.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.Close(context.Background())
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("server listening",
			"addr", listener.Addr().String(),
			"driver", s.cfg.Database.Driver,
			"cache", s.cfg.Cache.Enabled,
		)
		serveErr <- s.httpServer.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		s.Close(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", "timeout", s.cfg.Server.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if closeErr := s.Close(shutdownCtx); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
		s.cache = nil
	}
	if s.closeStore != nil {
		if err := s.closeStore(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		s.closeStore = nil
	}
	return errors.Join(errs...)
}
