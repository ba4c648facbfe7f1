package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/botcanvas"
	"github.com/aretw0/botcanvas/internal/config"
	"github.com/aretw0/botcanvas/internal/logging"
	"github.com/aretw0/botcanvas/pkg/adapters/file"
	"github.com/aretw0/botcanvas/pkg/adapters/memory"
	httpAdapter "github.com/aretw0/botcanvas/pkg/adapters/http"
	redisAdapter "github.com/aretw0/botcanvas/pkg/adapters/redis"
	"github.com/aretw0/botcanvas/pkg/observability"
	"github.com/aretw0/botcanvas/pkg/persistence/middleware"
	"github.com/aretw0/botcanvas/pkg/ports"
	"github.com/aretw0/botcanvas/pkg/session"
	"golang.org/x/sync/errgroup"
)

// Server is the assembled HTTP host.
type Server struct {
	Handler  http.Handler
	Sessions *session.Manager
	Metrics  *observability.Metrics

	closers []func() error
}

// Close releases the backing store connections.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// BuildServer wires the document store, its middlewares, the template
// library and the metrics into an HTTP handler according to cfg.
func BuildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	srv := &Server{Metrics: observability.NewMetrics()}

	var (
		store  ports.GraphStore
		locker ports.DistributedLocker
	)
	if cfg.Redis.Addr != "" {
		rs := redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisAdapter.WithPrefix(cfg.Redis.Prefix),
			redisAdapter.WithTTL(cfg.Redis.TTL),
		)
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		srv.closers = append(srv.closers, rs.Close)
		store = rs
		locker = redisAdapter.NewLocker(rs.Client(), cfg.Redis.Prefix)
		logger.Info("documents stored in redis", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
	} else if cfg.Storage.Dir != "" {
		store = file.New(cfg.Storage.Dir)
		logger.Info("documents stored on disk", "dir", cfg.Storage.Dir)
	} else {
		store = memory.NewStore()
		logger.Warn("documents kept in memory; they are lost on restart")
	}

	var mws []middleware.Middleware
	if len(cfg.Redaction.Patterns) > 0 {
		mws = append(mws, middleware.NewRedactionMiddleware(cfg.Redaction.Patterns))
	}
	if cfg.Encryption.Key != "" {
		key, err := cfg.EncryptionKey()
		if err != nil {
			srv.Close()
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	store = middleware.Chain(store, mws...)

	streams := httpAdapter.NewStreamManager(logger)
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithHooks(srv.Metrics.Hooks()),
		session.WithHooks(observability.LoggingHooks(logger)),
		session.WithDiffListener(streams.Publish),
	}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	srv.Sessions = session.NewManager(store, opts...)

	handlerOpts := []httpAdapter.Option{
		httpAdapter.WithSessions(srv.Sessions),
		httpAdapter.WithStreams(streams),
		httpAdapter.WithMetrics(srv.Metrics),
		httpAdapter.WithLogger(logger),
	}
	if cfg.Templates != "" {
		templates, err := botcanvas.OpenTemplates(cfg.Templates)
		if err != nil {
			srv.Close()
			return nil, err
		}
		handlerOpts = append(handlerOpts, httpAdapter.WithTemplates(templates))
		logger.Info("template library loaded", "dir", cfg.Templates)
	}

	handler, err := httpAdapter.NewHandler(handlerOpts...)
	if err != nil {
		srv.Close()
		return nil, err
	}
	srv.Handler = handler
	return srv, nil
}

// Serve runs the HTTP host until ctx is cancelled, then shuts down within
// cfg.HTTP.ShutdownTimeout.
func Serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.NewWithWriter(os.Stderr, cfg.SlogLevel(), logging.Format(cfg.Log.Format))

	srv, err := BuildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("botcanvas server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down", "timeout", cfg.HTTP.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			httpServer.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		logger.Info("botcanvas server stopped gracefully")
		return nil
	})
	return g.Wait()
}
