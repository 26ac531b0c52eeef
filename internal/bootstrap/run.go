package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lessonforge/videogen/config"
	httpx "github.com/lessonforge/videogen/internal/http"
)

const shutdownTimeout = 10 * time.Second

// RunOptions groups dependencies for Run.
type RunOptions struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// Run starts the enabled services and blocks until a shutdown signal or a
// service failure. Returns nil on graceful shutdown.
func Run(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil || opts.Services == nil {
		return errors.New("config and services are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if opts.Config.IsHTTPServerEnabled() {
		server := &http.Server{
			Addr: opts.Config.HTTP.Addr,
			Handler: httpx.NewRouter(httpx.RouterServices{
				Scheduler:       opts.Services.Scheduler,
				Store:           opts.Services.Store,
				CORSAllowOrigin: opts.Config.HTTP.CORSAllowOrigin,
				Logger:          logger,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.InfoContext(ctx, "http server listening", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			logger.Info("shutting down http server")
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown http server: %w", err)
			}
			return nil
		})
	}

	if opts.Services.Reaper != nil {
		g.Go(func() error {
			return opts.Services.Reaper.Run(ctx)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
