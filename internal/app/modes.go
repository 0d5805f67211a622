package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oraclesettle/parimutuel/internal/server"
)

// shutdownGrace bounds how long the health server is given to drain
// in-flight requests when a mode's context is cancelled.
const shutdownGrace = 10 * time.Second

// DriverMode runs the off-chain resolution driver and, if the health server
// is enabled, the readiness listener alongside it. It blocks until ctx is
// cancelled or either subsystem returns an error.
func (a *App) DriverMode(ctx context.Context, deps *Dependencies) error {
	if deps.Driver == nil {
		return fmt.Errorf("app: driver mode requires oracle key configuration")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Driver.Run(gctx)
	})
	a.runArchiver(gctx, g, deps)

	if a.cfg.Server.Enabled {
		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		}, deps.HealthDeps, a.logger)

		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		return fmt.Errorf("app: driver mode: %w", err)
	}
	return nil
}

// ServerMode runs only the health/readiness HTTP listener, for deployments
// where resolution is driven by a separate process (or settlectl invoked
// from a scheduler) and this process exists only so orchestrators have
// something to probe. The archiver still runs here if S3 is configured,
// since archival is independent of which process drives resolution.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, deps.HealthDeps, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	a.runArchiver(gctx, g, deps)

	if err := g.Wait(); err != nil && err != context.Canceled {
		return fmt.Errorf("app: server mode: %w", err)
	}
	return nil
}

// FullMode runs the resolution driver and the health server together,
// equivalent to DriverMode with the server forced on regardless of
// cfg.Server.Enabled.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	if deps.Driver == nil {
		return fmt.Errorf("app: full mode requires oracle key configuration")
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, deps.HealthDeps, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Driver.Run(gctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	a.runArchiver(gctx, g, deps)

	if err := g.Wait(); err != nil && err != context.Canceled {
		return fmt.Errorf("app: full mode: %w", err)
	}
	return nil
}

// runArchiver registers a goroutine on g that runs deps.Archiver on a
// ticker until gctx is cancelled. A no-op when no S3 archiver is
// configured. Each tick archives resolved markets and claimed wagers
// older than the configured retention period; a failed sweep is logged
// and retried on the next tick rather than aborting the group.
func (a *App) runArchiver(gctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}

	interval := a.cfg.S3.ArchiveInterval()
	if interval <= 0 {
		interval = time.Hour
	}
	retention := a.cfg.S3.RetentionPeriod()

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				if n, err := deps.Archiver.ArchiveMarkets(gctx, cutoff); err != nil {
					a.logger.ErrorContext(gctx, "archive markets failed", slog.String("error", err.Error()))
				} else if n > 0 {
					a.logger.InfoContext(gctx, "archived markets", slog.Int64("count", n))
				}
				if n, err := deps.Archiver.ArchiveClaims(gctx, cutoff); err != nil {
					a.logger.ErrorContext(gctx, "archive claims failed", slog.String("error", err.Error()))
				} else if n > 0 {
					a.logger.InfoContext(gctx, "archived claims", slog.Int64("count", n))
				}
			}
		}
	})
}
