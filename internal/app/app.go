// Package app provides application lifecycle management for the leaderboard service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
	pkgsync "github.com/gdgc-dbit/leaderboard-sync/internal/sync"
)

// LeaderboardApp encapsulates all components needed to run the leaderboard
// service. It provides lifecycle management and graceful shutdown capabilities
type LeaderboardApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
	stopOnce   sync.Once
}

// Start runs the sync coordinator and the HTTP server until Stop is called
// or one of them fails. When either fails the other is shut down too.
func (app *LeaderboardApp) Start() error {
	g, gctx := errgroup.WithContext(app.ctx)

	g.Go(func() error {
		if err := app.components.SyncCoordinator.Start(gctx); err != nil {
			return fmt.Errorf("sync coordinator failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("Server listening", "address", app.httpServer.Addr)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP server did not shut down cleanly", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// Reconcile performs a single run outside the scheduler and returns its result
func (app *LeaderboardApp) Reconcile(ctx context.Context) (*pkgsync.Result, *pkgsync.Error) {
	return app.components.SyncCoordinator.RunOnce(ctx)
}

// Stop gracefully stops the application with the given timeout
// It stops the sync coordinator and then shuts down the HTTP server
func (app *LeaderboardApp) Stop(timeout time.Duration) error {
	var stopErr error
	app.stopOnce.Do(func() {
		slog.Info("Shutting down server...")

		// Stop sync coordinator first so no run starts during shutdown
		if err := app.components.SyncCoordinator.Stop(); err != nil {
			slog.Error("Failed to stop sync coordinator", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			stopErr = fmt.Errorf("server forced to shutdown: %w", err)
		}

		if app.cancelFunc != nil {
			app.cancelFunc()
		}

		if stopErr == nil {
			slog.Info("Server shutdown complete")
		}
	})
	return stopErr
}

// Close releases storage resources without serving. Used by one-shot commands.
func (app *LeaderboardApp) Close() {
	if app.cancelFunc != nil {
		app.cancelFunc()
	}
}

// GetConfig returns the application configuration
func (app *LeaderboardApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *LeaderboardApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// GetLeaderboardService returns the read service over the persisted records
func (app *LeaderboardApp) GetLeaderboardService() service.LeaderboardService {
	return app.components.LeaderboardService
}
