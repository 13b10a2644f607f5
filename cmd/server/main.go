// Package main is the entry point for the golf pool dashboard server.
// It serves the JSON API the dashboard frontend consumes and, when
// enabled, the live leaderboard websocket feed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/fairwayclub/golfpoolserver/internal/auth"
	"github.com/fairwayclub/golfpoolserver/internal/config"
	"github.com/fairwayclub/golfpoolserver/internal/database"
	"github.com/fairwayclub/golfpoolserver/internal/httpapi"
	"github.com/fairwayclub/golfpoolserver/internal/ratelimit"
	"github.com/fairwayclub/golfpoolserver/internal/websocket"
	"github.com/fairwayclub/golfpoolserver/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		// Sync errors on stdout/stderr are expected and can be safely ignored
		// for non-syncable file descriptors (pipes, terminals, etc.)
		_ = log.Sync()
	}()

	log.Info("starting golf pool server",
		zap.String("environment", cfg.Server.Env),
		zap.String("http_port", cfg.Server.HTTPPort),
	)

	// Initialize database connection
	db, err := database.NewDB(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := runMigrations(db, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic cleanup of expired sessions, states, and cache metadata
	db.StartCleanupJob(ctx, 30*time.Minute)
	go db.StartCacheCleanupJob(ctx, 1*time.Hour)

	// Initialize pool backend client and auth components
	poolClient := auth.NewPoolClient(cfg, log)
	poolClient.SetRateLimiter(ratelimit.NewRateLimiter(log))

	stateManager := auth.NewStateManager(db, cfg.Security.StateExpiryMinutes)
	oauthHandler := auth.NewOAuthHandler(db, poolClient, stateManager, log)
	cacheManager := httpapi.NewCacheManager(db, log)

	handlers := httpapi.NewHandlers(
		db,
		poolClient,
		stateManager,
		oauthHandler,
		cacheManager,
		clockwork.NewRealClock(),
		log,
		cfg.Security.SessionExpiryHours,
	)

	// Live leaderboard feed
	var hub *websocket.Hub
	if cfg.WebSocket.Enabled {
		hub = websocket.NewHub(log, cfg.WebSocket.MaxClientsPerUser, true)
		handlers.SetWebSocketHub(hub)

		poller := websocket.NewPoller(db, poolClient, hub, log,
			time.Duration(cfg.WebSocket.PollIntervalSeconds)*time.Second)
		go poller.Run(ctx)
	}

	httpServer := httpapi.NewServer(handlers, cfg.Server.HTTPPort, log)

	// Start HTTP server
	httpErrChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(); err != nil {
			httpErrChan <- err
		}
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-httpErrChan:
		log.Fatal("HTTP server error", zap.Error(err))
	case sig := <-sigChan:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	// Graceful shutdown
	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server gracefully", zap.Error(err))
	}

	if hub != nil {
		hub.Close()
	}

	log.Info("server shut down successfully")
}

// runMigrations runs database migrations using golang-migrate library
func runMigrations(db *database.DB, log *zap.Logger) error {
	log.Info("running database migrations")

	// Path to migrations directory (relative to binary execution location)
	migrationsPath := "internal/database/migrations"

	// Run migrations using the migrate library
	if err := db.RunMigrations(migrationsPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully")
	return nil
}
