package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/FIRSTinMI/fim-admin-api/internal/app"
	"github.com/FIRSTinMI/fim-admin-api/internal/avcart"
	"github.com/FIRSTinMI/fim-admin-api/internal/config"
	"github.com/FIRSTinMI/fim-admin-api/internal/database"
	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	"github.com/FIRSTinMI/fim-admin-api/internal/logging"
	"github.com/FIRSTinMI/fim-admin-api/internal/metrics"
	"github.com/FIRSTinMI/fim-admin-api/internal/provision"
	"github.com/FIRSTinMI/fim-admin-api/internal/server"
	"github.com/FIRSTinMI/fim-admin-api/internal/twitch"
	"github.com/FIRSTinMI/fim-admin-api/internal/version"
	"github.com/FIRSTinMI/fim-admin-api/internal/youtube"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *database.DB {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

func runGracefulShutdown(srv *server.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	build := version.Get()
	metrics.BuildInfo.WithLabelValues(build.Version, build.Commit, build.BuildTime, build.GoVersion).Set(1)

	db := setupDB(cfg)
	defer func() { _ = db.Close() }()

	// Construct repositories
	eventRepo := database.NewEventRepo(db)
	streamRepo := database.NewStreamRepo(db)
	credentialRepo := database.NewCredentialRepo(db)
	equipmentRepo := database.NewEquipmentRepo(db)

	// Platform clients own their token refresh; both read and write the
	// credential store.
	youtubeClient := youtube.NewClient(credentialRepo, cfg.YoutubeClientID, cfg.YoutubeClientSecret)
	twitchClient, err := twitch.NewClient(credentialRepo, cfg.TwitchClientID, cfg.TwitchClientSecret)
	if err != nil {
		slog.Error("Failed to create Twitch client", "error", err)
		os.Exit(1)
	}

	clients := map[domain.Platform]domain.PlatformClient{
		domain.PlatformYoutube: youtubeClient,
		domain.PlatformTwitch:  twitchClient,
	}
	connectors := map[domain.Platform]domain.OAuthConnector{
		domain.PlatformYoutube: youtube.NewOAuth(cfg.YoutubeClientID, cfg.YoutubeClientSecret),
		domain.PlatformTwitch:  twitch.NewOAuth(cfg.TwitchClientID, cfg.TwitchClientSecret),
	}

	provisioner := provision.NewProvisioner(eventRepo, streamRepo, credentialRepo, youtubeClient, twitchClient)

	cartGateway := avcart.NewGateway(cfg.CartGatewayURL, cfg.CartGatewayToken)
	cartController := avcart.NewController(equipmentRepo, cartGateway)

	appSvc := app.NewService(streamRepo, credentialRepo, provisioner, cartController, clients, connectors, cfg.StatusCacheTTL, clock)

	srv := server.NewServer(cfg, appSvc, server.TokenRoleChecker{}, db)

	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
