package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/goassist-bot/goassist/assistbot"
	"github.com/goassist-bot/goassist/assistbot/botmgr"
	"github.com/goassist-bot/goassist/assistbot/database"
	"github.com/goassist-bot/goassist/assistbot/logger"
	"github.com/goassist-bot/goassist/backend/handlers"
	"github.com/goassist-bot/goassist/backend/middleware"
	"github.com/goassist-bot/goassist/backend/services"

	assistai "github.com/goassist-bot/goassist/assistbot/ai"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	cfg, err := assistbot.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	customHandler := logger.NewHandler("GoAssist", cfg.Log.Level)
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting GoAssist",
		slog.String("type", "sys"),
		slog.String("version", version),
		slog.String("commit", commit))

	if missing := cfg.Validate(); len(missing) > 0 {
		for _, field := range missing {
			slog.Error("Missing required configuration", slog.String("field", field))
		}
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, db, err := openStorage(ctx, cfg)
	cancel()
	if err != nil {
		slog.Error("Failed to open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if db != nil {
			db.Close()
			return
		}
		store.Close()
	}()

	dispatcher := botmgr.NewDispatcher(store, assistai.StaticGenerator{})
	connector := botmgr.NewGatewayConnector(cfg.Bot.Token, dispatcher)
	manager := botmgr.NewManager(store, connector)

	// Persisted active flags are stale after a restart.
	if err := manager.ReconcileStartup(context.Background()); err != nil {
		slog.Error("Failed to reconcile bot state", slog.Any("error", err))
		os.Exit(1)
	}

	sessionService, err := services.NewSessionService(cfg.Web.SessionSecret, cfg.Web.Environment)
	if err != nil {
		slog.Error("Failed to create session service", slog.Any("error", err))
		os.Exit(1)
	}

	webApp := &handlers.WebApp{
		Config:         cfg,
		Store:          store,
		Manager:        manager,
		OAuthService:   services.NewOAuthService(cfg.Web.OAuth, store),
		SessionService: sessionService,
		Version:        version,
		StartedAt:      time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:      "GoAssist",
		ServerHeader: "GoAssist",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	corsOrigins := "http://localhost:3000,http://localhost:5000"
	if cfg.Web.FrontendURL != "" {
		corsOrigins = cfg.Web.FrontendURL
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With,Cookie",
		AllowCredentials: true,
	}))
	app.Use(middleware.LoggingMiddleware())

	handlers.SetupRoutes(app, webApp)

	address := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(shutdownCtx)

	g.Go(func() error {
		slog.Info("Starting web server",
			slog.String("type", "http"),
			slog.String("address", address))
		return app.Listen(address)
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down", slog.String("type", "sys"))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		manager.StopAll(ctx)
		return app.ShutdownWithContext(ctx)
	})

	if err := g.Wait(); err != nil && shutdownCtx.Err() == nil {
		slog.Error("Server error", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Shutdown complete", slog.String("type", "sys"))
}

// openStorage picks the backend from config: process-local memory or a
// bun-backed database.
func openStorage(ctx context.Context, cfg *assistbot.Config) (database.Storage, *database.DB, error) {
	if cfg.DB.Backend == "memory" {
		slog.Info("Using in-memory storage", slog.String("type", "db"))
		return database.NewMemoryStorage(), nil, nil
	}

	db, err := database.New(ctx, database.Config{
		Backend:  cfg.DB.Backend,
		Path:     cfg.DB.Path,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := db.InitializeSchema(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database.NewBunStorage(db.BunDB()), db, nil
}
