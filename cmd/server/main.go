package main

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

	"sectorwars-server/internal/auth"
	"sectorwars-server/internal/combat"
	"sectorwars-server/internal/drone"
	"sectorwars-server/internal/events"
	"sectorwars-server/internal/middleware"
	"sectorwars-server/internal/movement"
	"sectorwars-server/internal/player"
	"sectorwars-server/internal/random"
	"sectorwars-server/internal/server"
	serverHandlers "sectorwars-server/internal/server/handlers"
	"sectorwars-server/internal/shared/config"
	"sectorwars-server/internal/shared/cookies"
	"sectorwars-server/internal/shared/database"
	"sectorwars-server/internal/shared/logger"
	"sectorwars-server/internal/shared/redis"
	"sectorwars-server/internal/storage"
	"sectorwars-server/internal/storage/memory"
	"sectorwars-server/internal/storage/postgres"
	"sectorwars-server/internal/universe"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.GlobalConfig, appLogger); err != nil {
		appLogger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Starting Sector Wars server",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
	)

	store, dbPing, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("Failed to close redis", "error", err)
		}
	}()

	var publisher events.Publisher = events.NewLogPublisher(logger)
	var redisPing serverHandlers.PingFunc
	if rdb != nil {
		publisher = events.NewRedisPublisher(rdb.Client, cfg.Redis.ChannelPrefix, logger)
		redisPing = rdb.Ping
	}

	rng := random.CryptoFactory()

	services := server.Services{
		Player:   player.NewService(store, cfg.Player, logger),
		Movement: movement.NewService(store, publisher, rng, logger, movement.WithTunnelWarningUses(cfg.Movement.TunnelWarningUses)),
		Combat:   combat.NewService(store, publisher, rng, logger, combat.WithRoundInterval(cfg.Combat.RoundInterval)),
		Drone:    drone.NewService(store, publisher, rng, logger),
		Universe: universe.NewService(store, rng, logger),
	}

	if cfg.Universe.SeedOnStart {
		if _, err := services.Universe.Seed(ctx, cfg.Universe); err != nil {
			return fmt.Errorf("failed to seed galaxy: %w", err)
		}
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration)
	if err != nil {
		return err
	}
	jar := cookies.New(cfg.Auth, cfg.Frontend.URL)
	health := serverHandlers.NewHealthHandler(dbPing, redisPing)
	mux := server.NewRoutes(services, tokens, jar, health).Setup()

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)
	corsMiddleware := middleware.NewCORS(cfg.Frontend)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      corsMiddleware.Middleware(rateLimiter.Middleware(mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ticker := combat.NewTicker(services.Combat, store, cfg.Combat, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ticker.Run(gctx) })
	g.Go(func() error {
		rateLimiter.Cleanup(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server", "timeout", cfg.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openStore returns the configured store, a database ping for health checks
// (nil in memory mode), and a close func.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, serverHandlers.PingFunc, func(), error) {
	if cfg.Storage.Driver == "memory" {
		logger.Warn("Using in-memory storage, state is lost on restart")
		return memory.New(logger), nil, func() {}, nil
	}

	db, err := database.Connect(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}

	if err := db.RunMigrations(ctx, cfg.Database.MigrationsPath); err != nil {
		closeDB()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres.New(db, logger), db.PingContext, closeDB, nil
}
