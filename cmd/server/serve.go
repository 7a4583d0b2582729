package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/database"
	"github.com/iliyamo/task-tracker/internal/handler"
	"github.com/iliyamo/task-tracker/internal/logutil"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/router"
	"github.com/iliyamo/task-tracker/internal/service"
	"github.com/iliyamo/task-tracker/internal/utils"
)

func serveCmd() *cli.Command {
	skipMigrate := false
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "skip-migrate",
				Usage:       "Do not apply pending migrations on startup",
				EnvVars:     []string{"SKIP_MIGRATE"},
				Destination: &skipMigrate,
			},
		},
		Action: func(ctx *cli.Context) error {
			return runServe(ctx.Context, skipMigrate)
		},
	}
}

// runServe loads the configuration and runs the API until ctx is done.
func runServe(ctx context.Context, skipMigrate bool) error {
	cfg := config.Load()
	logger := logutil.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return serve(ctx, cfg, logger, skipMigrate)
}

// buildServer wires repositories, services and handlers over db and rdb.
// A nil rdb disables rate limiting and caching.
func buildServer(cfg config.Config, logger zerolog.Logger, db *sql.DB, rdb *redis.Client) *echo.Echo {
	var events service.Publisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = service.AsyncPublisher{Next: service.NewAMQPPublisher(cfg.AMQPURL)}
	}

	users := repository.NewUserRepo(db)
	tasks := repository.NewTaskRepo(db)
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	auth := service.NewAuthService(users, tokens, cfg.BcryptCost, events)

	deps := router.Deps{
		Auth:      handler.NewAuthHandler(auth, users),
		Tasks:     handler.NewTaskHandler(tasks, events),
		Tokens:    tokens,
		DB:        db,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
	}
	if cfg.VerifyUserExists {
		deps.Users = users
	}
	return router.New(logger, deps)
}

func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger, skipMigrate bool) error {
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()

	if !skipMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Warn().Msg("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	e := buildServer(cfg, logger, db, rdb)

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")

	errc := make(chan error, 1)
	go func() { errc <- e.Start(addr) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
