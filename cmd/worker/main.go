package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pasar/internal/catalog"
	"github.com/noah-isme/backend-pasar/internal/config"
	"github.com/noah-isme/backend-pasar/internal/obs"
	"github.com/noah-isme/backend-pasar/internal/store"
	"github.com/noah-isme/backend-pasar/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	redisOpts, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	srv := asynq.NewServer(redisOpts, asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{"default": 1},
		Logger:      asynqLogger{logger},
	})

	// Sold increments go through the catalog service so the cached product is
	// dropped together with the counter update.
	catalogSvc := &catalog.Service{
		Store:  &store.CatalogStore{Pool: pool},
		Cache:  catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	}

	handlers := &tasks.Handlers{
		Sold:   catalogSvc,
		Logger: logger,
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down worker")
		srv.Shutdown()
	}()

	logger.Info().Msg("worker starting")
	if err := srv.Run(handlers.Mux()); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pasar-worker"

	pool, err := pgxpool.NewWithConfig(initCtx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(initCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(initCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

// asynqLogger adapts zerolog to asynq's logger interface.
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...any) { a.l.Debug().Msgf("%v", args) }
func (a asynqLogger) Info(args ...any)  { a.l.Info().Msgf("%v", args) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn().Msgf("%v", args) }
func (a asynqLogger) Error(args ...any) { a.l.Error().Msgf("%v", args) }
func (a asynqLogger) Fatal(args ...any) { a.l.Fatal().Msgf("%v", args) }

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
