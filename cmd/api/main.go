package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-pasar/internal/cart"
	"github.com/noah-isme/backend-pasar/internal/catalog"
	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/config"
	"github.com/noah-isme/backend-pasar/internal/events"
	"github.com/noah-isme/backend-pasar/internal/health"
	"github.com/noah-isme/backend-pasar/internal/obs"
	"github.com/noah-isme/backend-pasar/internal/order"
	"github.com/noah-isme/backend-pasar/internal/payment"
	"github.com/noah-isme/backend-pasar/internal/pricing"
	"github.com/noah-isme/backend-pasar/internal/security"
	"github.com/noah-isme/backend-pasar/internal/store"

	validator "github.com/go-playground/validator/v10"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pasar")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "pasar-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger, metricsEnabled)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	redisOpts, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task client")
	}
	taskClient := asynq.NewClient(redisOpts)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	validate := validator.New()

	cartStore := &store.CartStore{Pool: pool}
	orderStore := &store.OrderStore{Pool: pool}
	catalogStore := &store.CatalogStore{Pool: pool}
	couponStore := &store.CouponStore{Pool: pool, DefaultPerUserLimit: int32(cfg.CouponPerUserLimitDefault)}
	eventStore := &store.EventStore{Pool: pool}

	catalogSvc := &catalog.Service{
		Store:  catalogStore,
		Cache:  catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}

	stripeProvider, err := payment.NewStripeProvider(payment.StripeConfig{
		APIKey:        cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise stripe provider")
	}
	providers := map[string]payment.Provider{"stripe": stripeProvider}

	bus := &events.Bus{
		Store: eventStore,
		Notifiers: []events.Notifier{
			payment.RefundOnReturn{Store: orderStore, Provider: stripeProvider, Logger: logger},
		},
	}

	surcharge := kindSurcharge(cfg)
	cartSvc := &cart.Service{
		Store:     cartStore,
		Products:  catalogSvc,
		Coupons:   couponStore,
		Surcharge: surcharge,
		TaxBps:    cfg.TaxBps,
		Logger:    logger,
	}
	cartHandler := &cart.Handler{Svc: cartSvc, Validate: validate}

	orderFactory := &order.Factory{
		Store:   orderStore,
		Carts:   cartSvc,
		Events:  bus,
		Windows: order.DefaultWindows(cfg.GroceryDeliveryWindow, cfg.PreparedDeliveryWindow),
		Logger:  logger,
	}
	orderSvc := &order.Service{Store: orderStore, Events: bus, Logger: logger}
	orderHandler := &order.Handler{Factory: orderFactory, Svc: orderSvc, Validate: validate}

	reconciler := &payment.Reconciler{
		Store:  orderStore,
		Events: bus,
		Tasks:  taskClient,
		Logger: logger,
	}
	paymentHandler := &payment.Handler{
		Orders:     orderSvc,
		Store:      orderStore,
		Provider:   stripeProvider,
		Reconciler: reconciler,
		Currency:   cfg.Currency,
		Logger:     logger,
	}
	webhookHandler := &payment.Webhook{
		Providers:  providers,
		Reconciler: reconciler,
		Replay:     redisClient,
		ReplayTTL:  cfg.WebhookReplayTTL,
		Logger:     logger,
	}

	rateLimitMiddleware := mustInitRateLimiter(cfg, redisClient, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if rateLimitMiddleware != nil {
		r.Use(rateLimitMiddleware)
	}

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Checker: health.Probes{DB: pool, Redis: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(common.TrustedUserMiddleware)

		catalogHandler.Routes(v)
		v.Route("/cart", func(c chi.Router) {
			c.Use(common.RequireUser)
			cartHandler.Routes(c)
		})
		v.Route("/orders", func(o chi.Router) {
			o.Use(common.RequireUser)
			orderHandler.Routes(o)
			o.Route("/{orderID}/payment", func(p chi.Router) {
				p.Mount("/", paymentHandler.Routes())
			})
		})
		v.Mount("/webhooks/payments", webhookHandler.Routes())
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pasar-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metricsEnabled bool) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func mustInitRateLimiter(cfg *config.Config, redisClient *redis.Client, logger zerolog.Logger) func(http.Handler) http.Handler {
	if cfg.RateLimit == "" {
		return nil
	}
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Fatal().Err(err).Str("rate", cfg.RateLimit).Msg("parse rate limit")
	}
	lstore, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "rl"})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	mw := limiterstdlib.NewMiddleware(limiter.New(lstore, rate))
	return mw.Handler
}

func kindSurcharge(cfg *config.Config) pricing.Surcharger {
	return func(category string, qty int) pricing.Money {
		switch category {
		case catalog.KindGrocery:
			return cfg.GrocerySurcharge * pricing.Money(qty)
		case catalog.KindPrepared:
			return cfg.PreparedSurcharge * pricing.Money(qty)
		default:
			return 0
		}
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
