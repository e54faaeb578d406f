package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	Currency string
	TaxBps   int

	// Per-item surcharge by product kind, in minor units.
	GrocerySurcharge  int64
	PreparedSurcharge int64

	// Estimated delivery windows by product kind.
	GroceryDeliveryWindow  time.Duration
	PreparedDeliveryWindow time.Duration

	CouponPerUserLimitDefault int

	StripeSecretKey     string
	StripeWebhookSecret string

	CatalogCacheTTL  time.Duration
	WebhookReplayTTL time.Duration

	RateLimit      string
	BodyLimitBytes int64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		Currency: valueOrDefault(k.String("CURRENCY"), "INR"),
		TaxBps:   parseInt(k.String("TAX_BPS"), 1800),

		GrocerySurcharge:  parseInt64(k.String("GROCERY_SURCHARGE"), 0),
		PreparedSurcharge: parseInt64(k.String("PREPARED_SURCHARGE"), 3000),

		GroceryDeliveryWindow:  parseDuration(k.String("GROCERY_DELIVERY_WINDOW"), "72h"),
		PreparedDeliveryWindow: parseDuration(k.String("PREPARED_DELIVERY_WINDOW"), "1h"),

		CouponPerUserLimitDefault: parseInt(k.String("COUPON_PER_USER_LIMIT"), 1),

		StripeSecretKey:     k.String("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: k.String("STRIPE_WEBHOOK_SECRET"),

		CatalogCacheTTL:  parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		WebhookReplayTTL: parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "24h"),

		RateLimit:      valueOrDefault(k.String("RATE_LIMIT"), "300-M"),
		BodyLimitBytes: parseInt64(k.String("BODY_LIMIT_BYTES"), 1<<20),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
