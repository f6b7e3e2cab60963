package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost/boutique",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "test-secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	env := baseEnv()
	for _, key := range []string{"CART_TTL", "ACCESS_TOKEN_TTL", "WHATSAPP_NUMBER", "CHECKOUT_FREE_DELIVERY", "RATE_LIMIT_LOGIN", "PORT"} {
		env[key] = ""
	}

	cfg, err := LoadForTests(env)
	require.NoError(t, err)

	require.Equal(t, 168*time.Hour, cfg.CartTTL)
	require.Equal(t, 168*time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, "212643830086", cfg.WhatsAppNumber)
	require.True(t, cfg.CheckoutFreeDelivery)
	require.Equal(t, "5-M", cfg.RateLimitLogin)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["CART_TTL"] = "2h"
	env["CHECKOUT_FREE_DELIVERY"] = "false"
	env["CORS_ALLOWED_ORIGINS"] = "https://shop.example, https://admin.example ,"
	env["CATALOG_DEFAULT_LIMIT"] = "50"
	env["CATALOG_MAX_LIMIT"] = "10"
	env["PORT"] = ":9090"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)

	require.Equal(t, 2*time.Hour, cfg.CartTTL)
	require.False(t, cfg.CheckoutFreeDelivery)
	require.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 50, cfg.CatalogMaxLimit)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}

func TestLoadRequiresSecrets(t *testing.T) {
	env := baseEnv()
	env["JWT_SECRET"] = ""

	_, err := LoadForTests(env)
	require.EqualError(t, err, "JWT_SECRET is required")
}

func TestParseDurationFallsBack(t *testing.T) {
	require.Equal(t, 5*time.Minute, parseDuration("soon", "5m"))
	require.Equal(t, time.Second, parseDuration(" 1s ", "5m"))
}
