package app

import (
	"context"
	"errors"
	"fmt"

	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-boutique/internal/audit"
	"github.com/noah-isme/backend-boutique/internal/auth"
	"github.com/noah-isme/backend-boutique/internal/cart"
	"github.com/noah-isme/backend-boutique/internal/catalog"
	"github.com/noah-isme/backend-boutique/internal/checkout"
	"github.com/noah-isme/backend-boutique/internal/common"
	"github.com/noah-isme/backend-boutique/internal/config"
	"github.com/noah-isme/backend-boutique/internal/lock"
	"github.com/noah-isme/backend-boutique/internal/obs"
	"github.com/noah-isme/backend-boutique/internal/order"
	"github.com/noah-isme/backend-boutique/internal/pricing"
	"github.com/noah-isme/backend-boutique/internal/ratelimit"
)

// Dependencies holds the clients and domain services shared by one process.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Tasks     *asynq.Client
	Validator *validator.Validate
	Metrics   *obs.DomainMetrics

	Catalog  *catalog.Service
	Carts    *cart.Service
	Checkout *checkout.Service
	Auth     *auth.Service
	Orders   order.Store
	Audit    *audit.Service
}

// New connects Postgres and Redis and builds every domain service.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*Dependencies, error) {
	pool, err := OpenPostgres(ctx, cfg.DatabaseURL, "boutique-api")
	if err != nil {
		return nil, err
	}
	rdb, err := OpenRedis(ctx, cfg.RedisURL, cfg.Obs.MetricsEnabled)
	if err != nil {
		pool.Close()
		return nil, err
	}
	taskOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("parse task queue redis url: %w", err)
	}

	d := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		DB:        pool,
		Redis:     rdb,
		Tasks:     asynq.NewClient(taskOpt),
		Validator: common.NewValidator(),
		Metrics:   obs.NewDomainMetrics(cfg.Obs.MetricsNamespace, reg),
	}
	if err := d.buildServices(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Dependencies) buildServices() error {
	cfg := d.Config
	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Store:        catalog.NewPGStore(d.DB),
		Cache:        catalog.NewCache(d.Redis, cfg.CatalogCacheTTL),
		Validator:    d.Validator,
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		return fmt.Errorf("initialise catalog service: %w", err)
	}
	d.Catalog = catalogSvc

	d.Carts = &cart.Service{
		Store:    &cart.Store{R: d.Redis, TTL: cfg.CartTTL},
		Products: catalogSvc,
		Locker:   lock.Locker{R: d.Redis, RetryBackoff: cfg.LockRetryBackoff, MaxWait: cfg.LockTTL},
		LockTTL:  cfg.LockTTL,
		Engine:   pricing.Default(),
		Metrics:  d.Metrics,
	}

	d.Checkout = &checkout.Service{
		Carts:          d.Carts,
		Cities:         catalogSvc,
		Tasks:          d.Tasks,
		Validator:      d.Validator,
		Metrics:        d.Metrics,
		WhatsAppNumber: cfg.WhatsAppNumber,
		FreeDelivery:   cfg.CheckoutFreeDelivery,
	}

	authSvc, err := auth.NewService(auth.Config{
		Store:    auth.NewPGStore(d.DB),
		Secret:   cfg.JWTSecret,
		TokenTTL: cfg.AccessTokenTTL,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	if err != nil {
		return fmt.Errorf("initialise auth service: %w", err)
	}
	d.Auth = authSvc
	d.Orders = order.NewPGStore(d.DB)
	d.Audit = &audit.Service{
		Store:        audit.NewPGStore(d.DB),
		Enabled:      cfg.AuditEnabled,
		SamplingRate: cfg.AuditSamplingRate,
	}
	return nil
}

// Limiter builds a Redis-backed rate limiter for scope with a formatted rate.
func (d *Dependencies) Limiter(scope, rate string) (*limiter.Limiter, error) {
	return ratelimit.New(d.Redis, "ratelimit:"+scope, rate)
}

// Close releases every client. Safe to call on a partially built value.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.Tasks != nil {
		if err := d.Tasks.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close task client")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

// OpenPostgres connects a traced pgx pool and verifies it answers.
func OpenPostgres(ctx context.Context, url, applicationName string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, errors.New("database url is required")
	}
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenRedis connects an instrumented Redis client and verifies it answers.
func OpenRedis(ctx context.Context, url string, withMetrics bool) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("instrument redis tracing: %w", err)
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("instrument redis metrics: %w", err)
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
