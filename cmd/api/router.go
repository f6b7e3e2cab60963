package main

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/backend-boutique/internal/app"
	"github.com/noah-isme/backend-boutique/internal/audit"
	"github.com/noah-isme/backend-boutique/internal/auth"
	"github.com/noah-isme/backend-boutique/internal/cart"
	"github.com/noah-isme/backend-boutique/internal/catalog"
	"github.com/noah-isme/backend-boutique/internal/checkout"
	"github.com/noah-isme/backend-boutique/internal/common"
	"github.com/noah-isme/backend-boutique/internal/config"
	"github.com/noah-isme/backend-boutique/internal/health"
	"github.com/noah-isme/backend-boutique/internal/obs"
	"github.com/noah-isme/backend-boutique/internal/order"
	"github.com/noah-isme/backend-boutique/internal/ratelimit"
	"github.com/noah-isme/backend-boutique/internal/security"
)

func newRouter(deps *app.Dependencies, tracingEnabled bool) (http.Handler, error) {
	cfg := deps.Config
	logger := deps.Logger

	loginLimiter, err := deps.Limiter("login", cfg.RateLimitLogin)
	if err != nil {
		return nil, err
	}
	checkoutLimiter, err := deps.Limiter("checkout", cfg.RateLimitCheckout)
	if err != nil {
		return nil, err
	}
	onLimiterError := func(err error) {
		logger.Warn().Err(err).Msg("rate limiter unavailable")
	}
	loginLimit := ratelimit.Handler{Limiter: loginLimiter, Key: ratelimit.ByClientIP("login"), OnError: onLimiterError}
	checkoutLimit := ratelimit.Handler{Limiter: checkoutLimiter, Key: ratelimit.ByClientIP("checkout"), OnError: onLimiterError}
	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: deps.Catalog})
	catalogAdmin := catalog.NewAdminHandler(deps.Catalog)
	cartHandler := &cart.Handler{Svc: deps.Carts}
	checkoutHandler := &checkout.Handler{Svc: deps.Checkout}
	authHandler := &auth.Handler{Service: deps.Auth}
	authMiddleware := auth.Middleware{Service: deps.Auth}
	orderAdmin := &order.AdminHandler{Store: deps.Orders, DefaultLimit: cfg.CatalogDefaultLimit, MaxLimit: cfg.CatalogMaxLimit}
	auditHandler := audit.Handler{Store: deps.Audit.Store}
	auditRecorder := audit.HTTPRecorder{
		Service: deps.Audit,
		OnError: func(err error) { logger.Warn().Err(err).Msg("audit record failed") },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.SpanRouteMiddleware)
	}
	if cfg.Obs.MetricsEnabled {
		httpMetrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", common.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Total-Count", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(security.Headers{
		Enable:          cfg.SecurityHeadersEnabled,
		EnableHSTS:      cfg.IsProduction(),
		HSTSMaxAge:      31536000,
		NoStorePrefixes: []string{"/api/v1/admin", "/api/v1/carts", "/api/v1/checkout"},
	}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.Obs.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.Obs.PprofUser, cfg.Obs.PprofPass))
	}

	healthHandler := health.Handler{Probes: []health.Probe{
		health.PostgresProbe(deps.DB, cfg.Obs.ReadyDBTimeout),
		health.RedisProbe(deps.Redis, cfg.Obs.ReadyRedisTimeout),
	}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		catalogHandler.Routes(v)

		v.Route("/carts", func(c chi.Router) {
			c.Use(idem.Middleware)
			cartHandler.Routes(c)
		})
		v.Post("/pricing/quote", cartHandler.Quote)

		v.Route("/checkout", func(c chi.Router) {
			c.Use(checkoutLimit.Middleware, idem.Middleware)
			checkoutHandler.Routes(c)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.With(loginLimit.Middleware).Post("/auth/login", authHandler.Login)
			admin.Group(func(protected chi.Router) {
				protected.Use(authMiddleware.RequireAdmin)
				protected.Use(auditRecorder.Middleware(audit.HTTPConfig{ResourceIDParam: "id", WritesOnly: true}))
				protected.Get("/auth/me", authHandler.Me)
				catalogAdmin.Routes(protected)
				protected.Route("/orders", orderAdmin.Routes)
				protected.Get("/audit-logs", auditHandler.List)
			})
		})
	})

	return obs.ServerHandler(r, "boutique-api"), nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
