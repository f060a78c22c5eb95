package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/gerai-labs/backend-gerai/internal/auth"
	"github.com/gerai-labs/backend-gerai/internal/cart"
	"github.com/gerai-labs/backend-gerai/internal/catalog"
	"github.com/gerai-labs/backend-gerai/internal/config"
	"github.com/gerai-labs/backend-gerai/internal/health"
	"github.com/gerai-labs/backend-gerai/internal/notify"
	"github.com/gerai-labs/backend-gerai/internal/obs"
	"github.com/gerai-labs/backend-gerai/internal/order"
	"github.com/gerai-labs/backend-gerai/internal/partition"
	"github.com/gerai-labs/backend-gerai/internal/ratelimit"
	"github.com/gerai-labs/backend-gerai/internal/security"
	"github.com/gerai-labs/backend-gerai/internal/store"
	"github.com/gerai-labs/backend-gerai/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "gerai")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "gerai-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: 1.0,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
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

	mongoClient, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.MongoURL).
		SetAppName("gerai-api"))
	if err != nil {
		logger.Fatal().Err(err).Msg("connect mongo")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("disconnect mongo")
		}
	}()
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		logger.Fatal().Err(err).Msg("ping mongo")
	}

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
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	registry := partition.NewRegistry(mongoClient, cfg.MongoDBPrefix, logger)
	if cfg.DefaultTenant != "" {
		if err := registerTenant(registry, cfg.DefaultTenant); err != nil {
			logger.Fatal().Err(err).Str("tenant_id", cfg.DefaultTenant).Msg("register default tenant")
		}
		if err := registry.EnsureIndexes(ctx); err != nil {
			logger.Error().Err(err).Msg("ensure indexes")
		}
	}

	productStore := store.Products{Registry: registry}
	cartStore := store.Carts{Registry: registry}
	orderStore := store.Orders{Registry: registry}

	catalogSvc := &catalog.Service{
		Store: productStore,
		Cache: catalog.NewCache(redisClient, cfg.ProductCacheTTL),
	}
	cartSvc := &cart.Service{Store: cartStore, Products: catalogSvc}
	orderSvc := &order.Service{
		Store:        orderStore,
		DefaultLimit: cfg.OrderDefaultLimit,
		MaxLimit:     cfg.OrderMaxLimit,
	}

	authSvc := &auth.Service{
		Secret: []byte(cfg.JWTSecret),
		Issuer: "gerai-api",
	}
	authMiddleware := auth.Middleware{Service: authSvc}

	resolver := tenant.NewResolver(cfg.TenantHeader, cfg.TenantRootDomain, cfg.DefaultTenant)

	var sender *notify.Sender
	if cfg.WebhookURL != "" {
		sender = &notify.Sender{
			URL:    cfg.WebhookURL,
			Secret: cfg.WebhookSecret,
			Client: notify.HTTPClient(cfg.WebhookTimeout),
			Logger: logger,
		}
	}

	validate := validator.New()
	cartHandler := &cart.Handler{
		Svc:          cartSvc,
		Validate:     validate,
		DefaultLimit: cfg.CartDefaultLimit,
		MaxLimit:     cfg.CartMaxLimit,
	}
	orderHandler := &order.Handler{Svc: orderSvc}
	orderAdmin := &order.AdminHandler{Svc: orderSvc}
	if sender != nil {
		orderAdmin.Notifier = sender
	}

	limiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "gerai:rl:"},
		Config: ratelimit.Config{
			Key:    ratelimit.TenantClientKey,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limit check failed")
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", cfg.TenantHeader},
		ExposedHeaders:   []string{"Link", "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker: health.Probes{Mongo: mongoClient, Redis: redisClient},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(resolver.Middleware)
		v.Use(limiter.Middleware)

		v.Group(func(g chi.Router) {
			g.Use(authMiddleware.RequireAuth)
			g.Post("/cart/toggle", cartHandler.Toggle)
			g.Get("/cart", cartHandler.List)
			g.Delete("/cart/items/{productId}", cartHandler.RemoveItem)
			g.Get("/orders", orderHandler.List)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAuth)
			admin.Get("/orders", orderAdmin.List)
			admin.Patch("/orders/{id}/status", orderAdmin.PatchStatus)
			admin.Delete("/orders/{id}", orderAdmin.Delete)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown http server")
	}
}

// registerTenant warms the partition registry so index creation covers every
// known collection before the server accepts traffic.
func registerTenant(registry *partition.Registry, tenantID string) error {
	for _, d := range []partition.Descriptor{store.CartsDescriptor(), store.OrdersDescriptor(), store.ProductsDescriptor()} {
		if _, err := registry.Accessor(tenantID, d.Collection, d); err != nil {
			return err
		}
	}
	return nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}
