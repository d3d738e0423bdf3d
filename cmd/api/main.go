package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/devicestore"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/internal/tracking"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const serviceName = "api"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, cfg, logg, dbClient, redisClient)
	if closeErr := multierr.Append(redisClient.Close(), dbClient.Close()); closeErr != nil {
		logg.Error(context.Background(), "error closing connections", closeErr)
		code = 1
	}
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) int {
	sessionManager, err := session.NewManager(redisClient, cfg.Identity)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		return 1
	}
	if !cfg.Identity.Configured() {
		logg.Warn(ctx, "identity provider is not configured; sign-in will fail")
	}

	deviceStore, err := devicestore.New(redisClient, 0)
	if err != nil {
		logg.Error(ctx, "failed to create device store", err)
		return 1
	}

	storeMetrics := metrics.NewStorefront(prometheus.DefaultRegisterer)

	remoteCarts := cart.NewBreakerStore(
		cart.NewRepository(dbClient.DB(), redisClient, logg),
		cart.BreakerSettings{
			Name:             "remote-cart",
			FailureThreshold: cfg.Cart.BreakerFailures,
			Cooldown:         cfg.Cart.BreakerCooldown,
			OnStateChange: func(from, to string) {
				logg.Warn(logg.WithFields(ctx, map[string]any{"from": from, "to": to}), "cart.breaker_state_changed")
			},
		},
	)

	registry, err := storefront.NewRegistry(storefront.RegistryParams{
		Identity: cfg.Identity,
		Cart:     cfg.Cart,
		Sessions: sessionManager,
		Hub:      identity.NewHub(),
		Profiles: users.NewRepository(dbClient.DB()),
		Remote:   remoteCarts,
		Local:    deviceStore,
		Metrics:  storeMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create device registry", err)
		return 1
	}
	go registry.Run(ctx)

	productCatalog, err := catalog.Default()
	if err != nil {
		logg.Error(ctx, "failed to load product catalog", err)
		registry.Close()
		return 1
	}

	policy, err := checkout.NewPolicy(cfg.Checkout)
	if err != nil {
		logg.Error(ctx, "failed to build checkout policy", err)
		registry.Close()
		return 1
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:         ordersRepo,
		Tx:           dbClient,
		Outbox:       outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Policy:       &policy,
		DeliveryDays: cfg.Checkout.DeliveryDays,
		Metrics:      storeMetrics,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		registry.Close()
		return 1
	}

	carrier := tracking.Chain(tracking.NewStaticCarrier(), tracking.NewOrderCarrier(ordersRepo))

	addr := api.Addr(cfg)
	server := api.NewServer(addr, routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		registry,
		deviceStore,
		productCatalog,
		policy,
		ordersSvc,
		carrier,
	))

	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(logCtx, "starting api server")

	serveErr := api.Serve(ctx, server, logg)
	registry.Close()
	if serveErr != nil {
		logg.Error(logCtx, "api server stopped unexpectedly", serveErr)
		return 1
	}
	logg.Info(logCtx, "api server shut down gracefully")
	return 0
}
