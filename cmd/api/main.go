package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/flashback-frames-backend/api/controllers"
	"github.com/angelmondragon/flashback-frames-backend/api/routes"
	"github.com/angelmondragon/flashback-frames-backend/internal/auth"
	"github.com/angelmondragon/flashback-frames-backend/internal/cart"
	"github.com/angelmondragon/flashback-frames-backend/internal/checkout"
	"github.com/angelmondragon/flashback-frames-backend/internal/media"
	"github.com/angelmondragon/flashback-frames-backend/internal/orders"
	"github.com/angelmondragon/flashback-frames-backend/internal/payments/bootstrap"
	products "github.com/angelmondragon/flashback-frames-backend/internal/products"
	"github.com/angelmondragon/flashback-frames-backend/internal/users"
	"github.com/angelmondragon/flashback-frames-backend/pkg/auth/session"
	"github.com/angelmondragon/flashback-frames-backend/pkg/config"
	"github.com/angelmondragon/flashback-frames-backend/pkg/db"
	"github.com/angelmondragon/flashback-frames-backend/pkg/instance"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
	"github.com/angelmondragon/flashback-frames-backend/pkg/metrics"
	"github.com/angelmondragon/flashback-frames-backend/pkg/migrate"
	"github.com/angelmondragon/flashback-frames-backend/pkg/outbox"
	"github.com/angelmondragon/flashback-frames-backend/pkg/redis"
	"github.com/angelmondragon/flashback-frames-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs", err)
		}
	}()

	mediaService, err := media.NewService(gcsClient, cfg.GCS.OrderFolder, cfg.Media.MaxImageBytes(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create media service", err)
		os.Exit(1)
	}

	providers, err := bootstrap.Providers(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to configure payment providers", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(promRegistry)

	sessionManager, err := session.NewManager(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productRepo := products.NewRepository(dbClient.DB())
	productService, err := products.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(redisClient, cfg.Checkout.CartTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:    orderRepo,
		Tx:      dbClient,
		Outbox:  outboxService,
		Images:  mediaService,
		Metrics: checkoutMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:          dbClient,
		Orders:      orderRepo,
		Payments:    orderService,
		Prices:      productRepo,
		Images:      mediaService,
		Providers:   providers,
		Outbox:      outboxService,
		Metrics:     checkoutMetrics,
		Logger:      logg,
		FrontendURL: cfg.URLs.Frontend,
		BackendURL:  cfg.URLs.Backend,
		MaxItems:    cfg.Checkout.MaxItems,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"instance":  instance.GetID(),
		"providers": providers.Names(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Health: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
				"gcs":   gcsClient,
			},
			Sessions:    sessionManager,
			Idempotency: redisClient,
			RateLimit:   redisClient,
			Metrics:     promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
			Auth:        authService,
			Products:    productService,
			Carts:       cartService,
			Orders:      orderService,
			Checkout:    checkoutService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
