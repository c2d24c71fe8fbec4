package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/admute/backend/modules/authapi"
	"github.com/admute/backend/modules/billingapi"
	"github.com/admute/backend/modules/deviceapi"
	"github.com/admute/backend/modules/metricsapi"
	"github.com/admute/backend/pkg/auth"
	"github.com/admute/backend/pkg/billing"
	"github.com/admute/backend/pkg/config"
	"github.com/admute/backend/pkg/device"
	"github.com/admute/backend/pkg/httpserver"
	"github.com/admute/backend/pkg/logger"
	"github.com/admute/backend/pkg/metrics"
	"github.com/admute/backend/pkg/pg"
	"github.com/admute/backend/pkg/redis"
	"github.com/admute/backend/pkg/subscription"
	"github.com/admute/backend/storage/postgres"
)

type appConfig struct {
	Logger logger.Config
	Server httpserver.Config
	PG     pg.Config
	Redis  redis.Config
	Paddle billing.PaddleConfig
	Plans  subscription.PlanConfig

	JWTSecret   string `env:"JWT_SECRET,required"`
	CheckoutURL string `env:"CHECKOUT_SUCCESS_URL,required"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Logger)
	slog.SetDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, postgres.MigrationsFS(), postgres.MigrationsDir); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	storage := postgres.New(pool)

	catalog, err := subscription.NewCatalog(cfg.Plans)
	if err != nil {
		return err
	}

	gateway, err := billing.NewPaddleGateway(cfg.Paddle)
	if err != nil {
		return err
	}

	authSvc := auth.NewService(storage.Users, []byte(cfg.JWTSecret),
		auth.WithLogger(log),
	)

	subSvc, err := subscription.NewService(gateway, storage.Subscriptions,
		subscription.NewRedisPendingCheckoutStore(redisClient), catalog,
		subscription.WithSuccessURL(cfg.CheckoutURL),
		subscription.WithLogger(log),
	)
	if err != nil {
		return err
	}

	deviceSvc := device.NewService(storage.Devices, authSvc, subSvc,
		device.WithLogger(log),
	)

	metricsSvc := metrics.NewService(storage.Metrics,
		metrics.WithLogger(log),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Mount("/auth", authapi.NewService(authSvc, log).Handle())
	r.Mount("/subscription", billingapi.NewService(subSvc, authSvc, authSvc, billing.PaddleSignatureHeader, log).Handle())
	r.Mount("/devices", deviceapi.NewService(deviceSvc, authSvc, log).Handle())
	r.Mount("/user", metricsapi.NewService(metricsSvc, authSvc, log).Handle())

	return httpserver.New(cfg.Server, log).Run(ctx, r)
}
