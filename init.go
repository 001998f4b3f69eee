package main

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/velostore/cdek-bridge/internal/config"
	"github.com/velostore/cdek-bridge/internal/postgres"
	"github.com/velostore/cdek-bridge/internal/repo"
	"github.com/velostore/cdek-bridge/internal/telemetry"
	"github.com/velostore/cdek-bridge/pkg/shipper"
	"github.com/velostore/cdek-bridge/pkg/shipper/cdek"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// App bundles everything the commands share.
type App struct {
	Config       *config.Config
	Logger       *otelzap.Logger
	Metrics      *telemetry.Metrics
	DB           *sqlx.DB
	Registry     *shipper.Registry
	Shipper      *cdek.Client
	APIClient    cdek.APIClient
	PointRepo    *repo.PointRepo
	ShipmentRepo *repo.ShipmentRepo

	tracerShutdown func(context.Context) error
}

func initApp(ctx context.Context) (*App, error) {
	// Local development picks up .env; missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var tracer trace.Tracer
	tracerShutdown := func(context.Context) error { return nil }
	if cfg.OTELEnabled {
		tracer, tracerShutdown, err = telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Attributes()...)
		if err != nil {
			logger.Warn("Failed to initialize tracer", zap.Error(err))
			tracerShutdown = func(context.Context) error { return nil }
		}
	}

	db, err := postgres.New(cfg.PostgresDSN(), postgres.Options{
		MaxOpenConns:    cfg.PostgresMaxOpen,
		MaxIdleConns:    cfg.PostgresMaxIdle,
		ConnMaxLifetime: cfg.PostgresLifetime,
	})
	if err != nil {
		return nil, err
	}

	apiClient, err := buildAPIClient(cfg)
	if err != nil {
		return nil, err
	}

	pointRepo := repo.NewPointRepo(db)
	shipmentRepo := repo.NewShipmentRepo(db, "cdek")

	carrier := cdek.NewWithAPIClient(cdekConfig(cfg), apiClient, logger, tracer).
		WithRecorder(shipmentRepo)

	registry := shipper.NewRegistry()
	if cfg.CDEKEnabled {
		registry.Register(carrier)
	}

	return &App{
		Config:         cfg,
		Logger:         logger,
		Metrics:        telemetry.NewMetrics(),
		DB:             db,
		Registry:       registry,
		Shipper:        carrier,
		APIClient:      apiClient,
		PointRepo:      pointRepo,
		ShipmentRepo:   shipmentRepo,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Close flushes telemetry and releases the database handle.
func (a *App) Close(ctx context.Context) {
	a.Logger.Sync()
	a.tracerShutdown(ctx)
	a.DB.Close()
}

func buildAPIClient(cfg *config.Config) (cdek.APIClient, error) {
	if cfg.CDEKUseMock {
		return cdek.NewMockAPIClient(), nil
	}
	return cdek.NewHTTPAPIClient(cdek.HTTPAPIClientConfig{
		BaseURL:      cfg.CDEKBaseURL,
		ClientID:     cfg.CDEKClientID,
		ClientSecret: cfg.CDEKClientSecret,
		Timeout:      10 * time.Second,
	})
}

func cdekConfig(cfg *config.Config) cdek.Config {
	return cdek.Config{
		BaseURL:               cfg.CDEKBaseURL,
		ClientID:              cfg.CDEKClientID,
		ClientSecret:          cfg.CDEKClientSecret,
		UseMock:               cfg.CDEKUseMock,
		TariffCode:            cfg.CDEKTariffCode,
		OrderType:             shipper.OrderType(cfg.CDEKOrderType),
		AllowCOD:              cfg.CDEKAllowCOD,
		FreeShippingThreshold: cfg.CDEKFreeShipFrom,
		ExtraDays:             cfg.CDEKExtraDays,
		DefaultLengthCM:       cfg.DefaultLengthCM,
		DefaultWidthCM:        cfg.DefaultWidthCM,
		DefaultHeightCM:       cfg.DefaultHeightCM,
		DefaultWeightKG:       cfg.DefaultWeightKG,
		ShipmentPointCode:     cfg.CDEKShipPoint,
	}
}
