package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/velostore/cdek-bridge/internal/kafka"
	"github.com/velostore/cdek-bridge/internal/server"
	syncjob "github.com/velostore/cdek-bridge/internal/sync"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cdek-bridge",
	Short:   "CDEK Bridge - parcel delivery integration service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the pickup-point and shipment-status sync loops",
	RunE:  runWorker,
}

var syncPointsCmd = &cobra.Command{
	Use:   "sync-points",
	Short: "Run one pickup-point sync cycle and exit",
	RunE:  runSyncPoints,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(syncPointsCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	app.Logger.Info("Starting CDEK Bridge",
		zap.Int("port", app.Config.Port),
		zap.String("version", app.Config.Version),
		zap.Strings("carriers", app.Registry.Names()),
	)

	srv := server.New(server.Config{
		Port:           app.Config.Port,
		APIToken:       app.Config.APIToken,
		AllowedOrigins: []string{app.Config.CORSHosts},
	}, app.PointRepo, app.APIClient, app.Logger, app.Metrics)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	var publisher syncjob.StatusPublisher
	if app.Config.KafkaEnabled {
		producer := kafka.NewProducer(app.Config.KafkaBrokers, app.Config.KafkaTopic)
		defer producer.Close()
		publisher = producer
	}

	pointsSyncer := syncjob.NewPointsSyncer(syncjob.PointsSyncerConfig{
		Carrier:      app.Shipper.Name(),
		CountryCodes: app.Config.SyncCountries,
		CityCode:     app.Config.SyncCityCode,
		Interval:     app.Config.SyncInterval,
	}, app.APIClient, app.PointRepo, app.Logger, app.Metrics)

	statusSyncer := syncjob.NewStatusSyncer(syncjob.StatusSyncerConfig{
		Carrier:  app.Shipper.Name(),
		Interval: app.Config.StatusSyncInterval,
	}, app.Shipper, app.ShipmentRepo, publisher, app.Logger, app.Metrics)

	app.Logger.Info("Starting sync worker",
		zap.Strings("countries", app.Config.SyncCountries),
		zap.Duration("points_interval", app.Config.SyncInterval),
		zap.Duration("status_interval", app.Config.StatusSyncInterval),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pointsSyncer.Run(ctx)
		return nil
	})
	g.Go(func() error {
		statusSyncer.Run(ctx)
		return nil
	})
	return g.Wait()
}

func runSyncPoints(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	syncer := syncjob.NewPointsSyncer(syncjob.PointsSyncerConfig{
		Carrier:      app.Shipper.Name(),
		CountryCodes: app.Config.SyncCountries,
		CityCode:     app.Config.SyncCityCode,
	}, app.APIClient, app.PointRepo, app.Logger, app.Metrics)

	if err := syncer.SyncOnce(ctx); err != nil {
		return err
	}

	codes, err := app.PointRepo.ActiveCodes(ctx, app.Shipper.Name())
	if err != nil {
		return fmt.Errorf("counting active points: %w", err)
	}
	app.Logger.Info("Pickup point sync finished", zap.Int("active_points", len(codes)))
	return nil
}
