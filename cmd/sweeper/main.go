package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hushmap/hushmap/internal/docstore"
	"github.com/hushmap/hushmap/internal/event"
	"github.com/hushmap/hushmap/internal/media"
	"github.com/hushmap/hushmap/internal/story"
	"github.com/hushmap/hushmap/pkg/config"
	"github.com/hushmap/hushmap/pkg/logging"
	"github.com/hushmap/hushmap/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	logger := logging.GetLogger()
	logger.Info("Starting hushmap story sweeper")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	if cfg.Mongo.URI == "" {
		logger.Fatal("mongo_uri is required; the API server sweeps its own in-memory stories")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := docstore.Connect(ctx, &cfg.Mongo)
	if err != nil {
		logger.Fatal("Failed to connect to document store", zap.Error(err))
	}
	defer client.Close()

	events := event.NewPublisher(&cfg.Events)
	defer events.Close()

	svc := story.NewService(docstore.NewStoryStore(client.Database()), media.New(&cfg.Media), events,
		story.Options{ScanLimit: cfg.Story.ScanLimit})

	logger.Info("Sweeper initialized", zap.Duration("interval", cfg.Story.SweepInterval))
	if err := story.NewSweeper(svc, cfg.Story.SweepInterval).Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Sweeper stopped", zap.Error(err))
	}

	logger.Info("Sweeper exited")
}
