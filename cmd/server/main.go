package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hushmap/hushmap/internal/api"
	"github.com/hushmap/hushmap/internal/cache"
	"github.com/hushmap/hushmap/internal/db"
	"github.com/hushmap/hushmap/internal/docstore"
	"github.com/hushmap/hushmap/internal/event"
	"github.com/hushmap/hushmap/internal/feed"
	"github.com/hushmap/hushmap/internal/identity"
	"github.com/hushmap/hushmap/internal/media"
	"github.com/hushmap/hushmap/internal/story"
	"github.com/hushmap/hushmap/internal/validate"
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
	logger.Info("Starting hushmap API server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, database.DB); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
	}
	defer redisCache.Close()

	events := event.NewPublisher(&cfg.Events)
	defer events.Close()

	images := media.New(&cfg.Media)

	var (
		storyStore story.Store
		docs       api.HealthChecker
	)
	if cfg.Mongo.URI != "" {
		client, err := docstore.Connect(ctx, &cfg.Mongo)
		if err != nil {
			logger.Fatal("Failed to connect to document store", zap.Error(err))
		}
		defer client.Close()
		stories := docstore.NewStoryStore(client.Database())
		if err := stories.EnsureIndexes(ctx); err != nil {
			logger.Fatal("Failed to create story indexes", zap.Error(err))
		}
		storyStore, docs = stories, client
	} else {
		logger.Warn("No mongo_uri configured, stories are kept in memory")
		storyStore = story.NewMemoryStore()
	}
	storySvc := story.NewService(storyStore, images, events, story.Options{ScanLimit: cfg.Story.ScanLimit})

	// A memory store is invisible to the standalone sweeper, so sweep in process.
	if cfg.Mongo.URI == "" {
		go func() {
			if err := story.NewSweeper(storySvc, cfg.Story.SweepInterval).Run(ctx); err != nil {
				logger.Error("Story sweeper stopped", zap.Error(err))
			}
		}()
	}

	repo := db.NewRepository(database.DB)
	candidates := feed.NewCachedCandidates(db.NewPostRepository(repo), redisCache, cfg.Feed.CandidateCacheTTL)
	feedSvc := feed.NewService(candidates, db.NewLikeRepository(repo), feed.Options{
		Window:          cfg.Feed.CandidateWindow,
		MaxRadiusMeters: cfg.Feed.MaxRadiusMeters,
	})

	validator, err := validate.New()
	if err != nil {
		logger.Fatal("Failed to compile parameter schemas", zap.Error(err))
	}

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	api.NewRouter(api.Deps{
		DB:                  database,
		Cache:               redisCache,
		Feed:                feedSvc,
		Candidates:          candidates,
		Stories:             storySvc,
		Media:               images,
		Events:              events,
		Auth:                identity.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Validator:           validator,
		DocStore:            docs,
		DefaultRadiusMeters: cfg.Feed.DefaultRadiusMeters,
		CandidateWindow:     cfg.Feed.CandidateWindow,
		MaxUploadSize:       cfg.Media.MaxSize,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
	}).SetupRoutes(engine)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
