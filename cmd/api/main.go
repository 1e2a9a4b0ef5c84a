package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/designduel/grading-pipeline/internal/api/handlers"
	"github.com/designduel/grading-pipeline/internal/artifacts"
	cacheredis "github.com/designduel/grading-pipeline/internal/cache/redis"
	"github.com/designduel/grading-pipeline/internal/catalog"
	"github.com/designduel/grading-pipeline/internal/events"
	"github.com/designduel/grading-pipeline/internal/llm"
	"github.com/designduel/grading-pipeline/internal/metrics"
	"github.com/designduel/grading-pipeline/internal/pipeline"
	"github.com/designduel/grading-pipeline/internal/storage/sqlite"
	"github.com/designduel/grading-pipeline/internal/transcription"
	"github.com/designduel/grading-pipeline/pkg/config"
	appLogger "github.com/designduel/grading-pipeline/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting grading pipeline API server")

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	ctx := context.Background()
	if err := sqliteClient.Migrate(ctx); err != nil {
		appLogger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	metrics.Init()

	artifactStore, err := artifacts.NewStore(cfg.Storage.UploadDir, cfg.Storage.MaxUploadSizeMiB)
	if err != nil {
		appLogger.Fatal("Failed to create artifact store", zap.Error(err))
	}

	problemCatalog := catalog.NewCatalog(sqliteClient)

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	transcriber := transcription.NewTranscriber(llmClient, time.Duration(cfg.Transcribe.TimeoutSeconds)*time.Second)

	eventLog := events.NewLog(sqliteClient)
	poller := events.NewPoller(
		eventLog,
		time.Duration(cfg.Stream.PollIntervalSeconds*float64(time.Second)),
		time.Duration(cfg.Stream.MaxDurationSeconds)*time.Second,
	)

	var cache *cacheredis.Client
	if cfg.Redis.Enabled {
		cache, err = cacheredis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis cache unavailable, continuing without it", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	pool := pipeline.NewPool(cfg.Pipeline.WorkerPoolSize)
	driver := pipeline.NewDriver(
		sqliteClient,
		eventLog,
		llmClient,
		transcriber,
		cache,
		pool,
		time.Duration(cfg.Pipeline.TimeoutSeconds)*time.Second,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.FrontendOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	submissionHandler := handlers.NewSubmissionHandler(
		sqliteClient,
		problemCatalog,
		artifactStore,
		driver,
		eventLog,
		poller,
		cache,
		cfg.Storage.MaxUploadSizeMiB,
	)

	progressSocket := handlers.NewProgressSocketHandler(poller)

	api := app.Group("/api/v1")
	api.Post("/submissions", submissionHandler.Intake)
	api.Get("/submissions/:id", submissionHandler.Result)
	api.Get("/submissions/:id/stream", submissionHandler.Stream)

	api.Use("/submissions/:id/watch", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/submissions/:id/watch", websocket.New(progressSocket.HandleConnection))

	app.Static("/artifacts", cfg.Storage.UploadDir)
	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "time": time.Now().Unix()})
	})
	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready"})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
