package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clipforge/api/internal/client"
	"github.com/clipforge/api/internal/config"
	"github.com/clipforge/api/internal/handler"
	"github.com/clipforge/api/internal/middleware"
	"github.com/clipforge/api/internal/service"
	"github.com/clipforge/api/internal/store"
	"github.com/clipforge/api/internal/worker"
	ws "github.com/clipforge/api/internal/websocket"
)

// @title          ClipForge API
// @version        1.0
// @description    Backend API for ClipForge — transcript consolidation and video render pipeline.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
// @description    Enter your bearer token in the format **Bearer &lt;token&gt;**
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Warn("redis not available", zap.Error(err))
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub(zapLogger)
	go hub.Run()

	// Initialize external clients
	engineClient := client.NewEngineClient(&cfg.RenderEngine, zapLogger)
	contentGenClient := client.NewContentGenClient(&cfg.ContentGen)

	// Initialize R2 client (optional - continues if not configured)
	var storageClient client.StorageClient
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			zapLogger.Warn("r2 client not initialized", zap.Error(err))
		} else {
			storageClient = r2Client
		}
	} else {
		zapLogger.Info("r2 storage not configured, render outputs stay local")
	}

	// Initialize stores
	jobStore := store.NewRedisJobStore(redisClient, 24*time.Hour)
	transcriptStore := store.NewRedisTranscriptStore(redisClient)

	// Initialize services
	catalog := service.NewTemplateCatalog(engineClient, zapLogger)
	renderService := service.NewRenderService(
		jobStore,
		catalog,
		engineClient,
		storageClient,
		asynqClient,
		hub,
		zapLogger,
		time.Duration(cfg.RenderEngine.Timeout)*time.Second,
	)
	transcriptService := service.NewTranscriptService(
		transcriptStore,
		contentGenClient,
		cfg.Merge.OverlapThreshold,
		zapLogger,
	)

	// Initialize handlers
	transcriptHandler := handler.NewTranscriptHandler(transcriptService, validate)
	templateHandler := handler.NewTemplateHandler(catalog)
	renderHandler := handler.NewRenderHandler(renderService, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    20 * 1024 * 1024, // 20MB, full multi-engine transcripts
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		zapLogger.Info("debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"renderEngine": engineClient.IsConfigured(),
				"contentGen":   contentGenClient.IsConfigured(),
				"r2":           storageClient != nil,
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Transcript routes
	transcripts := api.Group("/transcripts")
	transcripts.Post("/ingest", rateLimiter.IngestLimit(cfg.RateLimit.IngestPerMin), transcriptHandler.Ingest)
	transcripts.Get("/:id", transcriptHandler.Get)
	transcripts.Post("/:id/analysis", transcriptHandler.Analyze)

	// Template routes
	api.Get("/templates", templateHandler.List)

	// Render routes
	render := api.Group("/render")
	render.Post("/start", rateLimiter.RenderLimit(cfg.RateLimit.RenderPerHour), renderHandler.Start)
	render.Get("/status/:renderId", renderHandler.Status)
	render.Get("/result/:renderId", renderHandler.Result)
	render.Post("/cancel/:renderId", renderHandler.Cancel)
	render.Post("/batch", rateLimiter.BatchLimit(cfg.RateLimit.BatchPerHour), renderHandler.Batch)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/renders/:renderId", websocket.New(func(c *websocket.Conn) {
		renderID := c.Params("renderId")
		hub.HandleConnection(c, renderID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, renderService, zapLogger)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zapLogger.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zapLogger.Error("server shutdown error", zap.Error(err))
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	zapLogger.Info("server starting", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		zapLogger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if strings.EqualFold(cfg.Server.Env, "production") {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func startWorkerServer(cfg *config.Config, renderService *service.RenderService, zapLogger *zap.Logger) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"render": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	renderWorker := worker.NewRenderWorker(renderService, zapLogger)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeRender, renderWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		zapLogger.Error("asynq worker error", zap.Error(err))
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
