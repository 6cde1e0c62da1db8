package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"clipflow/clients/deepseek"
	"clipflow/clients/supadata"
	"clipflow/clients/telegram"
	"clipflow/clients/vastai"
	"clipflow/clients/youtube"
	"clipflow/config"
	"clipflow/handlers"
	"clipflow/logger"
	"clipflow/middleware"
	"clipflow/repository/sqlite"
	"clipflow/services/catalog"
	"clipflow/services/pipeline"
	"clipflow/services/schedule"
	"clipflow/storage"
	"clipflow/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/google/uuid"
)

const defaultPromptTemplate = "Rewrite the following transcript as an " +
	"engaging short-form video script. Keep the key points and hooks.\n\n{{transcript}}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize loggers
	requestLogConfig, err := logger.NewRequestLogger(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	serviceLogger := logger.NewServiceLogger(cfg.Debug)

	// Initialize database
	db, err := sqlite.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Initialize repositories
	userRepo := sqlite.NewUserRepository(db)
	videoRepo := sqlite.NewVideoRepository(db)
	scheduleRepo := sqlite.NewScheduleRepository(db)
	settingsRepo := sqlite.NewSettingsRepository(db)

	// Initialize validator
	validator := validation.NewValidator(cfg)

	// External clients are keyed from shared settings so they can be
	// rotated without a redeploy.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	sharedSetting := func(key string) string {
		value, err := settingsRepo.SharedSetting(startupCtx, key)
		if err != nil {
			log.Printf("Failed to read shared setting %s: %v", key, err)
			return ""
		}
		return value
	}

	var videoSource catalog.VideoSource
	if apiKey := sharedSetting("youtube_api_key"); apiKey != "" {
		videoSource = youtube.NewClient(apiKey)
	} else {
		log.Println("No YouTube API key configured, falling back to channel RSS feeds")
	}

	var deliverer pipeline.Deliverer
	if botToken := sharedSetting("telegram_bot_token"); botToken != "" {
		telegramClient := telegram.NewClient(botToken)
		if username, err := telegramClient.TestBot(startupCtx); err != nil {
			log.Printf("Telegram bot check failed: %v", err)
		} else {
			log.Printf("Telegram bot connected as @%s", username)
		}
		deliverer = telegramClient
	}

	deepseekClient := deepseek.NewClient(sharedSetting("deepseek_api_key"))
	cancelStartup()

	var archiver pipeline.Archiver
	if cfg.Spaces.Enabled {
		spacesClient, err := storage.NewSpacesClient(storage.SpacesConfig{
			AccessKey: cfg.Spaces.AccessKey,
			SecretKey: cfg.Spaces.SecretKey,
			Region:    cfg.Spaces.Region,
			Endpoint:  cfg.Spaces.Endpoint,
			Bucket:    cfg.Spaces.Bucket,
		})
		if err != nil {
			log.Fatalf("Failed to initialize Spaces client: %v", err)
		}
		archiver = spacesClient
	}

	// Initialize services
	scheduleService := schedule.NewService(
		userRepo,
		videoRepo,
		scheduleRepo,
		schedule.Config{
			DaysAhead:           cfg.Schedule.DaysAhead,
			LookbackDays:        cfg.Schedule.LookbackDays,
			DefaultVideosPerDay: cfg.Schedule.DefaultVideosPerDay,
		},
		serviceLogger,
		nil,
	)

	catalogService := catalog.NewService(
		userRepo,
		videoRepo,
		videoSource,
		catalog.Config{},
		serviceLogger,
	)

	pipelineService := pipeline.NewService(
		scheduleRepo,
		userRepo,
		settingsRepo,
		supadata.NewClient(),
		deepseekClient,
		deliverer,
		archiver,
		pipeline.Config{
			WorkerCount:           cfg.Pipeline.WorkerCount,
			QueueSize:             cfg.Pipeline.QueueSize,
			EntryTimeout:          cfg.Pipeline.EntryTimeout,
			ChunkTargetLen:        cfg.Pipeline.ChunkTargetLen,
			DefaultPromptTemplate: defaultPromptTemplate,
		},
	)
	defer pipelineService.Close()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: !cfg.Debug,
		StrictRouting:         true,
		CaseSensitive:         true,
		AppName:               "clipflow " + cfg.Version,
	})

	setupMiddleware(app, cfg, requestLogConfig)

	// Setup handlers
	authHandler := handlers.NewAuthHandler(userRepo, validator, cfg.Auth)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService, pipelineService)
	videoHandler := handlers.NewVideoHandler(catalogService)
	settingsHandler := handlers.NewSettingsHandler(userRepo, settingsRepo)
	channelsHandler := handlers.NewChannelsHandler(userRepo, validator)
	cronHandler := handlers.NewCronHandler(catalogService, cfg.CronSecret)
	vastaiHandler := handlers.NewVastAIHandler(vastai.NewClient(cfg.VastAIKey))

	// Public routes
	app.Post("/api/login", authHandler.Login)
	app.Get("/api/cron/daily-fetch", cronHandler.DailyFetch)
	app.Get("/health", handlers.HealthCheck)

	// Authenticated routes
	api := app.Group("/api", middleware.JWTAuth(cfg.Auth.JWTSecret))
	api.Post("/schedule/generate", scheduleHandler.Generate)
	api.Get("/schedule/today", scheduleHandler.Today)
	api.Post("/schedule/process", scheduleHandler.Process)
	api.Post("/videos/fetch", videoHandler.Fetch)
	api.Get("/settings", settingsHandler.Get)
	api.Put("/settings", settingsHandler.Update)
	api.Get("/channels", channelsHandler.List)
	api.Post("/channels", channelsHandler.Create)
	api.Put("/channels/:id", channelsHandler.Update)
	api.Delete("/channels/:id", channelsHandler.Delete)
	api.Post("/vastai/rent", vastaiHandler.Rent)
	api.Post("/vastai/status", vastaiHandler.Status)
	api.Post("/vastai/execute", vastaiHandler.Execute)
	api.Post("/vastai/upload-script", vastaiHandler.UploadScript)
	api.Post("/vastai/logs", vastaiHandler.Logs)
	api.Post("/vastai/stop", vastaiHandler.Stop)

	// Graceful shutdown setup
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		if err := db.Close(); err != nil {
			log.Printf("Database shutdown error: %v", err)
		}
	}()

	// Start server
	serverAddr := ":" + cfg.ServerPort
	if cfg.Debug {
		log.Printf("Server starting on http://localhost%s", serverAddr)
	}

	if err := app.Listen(serverAddr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

func setupMiddleware(app *fiber.App, cfg *config.Config, logConfig *fiberLogger.Config) {
	if cfg.Middleware.EnableRecover {
		app.Use(recover.New(recover.Config{
			EnableStackTrace: cfg.Debug,
		}))
	}

	if cfg.Middleware.EnableRequestID {
		app.Use(requestid.New(requestid.Config{
			Header: "X-Request-ID",
			Generator: func() string {
				return uuid.New().String()
			},
		}))
	}

	if cfg.Middleware.EnableLogger {
		app.Use(fiberLogger.New(*logConfig))
	}

	if cfg.Middleware.EnableTimeout {
		app.Use(timeout.New(func(c *fiber.Ctx) error {
			return c.Next()
		}, cfg.RequestTimeout))
	}

	if cfg.Middleware.EnableCORS {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.CORS.AllowedOrigins, ","),
			AllowMethods:     strings.Join(cfg.CORS.AllowedMethods, ","),
			AllowHeaders:     strings.Join(cfg.CORS.AllowedHeaders, ","),
			ExposeHeaders:    strings.Join(cfg.CORS.ExposedHeaders, ","),
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		}))
	}

	if cfg.Middleware.EnableRateLimit && cfg.RateLimit.Enabled {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.RequestsPerMinute,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Rate limit exceeded",
				})
			},
		}))
	}

	if cfg.Middleware.EnableCompress {
		app.Use(compress.New(compress.Config{
			Level: compress.LevelDefault,
		}))
	}

	if cfg.Middleware.EnableETag {
		app.Use(etag.New())
	}
}
