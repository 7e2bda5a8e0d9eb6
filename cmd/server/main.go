package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/stickerlab/api/internal/browser"
	"github.com/stickerlab/api/internal/config"
	"github.com/stickerlab/api/internal/handler"
	"github.com/stickerlab/api/internal/middleware"
	"github.com/stickerlab/api/internal/service"
	"github.com/stickerlab/api/internal/worker"
	ws "github.com/stickerlab/api/internal/websocket"
)

// @title          Sticker Studio API
// @version        1.0
// @description    Batch LINE sticker generation driven through the ChatGPT web UI.
// @host           localhost:3000
// @BasePath       /
// @schemes        http
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	// Redis is optional; only the rate limiter uses it.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis not available, rate limiting disabled: %v", err)
			redisClient = nil
		}
	}

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	// Generation pipeline: browser driver → worker → scheduler.
	driver := browser.NewDriver(cfg.Browser)
	generateWorker := worker.NewGenerateWorker(worker.ChromeDriver(driver), cfg.Browser)
	scheduler := service.NewScheduler(generateWorker, hub, cfg.Storage.OutputDir)

	presetService := service.NewPresetService(cfg.Presets.Path)
	exportService := service.NewExportService(cfg.Storage.OutputDir)

	generateHandler := handler.NewGenerateHandler(scheduler, presetService, validate)
	uploadHandler := handler.NewUploadHandler(cfg.Storage.UploadDir)
	downloadHandler := handler.NewDownloadHandler(exportService)
	presetHandler := handler.NewPresetHandler(presetService)

	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    110 * 1024 * 1024, // two 50MB reference images + form overhead
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis": redisClient != nil,
				"auth":  cfg.Auth.JWTSecret != "",
			},
		})
	})

	// Generated stickers are directly browsable per task.
	app.Static("/output", cfg.Storage.OutputDir)

	api := app.Group("/api", authMiddleware.Authenticate())

	api.Get("/presets", presetHandler.List)
	api.Post("/upload", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), uploadHandler.Images)

	generate := api.Group("/generate")
	generate.Post("/start", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), generateHandler.Start)
	generate.Get("/status/:taskId", generateHandler.Status)
	generate.Get("/results/:taskId", generateHandler.Results)

	download := api.Group("/", rateLimiter.DownloadLimit(cfg.RateLimit.DownloadPerHour))
	download.Get("/download/:taskId/:filename", downloadHandler.Artifact)
	download.Get("/download-all/:taskId", downloadHandler.Archive)

	api.Post("/reset/:taskId", generateHandler.Reset)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/tasks/:taskId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("taskId"))
	}))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	log.Printf("Upload dir: %s", abs(cfg.Storage.UploadDir))
	log.Printf("Output dir: %s", abs(cfg.Storage.OutputDir))
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func abs(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
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
