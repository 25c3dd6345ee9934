package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/filedock/backend/internal/audit"
	"github.com/filedock/backend/internal/catalog"
	"github.com/filedock/backend/internal/config"
	"github.com/filedock/backend/internal/database"
	"github.com/filedock/backend/internal/handlers"
	"github.com/filedock/backend/internal/identity"
	"github.com/filedock/backend/internal/middleware"
	"github.com/filedock/backend/internal/models"
	"github.com/filedock/backend/internal/quota"
	"github.com/filedock/backend/internal/services"
	"github.com/filedock/backend/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Content store backend
	var store storage.ContentStore
	switch cfg.StorageBackend {
	case "ftp":
		store = storage.NewFTPStore(cfg.FTPHost, cfg.FTPPort, cfg.FTPUser, cfg.FTPPassword,
			cfg.FTPRoot, cfg.MaxUploadBytes, cfg.AllowedExtensions)
		log.Printf("Using FTP content store at %s:%d", cfg.FTPHost, cfg.FTPPort)
	default:
		local, err := storage.NewLocalStore(cfg.StorageRoot, cfg.MaxUploadBytes, cfg.AllowedExtensions)
		if err != nil {
			log.Fatalf("Failed to initialize local content store: %v", err)
		}
		store = local
		log.Printf("Using local content store at %s", cfg.StorageRoot)
	}

	// Session validation: remote authority when configured, local JWT
	// validation otherwise. Either way results are cached in Redis.
	var authority identity.Authority
	if cfg.IdentityURL != "" {
		authority = identity.NewHTTPAuthority(cfg.IdentityURL, cfg.IdentityTimeout)
		log.Printf("Validating sessions against %s", cfg.IdentityURL)
	} else {
		authority = identity.NewJWTAuthority(cfg.JWTSecret)
		log.Println("Validating sessions locally (JWT)")
	}
	sessionCache := identity.NewRedisCache(database.Redis, cfg.SessionCacheTTL)
	validator := identity.NewValidator(sessionCache, authority)

	// Core pipeline wiring
	auditRecorder := audit.NewRecorder(database.DB, 256)
	defer auditRecorder.Close()

	fileCatalog := catalog.NewCatalog(database.DB)
	quotaLedger := quota.NewLedger(database.DB, cfg.DefaultQuotaBytes)
	fileService := services.NewFileService(store, fileCatalog, quotaLedger, auditRecorder)

	// Start quota resync sweep (repairs usage drift against the catalog)
	resyncService := services.NewQuotaResyncService(cfg.QuotaResyncEvery, quotaLedger, quotaLedger, fileCatalog, auditRecorder)
	resyncService.Start()
	defer resyncService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:   "FileDock API v1.0",
		BodyLimit: int(cfg.MaxUploadBytes) + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(middleware.Recovery())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "filedock-api",
		})
	})

	// File routes
	fileHandler := handlers.NewFileHandler(fileService)
	api := app.Group("/api", middleware.SessionRequired(validator))
	api.Post("/files", fileHandler.Upload)
	api.Get("/files", fileHandler.List)
	api.Get("/files/search", fileHandler.Search)
	api.Get("/files/quota", fileHandler.Quota)
	api.Get("/files/:id/download", fileHandler.Download)
	api.Put("/files/:id", fileHandler.Update)
	api.Delete("/files/:id", fileHandler.Delete)
	api.Delete("/files/:id/permanent", fileHandler.PermanentDelete)

	// Operator routes
	admin := app.Group("/api/admin", middleware.AdminRequired(cfg.AdminToken))
	admin.Put("/quotas/:ownerID", fileHandler.SetQuotaLimit)

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("FileDock API listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
