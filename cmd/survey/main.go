package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"site-survey/internal/common/config"
	"site-survey/internal/common/middleware"
	"site-survey/internal/survey/handlers"
	"site-survey/internal/survey/models"
	"site-survey/internal/survey/repository"
	"site-survey/internal/survey/service"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Site Survey Service
// ============================================================

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var (
		db      *sql.DB
		journal handlers.Journal
	)
	if cfg.DBPath != "" {
		db, err = repository.OpenSQLite(cfg.DBPath)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close()

		repo := repository.New(db)
		if err := repo.Init(context.Background()); err != nil {
			log.Fatalf("init db: %v", err)
		}
		journal = repo
	}

	var storage *service.FileStorage
	if cfg.ExportDir != "" {
		storage = service.NewFileStorage(cfg.ExportDir)
	}

	sessions := service.NewSessionManager(service.Options{
		DefaultCenter: service.Point{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon},
		AutoConnect:   cfg.AutoConnect,
		MapLayer:      models.MapLayer(cfg.MapLayer),
	})
	go sweepSessions(sessions, time.Duration(cfg.SessionTTL)*time.Minute)

	surveyHandler := handlers.NewSurveyHandler(sessions, journal, storage)
	surveyHandler.LimitSessions(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.SessionRate,
		BurstSize:         cfg.SessionBurst,
	}))

	health := handlers.NewHealth(nil)
	if db != nil {
		health = handlers.NewHealth(db)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:    16 * 1024 * 1024,
		AppName:      "Site Survey",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.CORSOrigins))

	// ============================================================
	// Health Check Routes
	// ============================================================

	health.Register(app)

	// ============================================================
	// Docs Routes
	// ============================================================

	app.Get("/docs", handlers.SwaggerUI)
	app.Get("/docs/openapi.yaml", handlers.OpenAPISpec)

	// ============================================================
	// API Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Site Survey API v1",
			"status":  "ok",
		})
	})

	surveyHandler.Register(api)

	// ============================================================
	// Server Start
	// ============================================================

	health.MarkStarted()

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Site Survey on %s (env: %s)", addr, cfg.Environment)
	if storage != nil {
		log.Printf("Saving exports to %s", cfg.ExportDir)
	}

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// sweepSessions периодически закрывает простаивающие сессии.
func sweepSessions(sessions *service.SessionManager, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()

	for range ticker.C {
		if n := sessions.Sweep(ttl); n > 0 {
			log.Printf("[SURVEY] Swept %d idle sessions, %d active", n, sessions.Len())
		}
	}
}
