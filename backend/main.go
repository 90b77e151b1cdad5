package main

import (
	"log"

	"infoclass/backend/config"
	"infoclass/backend/mailer"
	"infoclass/backend/middleware"
	"infoclass/backend/notifications"
	"infoclass/backend/realtime"
	"infoclass/backend/routes"
	"infoclass/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	if err := utils.MigrateDB(db); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Mail delivery and realtime fan-out
	mail := mailer.New(cfg, logger)
	hub := realtime.NewHub(logger)
	notifier := notifications.NewService(db, hub, mail, logger)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: controllersBodyLimit,
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, db, cfg, notifier, hub, mail)

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}

// controllersBodyLimit matches the per-file upload cap plus multipart overhead.
const controllersBodyLimit = 12 * 1024 * 1024
