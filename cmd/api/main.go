package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/cache"
	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/jobs"
	"github.com/anjiri1684/tutor_marketplace/logging"
	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/routes"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	logging.Init()
	defer logging.Close()

	database.ConnectDB()
	database.MigrateOrDie()
	database.SeedAdmin()
	notifications.InitEmailService()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	services.UseSettingsCache(cache.FromConfig(ctx))
	cancel()

	c := cron.New()
	c.AddFunc("*/5 * * * *", jobs.ExpireStaleModifications)
	c.AddFunc("*/5 * * * *", jobs.PromoteUpcomingBookings)
	c.AddFunc("*/5 * * * *", jobs.MarkMissedBookings)
	c.AddFunc("*/5 * * * *", jobs.RejectStalePendingBookings)
	c.AddFunc("*/5 * * * *", jobs.SendClassReminders)
	c.Start()
	log.Println("✅ Cron jobs scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       config.Config("APP_NAME"),
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				logging.Error("unhandled request error", err, map[string]interface{}{"path": c.Path(), "method": c.Method()})
			}
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Webhook-Signature, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   config.Config("TIME_ZONE"),
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(middleware.GlobalRateLimiter())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to " + config.Config("APP_NAME") + " API",
		})
	})

	routes.Register(app)

	port := config.Config("APP_PORT")
	go func() {
		log.Printf("✅ Server is running on port %s", port)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("🔥 Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logging.Error("http shutdown", err, nil)
	}
	select {
	case <-c.Stop().Done():
	case <-shutdownCtx.Done():
		log.Println("Cron jobs still running at shutdown deadline.")
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
