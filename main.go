package main

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bookable/bookable/db"
	"github.com/bookable/bookable/notify"
	"github.com/bookable/bookable/reminders"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, using environment variables directly")
	}

	db.Init()
	if os.Getenv("RUN_MIGRATIONS") == "true" {
		db.Migrate()
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if email := notify.NewEmailNotifierFromEnv(); email != nil {
		notifier = email
	}

	jobs, err := reminders.StartJobs(reminders.NewService(db.GetDB(), notifier))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to schedule reminder jobs")
	}
	defer jobs.Stop()

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/ready", func(c *fiber.Ctx) error {
		sqlDB, err := db.GetDB().DB()
		if err != nil || sqlDB.Ping() != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "db unreachable"})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	if err := app.Listen(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
