package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"carquote_backend/internal/controller"
	"carquote_backend/internal/middleware"
	"carquote_backend/internal/model"
	"carquote_backend/internal/service"
	"carquote_backend/pkg/config"
	"carquote_backend/pkg/cron"
	"carquote_backend/pkg/database"
	"carquote_backend/pkg/email"
	"carquote_backend/pkg/inventory"
	"carquote_backend/pkg/lock"
	"carquote_backend/pkg/logger"
	"carquote_backend/pkg/seed"
	"carquote_backend/pkg/utils/jwt"
	"carquote_backend/pkg/utils/storage"
	"carquote_backend/pkg/voice"
)

func setupRoutes(app *fiber.App, cfg *config.Config) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Session Routes
	sessions := api.Group("/sessions")
	sessions.Post("/", controller.CreateSession)
	sessions.Get("/", controller.GetSessions)

	session := sessions.Group("/:id", middleware.LoadSession())
	session.Get("/", controller.GetSession)
	session.Put("/status", controller.UpdateSessionStatus)
	session.Delete("/", controller.DeleteSession)
	session.Get("/stats", controller.GetSessionStats)

	// Workflow actions
	session.Post("/fetch", controller.FetchDealers)
	session.Post("/calls/submit", controller.SubmitCalls)
	session.Get("/call-status", controller.GetCallStatus)

	// Session children
	session.Get("/listings", controller.GetSessionListings)
	session.Get("/listings/selected", controller.GetSelectedListings)
	session.Post("/listings", controller.CreateListings)
	session.Get("/calls", controller.GetSessionCalls)
	session.Get("/quotes", controller.GetSessionQuotes)
	session.Get("/quotes/stats", controller.GetQuoteStats)
	session.Get("/quotes/report.pdf", controller.GetQuoteReport)
	session.Post("/quotes/report/archive", controller.ArchiveQuoteReport)

	// Listing Routes
	listings := api.Group("/listings")
	listings.Put("/select", controller.BulkSelectListings)
	listings.Get("/:id", controller.GetListing)
	listings.Put("/:id/select", controller.SelectListing)
	listings.Delete("/:id", controller.DeleteListing)
	listings.Get("/:id/call", controller.GetListingCall)
	listings.Get("/:id/quote", controller.GetListingQuote)

	// Call Routes
	calls := api.Group("/calls")
	calls.Post("/finish", middleware.ServiceAuthMiddleware(cfg.Callback.Secret, jwt.CallbackAudience), controller.FinishCall)
	calls.Post("/", controller.CreateCall)
	calls.Get("/overdue", controller.GetOverdueCalls)
	calls.Get("/:id", controller.GetCall)
	calls.Put("/:id/status", controller.UpdateCallStatus)
	calls.Delete("/:id", controller.DeleteCall)
	calls.Get("/:id/quote", controller.GetCallQuote)

	// Quote Routes
	quotes := api.Group("/quotes")
	quotes.Post("/", controller.CreateQuote)
	quotes.Get("/:id", controller.GetQuote)
	quotes.Put("/:id", controller.UpdateQuote)
	quotes.Delete("/:id", controller.DeleteQuote)
}

func newApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.Server.CORSOrigins}))

	setupRoutes(app, cfg)
	return app
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("could not load config", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	if err := email.InitEmailService(cfg.Email.ResendAPIKey, cfg.Email.From); err != nil {
		slog.Error("could not initialize email service", "error", err)
		os.Exit(1)
	}
	var notifier email.Notifier
	if email.GlobalEmailService != nil {
		notifier = email.GlobalEmailService
		slog.Info("email notifications enabled", "to", cfg.Email.NotifyTo)
	}

	if err := database.InitDB(cfg.Database.URL, cfg.Database.MaxOpenConns); err != nil {
		slog.Error("could not connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.MigrateDatabase(database.GetDB(), model.Models()...); err != nil {
		slog.Warn("migration warning", "error", err)
	}
	if cfg.SeedDemo {
		if _, err := seed.SeedDemoSession(database.GetDB()); err != nil {
			slog.Warn("could not seed demo session", "error", err)
		}
	}

	voiceClient := voice.NewClient(cfg.Voice.BaseURL, cfg.Voice.Timeout)
	wf := &service.Workflow{
		Inventory:   inventory.NewClient(cfg.Inventory.BaseURL, cfg.Inventory.Rows, cfg.Inventory.Timeout),
		Voice:       voiceClient,
		DefaultMake: cfg.Inventory.DefaultMake,
	}
	if cfg.Voice.StatusFeed {
		wf.StatusFeed = voiceClient
	}
	controller.InitWorkflowController(wf)
	controller.InitQuoteController(notifier, cfg.Email.NotifyTo)

	r2 := storage.R2Config(cfg.Storage)
	if r2.Enabled() {
		client, err := storage.NewR2Client(context.Background(), r2)
		if err != nil {
			slog.Error("could not create storage client", "error", err)
			os.Exit(1)
		}
		store, err := storage.NewReportStore(client, r2.Bucket, r2.PublicURL)
		if err != nil {
			slog.Error("could not create report store", "error", err)
			os.Exit(1)
		}
		controller.InitReportArchive(store)
		slog.Info("report archive enabled", "bucket", r2.Bucket)
	}

	if cfg.Followup.Enabled {
		job := &cron.FollowupJob{
			DB:          database.GetDB(),
			MinAge:      cfg.Followup.MinCallAge,
			LockTTL:     cfg.Followup.LockTTL,
			AutoDial:    cfg.Followup.AutoDial,
			Voice:       voiceClient,
			DefaultMake: cfg.Inventory.DefaultMake,
			Notifier:    notifier,
			NotifyTo:    cfg.Email.NotifyTo,
		}
		if cfg.Redis.Addr != "" {
			locker, err := lock.NewRedisLocker(cfg.Redis.Addr, cfg.Redis.Password, "")
			if err != nil {
				slog.Error("could not create redis locker", "error", err)
				os.Exit(1)
			}
			job.Locker = locker
		}

		if _, err := cron.InitQuoteFollowupCron(cfg.Followup.Schedule, job); err != nil {
			slog.Error("could not start follow-up scheduler", "error", err)
			os.Exit(1)
		}
		slog.Info("follow-up scheduler started", "schedule", cfg.Followup.Schedule)
	}

	app := newApp(cfg)

	slog.Info("server is running", "port", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
