package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/forecast-crud/internal/api/http"
	"github.com/i474232898/forecast-crud/internal/config"
	"github.com/i474232898/forecast-crud/internal/logging"
	"github.com/i474232898/forecast-crud/internal/observability"
	"github.com/i474232898/forecast-crud/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lggr, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = lggr.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	memStore := store.NewMemoryStore(cfg.EmulatorMaxRecords)

	var auth httpapi.Authorizer = httpapi.AnyToken{}
	if len(cfg.EmulatorTokens) > 0 {
		auth = httpapi.StaticTokens(cfg.EmulatorTokens)
	} else {
		lggr.Warn("EMULATOR_TOKENS not set; any non-empty token is accepted")
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "rtdb-emulator",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "rtdb-emulator",
			"records": memStore.Count(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Database routes catch every other path, so they go last.
	httpapi.RegisterRoutes(app, memStore, auth, metrics)

	go func() {
		lggr.Infow("rtdb emulator listening", "port", cfg.Port, "maxRecords", cfg.EmulatorMaxRecords)
		if err := app.Listen(":" + cfg.Port); err != nil {
			lggr.Errorw("fiber server stopped", "err", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lggr.Errorw("error during shutdown", "err", err)
	}
}
