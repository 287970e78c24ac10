package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/sst-timeseries-graph/internal/api/http"
	"github.com/i474232898/sst-timeseries-graph/internal/config"
	"github.com/i474232898/sst-timeseries-graph/internal/logging"
)

const appName = "sst-mock-server"

func main() {
	cfg, err := config.LoadMock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.AppEnv, cfg.LogLevel, appName)
	slog.SetDefault(log)
	log.Debug("configuration loaded", "dotenv", cfg.DotEnvLoaded)

	app := httpapi.NewApp(appName)

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(app, httpapi.NewSeasonalDataset(), cfg.APIKey)

	go func() {
		log.Info("listening", "addr", cfg.Addr, "api_key_required", cfg.APIKey != "")
		if err := app.Listen(cfg.Addr); err != nil {
			log.Error("fiber server stopped", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "err", err)
	}
}
