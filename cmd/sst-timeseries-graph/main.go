package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/i474232898/sst-timeseries-graph/internal/chart"
	"github.com/i474232898/sst-timeseries-graph/internal/config"
	"github.com/i474232898/sst-timeseries-graph/internal/logging"
	"github.com/i474232898/sst-timeseries-graph/internal/sst"
	"github.com/i474232898/sst-timeseries-graph/internal/sst/providers"
)

const appName = "sst-timeseries-graph"

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	logger := logging.New(cfg.AppEnv, cfg.LogLevel, appName).With("run_id", uuid.NewString())
	slog.SetDefault(logger)
	logger.Debug("configuration loaded", "dotenv", cfg.DotEnvLoaded)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("interrupted by user")
			return 1
		}
		logger.Error("run failed", "err", err)
		return 1
	}

	logger.Info("completed successfully")
	return 0
}

// run collects the series for cfg and writes the chart. A cancelled context
// aborts before anything is written.
func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	source := providers.NewSSTPointProvider(httpClient, cfg.BaseURL, cfg.APIKey,
		providers.WithLogger(logger),
		providers.WithBreaker(cfg.Breaker()),
	)

	collector := sst.NewCollector(source,
		sst.WithRequestInterval(cfg.RequestDelay),
		sst.WithLogger(logger),
	)

	loc := cfg.Location()
	series, err := collector.Collect(ctx, loc, cfg.StartYear, cfg.EndYear)
	if err != nil {
		return fmt.Errorf("collect series: %w", err)
	}

	return chart.RenderFile(cfg.Output, series, loc, chart.Options{
		Width:  cfg.Width,
		Height: cfg.Height,
		Logger: logger,
	})
}
