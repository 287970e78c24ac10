package sst

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestInterval is the pacing applied between point requests.
const DefaultRequestInterval = 100 * time.Millisecond

// progressEvery controls how often collection progress is logged.
const progressEvery = 12

// Collector walks the monthly date axis and fetches both metrics for every
// sample, one request at a time.
type Collector struct {
	source   PointSource
	interval time.Duration
	logger   *slog.Logger
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithRequestInterval sets the minimum spacing between consecutive requests.
// Zero disables pacing.
func WithRequestInterval(d time.Duration) CollectorOption {
	return func(c *Collector) {
		c.interval = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CollectorOption {
	return func(c *Collector) {
		c.logger = logger
	}
}

// NewCollector creates a Collector reading from source.
func NewCollector(source PointSource, opts ...CollectorOption) *Collector {
	c := &Collector{
		source:   source,
		interval: DefaultRequestInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collector) newLimiter() *rate.Limiter {
	if c.interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(c.interval), 1)
}

// Collect fetches temperature and anomaly for every month between startYear
// and endYear. Failed fetches become absent observations, so the returned
// series is always aligned with its date axis. A cancelled context aborts the
// run and no series is returned.
func (c *Collector) Collect(ctx context.Context, loc Location, startYear, endYear int) (TimeSeries, error) {
	dates := MonthlyDates(startYear, endYear)
	total := len(dates)

	ts := TimeSeries{
		Dates:        dates,
		Temperatures: make([]Observation, 0, total),
		Anomalies:    make([]Observation, 0, total),
	}

	c.logger.Info("collecting monthly samples",
		"source", c.source.Name(),
		"samples", total,
		"start_year", startYear,
		"end_year", endYear,
		"location", loc.Label(),
	)

	limiter := c.newLimiter()
	fetch := func(metric MetricKind, date time.Time) (Observation, error) {
		if err := limiter.Wait(ctx); err != nil {
			return Observation{}, fmt.Errorf("pace requests: %w", err)
		}
		obs := c.source.FetchPoint(ctx, loc, metric, date)
		if err := ctx.Err(); err != nil {
			return Observation{}, err
		}
		return obs, nil
	}

	for i, date := range dates {
		if i == 0 || (i+1)%progressEvery == 0 {
			c.logger.Info("progress",
				"current", i+1,
				"total", total,
				"percent", fmt.Sprintf("%.1f", 100*float64(i+1)/float64(total)),
			)
		}

		temp, err := fetch(MetricTemperature, date)
		if err != nil {
			return TimeSeries{}, err
		}
		ts.Temperatures = append(ts.Temperatures, temp)

		anom, err := fetch(MetricAnomaly, date)
		if err != nil {
			return TimeSeries{}, err
		}
		ts.Anomalies = append(ts.Anomalies, anom)
	}

	c.logger.Info("data collection complete",
		"temperature_values", ts.PresentCount(MetricTemperature),
		"anomaly_values", ts.PresentCount(MetricAnomaly),
	)

	return ts, nil
}
