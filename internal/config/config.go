package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/sst-timeseries-graph/internal/sst"
	"github.com/i474232898/sst-timeseries-graph/internal/sst/providers"
)

// Defaults for the graph command.
const (
	DefaultLat          = 38.13
	DefaultLon          = 4.13
	DefaultStartYear    = 1981
	DefaultEndYear      = 2025
	DefaultOutput       = "sst_timeseries.png"
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultBreakerReset = time.Minute
	DefaultMockAddr     = ":8090"
)

var validate = validator.New()

// AppConfig holds the settings of one graph run. Values come from the
// environment (optionally a .env file) and may be overridden by flags.
type AppConfig struct {
	AppEnv   string     `validate:"oneof=dev prod"`
	LogLevel slog.Level `validate:"-"`

	APIKey  string `validate:"required"`
	BaseURL string `validate:"required,url"`

	Lat       float64 `validate:"gte=-90,lte=90"`
	Lon       float64 `validate:"gte=-180,lte=180"`
	StartYear int     `validate:"gte=1,lte=9999"`
	EndYear   int     `validate:"gtefield=StartYear,lte=9999"`
	Output    string  `validate:"required"`

	// RequestDelay is the minimum spacing between point requests.
	RequestDelay time.Duration `validate:"gte=0s"`
	HTTPTimeout  time.Duration `validate:"gt=0s"`

	// BreakerThreshold opens the circuit after this many consecutive
	// transport failures (0 = disabled).
	BreakerThreshold int           `validate:"gte=0"`
	BreakerReset     time.Duration `validate:"gte=0s"`

	Width  int `validate:"gte=0"`
	Height int `validate:"gte=0"`

	// DotEnvLoaded reports whether a .env file was read.
	DotEnvLoaded bool `validate:"-"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	loaded := godotenv.Load() == nil
	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}
	cfg.DotEnvLoaded = loaded
	return cfg, nil
}

func fromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	if cfg.LogLevel, err = parseLogLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	cfg.APIKey = os.Getenv("SST_API_KEY")
	cfg.BaseURL = getenvDefault("SST_BASE_URL", providers.DefaultBaseURL)

	if cfg.Lat, err = getenvFloat("SST_LAT", DefaultLat); err != nil {
		return nil, err
	}
	if cfg.Lon, err = getenvFloat("SST_LON", DefaultLon); err != nil {
		return nil, err
	}
	if cfg.StartYear, err = getenvInt("SST_START_YEAR", DefaultStartYear); err != nil {
		return nil, err
	}
	if cfg.EndYear, err = getenvInt("SST_END_YEAR", DefaultEndYear); err != nil {
		return nil, err
	}
	cfg.Output = getenvDefault("SST_OUTPUT", DefaultOutput)

	if cfg.RequestDelay, err = getenvDuration("SST_REQUEST_DELAY", sst.DefaultRequestInterval); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", DefaultHTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.BreakerThreshold, err = getenvInt("BREAKER_THRESHOLD", 0); err != nil {
		return nil, err
	}
	if cfg.BreakerReset, err = getenvDuration("BREAKER_RESET", DefaultBreakerReset); err != nil {
		return nil, err
	}

	return cfg, nil
}

// BindFlags registers command-line overrides for cfg on fs. Current values
// act as flag defaults.
func (c *AppConfig) BindFlags(fs *flag.FlagSet) {
	fs.Float64Var(&c.Lat, "lat", c.Lat, "Latitude")
	fs.Float64Var(&c.Lon, "lon", c.Lon, "Longitude")
	fs.IntVar(&c.StartYear, "start-year", c.StartYear, "Start year (inclusive)")
	fs.IntVar(&c.EndYear, "end-year", c.EndYear, "End year (inclusive)")
	fs.StringVar(&c.Output, "output", c.Output, "Output PNG path")
	fs.StringVar(&c.APIKey, "api-key", c.APIKey, "API key for the SST point service (required; default $SST_API_KEY)")
	fs.StringVar(&c.BaseURL, "base-url", c.BaseURL, "Base URL of the SST point service")
	fs.Var((*secondsValue)(&c.RequestDelay), "delay", "Minimum delay between API calls, in seconds (0.1) or as a duration (100ms)")
	fs.DurationVar(&c.HTTPTimeout, "timeout", c.HTTPTimeout, "Per-request timeout")
	fs.IntVar(&c.Width, "width", c.Width, "Image width in pixels (0 = default)")
	fs.IntVar(&c.Height, "height", c.Height, "Image height in pixels (0 = default)")
}

// Location returns the configured point.
func (c *AppConfig) Location() sst.Location {
	return sst.Location{Lat: c.Lat, Lon: c.Lon}
}

// Breaker returns the circuit breaker settings for the point provider.
func (c *AppConfig) Breaker() providers.BreakerConfig {
	return providers.BreakerConfig{
		Threshold: uint32(c.BreakerThreshold),
		Timeout:   c.BreakerReset,
	}
}

// Validate checks ranges and required fields.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := parseSeconds(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parseSeconds accepts a bare number of seconds or a Go duration string.
func parseSeconds(s string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// secondsValue is a flag.Value for durations given in seconds or in Go
// duration syntax.
type secondsValue time.Duration

func (v *secondsValue) String() string {
	return time.Duration(*v).String()
}

func (v *secondsValue) Set(s string) error {
	d, err := parseSeconds(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*v = secondsValue(d)
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
