package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// MockConfig holds the settings of the local mock SST service.
type MockConfig struct {
	AppEnv   string
	LogLevel slog.Level
	Addr     string
	// APIKey, when set, must match the X-API-Key header of every point request.
	APIKey string

	DotEnvLoaded bool
}

// LoadMock reads the mock service configuration from environment.
func LoadMock() (*MockConfig, error) {
	loaded := godotenv.Load() == nil

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	return &MockConfig{
		AppEnv:   getenvDefault("APP_ENV", "dev"),
		LogLevel: level,
		Addr:     getenvDefault("MOCK_ADDR", DefaultMockAddr),
		APIKey:   os.Getenv("MOCK_API_KEY"),

		DotEnvLoaded: loaded,
	}, nil
}
