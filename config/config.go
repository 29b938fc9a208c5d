package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime parameter of the console.
type Config struct {
	APIBaseURL      string
	APIToken        string
	TournamentID    int
	ServerPort      int
	RefreshInterval time.Duration
	AllowedOrigin   string
}

// Load reads configuration from environment variables, optionally seeded from
// a .env file. A missing .env is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL environment variable is not set")
	}

	tournamentIDStr := os.Getenv("TOURNAMENT_ID")
	if tournamentIDStr == "" {
		return nil, fmt.Errorf("TOURNAMENT_ID environment variable is not set")
	}
	tournamentID, err := strconv.Atoi(tournamentIDStr)
	if err != nil || tournamentID <= 0 {
		return nil, fmt.Errorf("TOURNAMENT_ID must be a positive integer, got %q", tournamentIDStr)
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	intervalSeconds, err := intEnv("REFRESH_INTERVAL_SECONDS", 15)
	if err != nil {
		return nil, err
	}
	if intervalSeconds < 1 {
		return nil, fmt.Errorf("REFRESH_INTERVAL_SECONDS must be at least 1, got %d", intervalSeconds)
	}

	allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}

	return &Config{
		APIBaseURL:      baseURL,
		APIToken:        os.Getenv("API_TOKEN"),
		TournamentID:    tournamentID,
		ServerPort:      port,
		RefreshInterval: time.Duration(intervalSeconds) * time.Second,
		AllowedOrigin:   allowedOrigin,
	}, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return value, nil
}
