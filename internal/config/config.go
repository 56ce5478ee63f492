package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the service configuration loaded from the environment.
type Config struct {
	DatabaseURL   string
	Port          string
	NotifyChannel string
}

// Load reads configuration from a .env file (if present) and the
// environment, applying defaults and validating required values. OpenAI
// credentials are read by the llm package itself.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Port:          "8080",
		NotifyChannel: "doctor_handoff",
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if ch := os.Getenv("NOTIFY_CHANNEL"); ch != "" {
		cfg.NotifyChannel = ch
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	return cfg, nil
}
