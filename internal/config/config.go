package config

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath = "./ratedesk.db"
	defaultPort   = "3000"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	DBPath string
	Port   string
	Env    string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort .env load for local development; a missing file is fine.
	_ = godotenv.Load()

	cfg := Config{
		DBPath: os.Getenv("DB_PATH"),
		Port:   os.Getenv("PORT"),
		Env:    os.Getenv("APP_ENV"),
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	return cfg
}

// IsDev reports whether the app runs outside production. Dev mode runs
// migrations and the startup seed automatically.
func (c Config) IsDev() bool {
	return c.Env != "production"
}
