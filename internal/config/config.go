// Package config loads engine configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DatabaseURL enables the PostgreSQL trade journal; empty means
	// in-memory only (no durability).
	DatabaseURL string `env:"DATABASE_URL"`

	// RedisURL enables the read-through quote cache; empty disables it.
	RedisURL      string        `env:"REDIS_URL"`
	QuoteCacheTTL time.Duration `env:"QUOTE_CACHE_TTL" envDefault:"30s"`
}

// MustLoad parses the environment into a Config, exiting on failure.
func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
