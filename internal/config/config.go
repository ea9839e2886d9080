// Package config содержит логику чтения конфигурации панели владельца.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress        = "localhost:8080"
	defaultBackendAPIAddress = "http://localhost:8000/api"
	defaultRequestTimeout    = 10 * time.Second
	defaultLogLevel          = "info"
)

// Config содержит параметры конфигурации панели владельца.
type Config struct {
	RunAddress        string        `env:"RUN_ADDRESS"`
	BackendAPIAddress string        `env:"BACKEND_API_ADDRESS"`
	DatabaseURI       string        `env:"DATABASE_URI"`
	RedisAddress      string        `env:"REDIS_ADDRESS"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"`
	LogLevel          string        `env:"LOG_LEVEL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.BackendAPIAddress, "b", defaultBackendAPIAddress, "ParkeaYa backend API base URL")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for the action journal")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for shared busy flags")
	flag.DurationVar(&cfg.RequestTimeout, "t", defaultRequestTimeout, "backend request timeout")
	flag.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")

	flag.Parse()

	if fromEnv.RunAddress != "" {
		cfg.RunAddress = fromEnv.RunAddress
	}
	if fromEnv.BackendAPIAddress != "" {
		cfg.BackendAPIAddress = fromEnv.BackendAPIAddress
	}
	if fromEnv.DatabaseURI != "" {
		cfg.DatabaseURI = fromEnv.DatabaseURI
	}
	if fromEnv.RedisAddress != "" {
		cfg.RedisAddress = fromEnv.RedisAddress
	}
	if fromEnv.RequestTimeout != 0 {
		cfg.RequestTimeout = fromEnv.RequestTimeout
	}
	if fromEnv.LogLevel != "" {
		cfg.LogLevel = fromEnv.LogLevel
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.BackendAPIAddress == "" {
		cfg.BackendAPIAddress = defaultBackendAPIAddress
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout must be positive, got %s", cfg.RequestTimeout)
	}

	return cfg, nil
}
