// Package config loads typed application configuration from the
// environment, with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
)

type Config struct {
	Explorer ExplorerConfig
	Storage  StorageConfig
	Sync     SyncConfig
	Server   ServerConfig
}

type ExplorerConfig struct {
	BaseURL string
	// APIKey may be empty: fetches then degrade to empty results and the
	// system serves cached data only.
	APIKey  string
	Network string
}

type StorageConfig struct {
	Backend       string // memory | postgres | clickhouse
	PostgresDSN   string
	ClickhouseDSN string
}

type SyncConfig struct {
	FetchTimeout    time.Duration
	CourtesyDelay   time.Duration
	WhaleThreshold  float64
	SurgeFraction   float64
	WindowDays      int
	CustomExchanges []string
}

type ServerConfig struct {
	Addr string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first without overriding existing vars.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Explorer: ExplorerConfig{
			BaseURL: getEnv("EXPLORER_BASE_URL", "https://api.etherscan.io"),
			APIKey:  os.Getenv("EXPLORER_API_KEY"),
			Network: getEnv("NETWORK", "mainnet"),
		},
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", BackendMemory),
			PostgresDSN:   os.Getenv("POSTGRES_DSN"),
			ClickhouseDSN: os.Getenv("CLICKHOUSE_DSN"),
		},
		Sync: SyncConfig{
			FetchTimeout:    time.Duration(getEnvInt("FETCH_TIMEOUT_SEC", 30)) * time.Second,
			CourtesyDelay:   time.Duration(getEnvInt("COURTESY_DELAY_MS", 250)) * time.Millisecond,
			WhaleThreshold:  getEnvFloat("WHALE_THRESHOLD", 10000),
			SurgeFraction:   getEnvFloat("SURGE_FRACTION", 0.5),
			WindowDays:      getEnvInt("WINDOW_DAYS", 30),
			CustomExchanges: splitList(os.Getenv("CUSTOM_EXCHANGES")),
		},
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required with STORAGE_BACKEND=postgres")
		}
	case BackendClickhouse:
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("CLICKHOUSE_DSN is required with STORAGE_BACKEND=clickhouse")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}

	if c.Sync.WhaleThreshold <= 0 {
		return fmt.Errorf("WHALE_THRESHOLD must be positive")
	}
	if c.Sync.WindowDays <= 0 {
		return fmt.Errorf("WINDOW_DAYS must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
