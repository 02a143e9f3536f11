// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/satslab/satslab/internal/explorer"
	"github.com/satslab/satslab/internal/hints"
	"github.com/satslab/satslab/internal/validation"
)

// Config holds all application configuration.
type Config struct {
	DBPath   string // empty means the default data dir location
	Addr     string
	LogLevel string
	LogFile  string // empty means the default data dir location

	Explorer ExplorerConfig

	Hints     hints.Policy
	PassRatio float64

	SessionIdle time.Duration
	CORSOrigins []string
}

// ExplorerConfig controls the advisory block-explorer lookups.
type ExplorerConfig struct {
	URL      string
	Timeout  time.Duration
	CacheTTL time.Duration
	Offline  bool
}

// LoadDotEnv loads a .env file from the working directory if present.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	policy := hints.DefaultPolicy()

	cfg := &Config{
		DBPath:   getEnv("SATSLAB_DB", ""),
		Addr:     getEnv("SATSLAB_ADDR", ":8080"),
		LogLevel: getEnv("SATSLAB_LOG_LEVEL", "info"),
		LogFile:  getEnv("SATSLAB_LOG_FILE", ""),
		Explorer: ExplorerConfig{
			URL:      getEnv("SATSLAB_EXPLORER_URL", explorer.DefaultBaseURL),
			Timeout:  getEnvDuration("SATSLAB_EXPLORER_TIMEOUT", validation.DefaultTimeout),
			CacheTTL: getEnvDuration("SATSLAB_EXPLORER_CACHE_TTL", explorer.DefaultCacheTTL),
			Offline:  getEnvBool("SATSLAB_OFFLINE", false),
		},
		Hints: hints.Policy{
			FirstDelay:     getEnvDuration("SATSLAB_HINT_T1", policy.FirstDelay),
			SecondDelay:    getEnvDuration("SATSLAB_HINT_T2", policy.SecondDelay),
			AttemptTrigger: policy.AttemptTrigger,
			ManualAfter:    policy.ManualAfter,
		},
		PassRatio:   getEnvFloat("SATSLAB_QUIZ_PASS_RATIO", 0.7),
		SessionIdle: getEnvDuration("SATSLAB_SESSION_IDLE", 30*time.Minute),
		CORSOrigins: getEnvList("SATSLAB_CORS_ORIGINS", []string{"*"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("SATSLAB_ADDR cannot be empty")
	}
	if !c.Explorer.Offline && c.Explorer.URL == "" {
		return fmt.Errorf("SATSLAB_EXPLORER_URL cannot be empty unless SATSLAB_OFFLINE is set")
	}
	if c.Explorer.Timeout <= 0 {
		return fmt.Errorf("SATSLAB_EXPLORER_TIMEOUT must be > 0")
	}
	if c.Explorer.CacheTTL < 0 {
		return fmt.Errorf("SATSLAB_EXPLORER_CACHE_TTL must be >= 0")
	}
	if c.Hints.FirstDelay <= 0 {
		return fmt.Errorf("SATSLAB_HINT_T1 must be > 0")
	}
	if c.Hints.SecondDelay < c.Hints.FirstDelay {
		return fmt.Errorf("SATSLAB_HINT_T2 must be >= SATSLAB_HINT_T1")
	}
	if c.PassRatio <= 0 || c.PassRatio > 1 {
		return fmt.Errorf("SATSLAB_QUIZ_PASS_RATIO must be in (0, 1]")
	}
	if c.SessionIdle <= 0 {
		return fmt.Errorf("SATSLAB_SESSION_IDLE must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
