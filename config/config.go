// Package config loads the service configuration from .env files, an optional YAML
// file and the environment, in that order of precedence (environment wins).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the variable pointing at the optional YAML configuration file.
const FileEnv = "SEOLINT_CONFIG"

type Config struct {
	Port            string        `yaml:"port"`
	GinMode         string        `yaml:"ginMode"`
	DataDir         string        `yaml:"dataDir"`
	LogFile         string        `yaml:"logFile"`
	LogLevel        string        `yaml:"logLevel"`
	UserAgent       string        `yaml:"userAgent"`
	FetchTimeout    time.Duration `yaml:"fetchTimeout"`
	LinkTimeout     time.Duration `yaml:"linkTimeout"`
	LinkConcurrency int           `yaml:"linkConcurrency"`
	RateLimit       float64       `yaml:"rateLimit"`
	RateBurst       int           `yaml:"rateBurst"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:            "8082",
		GinMode:         "release",
		DataDir:         "data",
		LogLevel:        "info",
		UserAgent:       "SEOAnalyzer/1.0",
		FetchTimeout:    15 * time.Second,
		LinkTimeout:     10 * time.Second,
		LinkConcurrency: 10,
		RateLimit:       2,
		RateBurst:       5,
	}
}

// LoadEnvFiles loads .env.development, or .env when it does not exist. Missing files
// are not an error.
func LoadEnvFiles() {
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found, using environment variables")
		}
	}
}

// Load builds the configuration from defaults, the YAML file named by SEOLINT_CONFIG
// and the environment.
func Load() (Config, error) {
	LoadEnvFiles()

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)
	c.FetchTimeout = getDuration("FETCH_TIMEOUT", c.FetchTimeout)
	c.LinkTimeout = getDuration("LINK_TIMEOUT", c.LinkTimeout)
	c.LinkConcurrency = getInt("LINK_CONCURRENCY", c.LinkConcurrency)
	c.RateBurst = getInt("RATE_BURST", c.RateBurst)

	if raw, ok := os.LookupEnv("RATE_LIMIT"); ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			c.RateLimit = v
		} else {
			slog.Warn("Invalid RATE_LIMIT, must be a positive number", "value", raw, "error", err)
		}
	}
	if c.RateLimit <= 0 {
		slog.Warn("Invalid rateLimit, must be positive", "value", c.RateLimit)
		c.RateLimit = Default().RateLimit
	}
	if c.RateBurst <= 0 {
		slog.Warn("Invalid RATE_BURST, must be positive", "value", c.RateBurst)
		c.RateBurst = Default().RateBurst
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer setting", "key", key, "value", raw, "error", err)
		return defaultVal
	}
	return v
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration setting", "key", key, "value", raw, "error", err)
		return defaultVal
	}
	return v
}
