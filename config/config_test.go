package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(FileEnv, "")
	for _, key := range []string{
		"PORT", "GIN_MODE", "DATA_DIR", "LOG_FILE", "LOG_LEVEL", "USER_AGENT",
		"FETCH_TIMEOUT", "LINK_TIMEOUT", "LINK_CONCURRENCY", "RATE_LIMIT", "RATE_BURST",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seolint.yaml")
	content := "port: \"9000\"\nlinkTimeout: 30s\nlinkConcurrency: 4\nlogLevel: debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv(FileEnv, path)
	t.Setenv("LINK_CONCURRENCY", "25")
	t.Setenv("FETCH_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected port from file, got %q", cfg.Port)
	}
	if cfg.LinkTimeout != 30*time.Second {
		t.Errorf("Expected link timeout 30s, got %v", cfg.LinkTimeout)
	}
	if cfg.LinkConcurrency != 25 {
		t.Errorf("Expected environment to override file, got %d", cfg.LinkConcurrency)
	}
	if cfg.FetchTimeout != Default().FetchTimeout {
		t.Errorf("Expected invalid duration to keep default, got %v", cfg.FetchTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level from file, got %q", cfg.LogLevel)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("Expected an error for a missing config file")
	}
}

func TestLoadRejectsNonPositiveRates(t *testing.T) {
	t.Setenv(FileEnv, "")
	for _, tc := range []struct {
		limit, burst string
	}{
		{"0", "5"},
		{"-1", "0"},
		{"fast", "-3"},
	} {
		t.Setenv("RATE_LIMIT", tc.limit)
		t.Setenv("RATE_BURST", tc.burst)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.RateLimit != Default().RateLimit || cfg.RateBurst != Default().RateBurst {
			t.Errorf("RATE_LIMIT=%s RATE_BURST=%s: got limit %v burst %d, want defaults",
				tc.limit, tc.burst, cfg.RateLimit, cfg.RateBurst)
		}
	}
}
