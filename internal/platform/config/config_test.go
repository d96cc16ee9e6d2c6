package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/skilldesk/skilldesk/internal/platform/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("Database.MaxConns = %d, want 25", cfg.Database.MaxConns)
	}
	if cfg.Database.MaxConnLifetime != 30*time.Minute || cfg.Database.MaxConnIdleTime != 5*time.Minute {
		t.Errorf("Database lifetimes = %v/%v, want 30m/5m", cfg.Database.MaxConnLifetime, cfg.Database.MaxConnIdleTime)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled = true, want false by default")
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.DestructiveAttempts != 3 {
		t.Errorf("Retry budgets = %d/%d, want 5/3", cfg.Retry.MaxAttempts, cfg.Retry.DestructiveAttempts)
	}
	if cfg.Retry.BaseDelay != 500*time.Millisecond || cfg.Retry.MaxDelay != 10*time.Second {
		t.Errorf("Retry delays = %v/%v, want 500ms/10s", cfg.Retry.BaseDelay, cfg.Retry.MaxDelay)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %s/%s, want info/json", cfg.Log.Level, cfg.Log.Format)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SKILLDESK_SERVER_PORT", "9090")
	t.Setenv("SKILLDESK_CACHE_ENABLED", "true")
	t.Setenv("SKILLDESK_CACHE_TTL", "30s")
	t.Setenv("SKILLDESK_RETRY_MAX_ATTEMPTS", "7")
	t.Setenv("SKILLDESK_DATABASE_MAX_CONN_LIFETIME", "1h")
	t.Setenv("SKILLDESK_LIBRARY_PATH", "/srv/library")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Cache = %+v, want enabled with 30s TTL", cfg.Cache)
	}
	if cfg.Retry.MaxAttempts != 7 {
		t.Errorf("Retry.MaxAttempts = %d, want 7", cfg.Retry.MaxAttempts)
	}
	if cfg.Database.MaxConnLifetime != time.Hour {
		t.Errorf("Database.MaxConnLifetime = %v, want 1h", cfg.Database.MaxConnLifetime)
	}
	if cfg.LibraryPath != "/srv/library" {
		t.Errorf("LibraryPath = %q", cfg.LibraryPath)
	}
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		cfg, _ := config.Load()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"missing database url", func(c *config.Config) { c.Database.URL = "" }, "SKILLDESK_DATABASE_URL"},
		{"zero attempts", func(c *config.Config) { c.Retry.MaxAttempts = 0 }, "at least 1"},
		{"zero destructive attempts", func(c *config.Config) { c.Retry.DestructiveAttempts = 0 }, "at least 1"},
		{"destructive above regular", func(c *config.Config) { c.Retry.DestructiveAttempts = 9 }, "cannot exceed"},
		{"cache enabled without url", func(c *config.Config) {
			c.Cache.Enabled = true
			c.Cache.URL = ""
		}, "SKILLDESK_CACHE_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
