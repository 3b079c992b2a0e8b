package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "timelynx.db" {
		t.Errorf("Expected default db path 'timelynx.db', got %q", cfg.Database.Path)
	}
	if cfg.Database.RetentionDays != 0 {
		t.Errorf("Expected unlimited retention by default, got %d", cfg.Database.RetentionDays)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if !cfg.Sources.AutoDiscover {
		t.Error("Expected auto-discovery enabled by default")
	}
	if !cfg.Sources.WatchEnabled {
		t.Error("Expected file watching enabled by default")
	}
	if cfg.Sources.PollInterval != 5*time.Second {
		t.Errorf("Expected default poll interval 5s, got %v", cfg.Sources.PollInterval)
	}
	if cfg.Performance.BatchSize != 1000 {
		t.Errorf("Expected default batch size 1000, got %d", cfg.Performance.BatchSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %q", cfg.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/timeline-test.db")
	t.Setenv("DB_RETENTION_DAYS", "30")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SOURCE_AUTO_DISCOVER", "false")
	t.Setenv("SOURCE_POLL_INTERVAL", "250ms")
	t.Setenv("WORKER_POOL_SIZE", "8")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "/tmp/timeline-test.db" {
		t.Errorf("DB_PATH override not applied, got %q", cfg.Database.Path)
	}
	if cfg.Database.RetentionDays != 30 {
		t.Errorf("DB_RETENTION_DAYS override not applied, got %d", cfg.Database.RetentionDays)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("SERVER_PORT override not applied, got %d", cfg.Server.Port)
	}
	if cfg.Sources.AutoDiscover {
		t.Error("SOURCE_AUTO_DISCOVER override not applied")
	}
	if cfg.Sources.PollInterval != 250*time.Millisecond {
		t.Errorf("SOURCE_POLL_INTERVAL override not applied, got %v", cfg.Sources.PollInterval)
	}
	if cfg.Performance.WorkerPoolSize != 8 {
		t.Errorf("WORKER_POOL_SIZE override not applied, got %d", cfg.Performance.WorkerPoolSize)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LOG_LEVEL override not applied, got %q", cfg.LogLevel)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("DB_VACUUM_ENABLED", "maybe")
	t.Setenv("SOURCE_POLL_INTERVAL", "eventually")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected fallback port 8080 for invalid value, got %d", cfg.Server.Port)
	}
	if !cfg.Database.VacuumEnabled {
		t.Error("Expected fallback vacuum=true for invalid value")
	}
	if cfg.Sources.PollInterval != 5*time.Second {
		t.Errorf("Expected fallback poll interval for invalid value, got %v", cfg.Sources.PollInterval)
	}
}
