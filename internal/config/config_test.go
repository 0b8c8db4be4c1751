/*-------------------------------------------------------------------------
 *
 * config_test.go
 *    Configuration loading and validation tests
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/config/config_test.go
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

/* TestDefaultConfigIsValid tests that defaults pass validation */
func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

/* TestLoadConfigAppliesOverrides tests YAML loading on top of defaults */
func TestLoadConfigAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9999
reliability:
  failure_threshold: 7
cache:
  fresh_ttl: 60s
  hard_max_age: 600s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("expected overridden port, got %d", cfg.Server.Port)
	}
	if cfg.Reliability.FailureThreshold != 7 {
		t.Fatalf("expected overridden threshold, got %d", cfg.Reliability.FailureThreshold)
	}
	if cfg.Cache.FreshTTL != 60*time.Second {
		t.Fatalf("expected overridden TTL, got %s", cfg.Cache.FreshTTL)
	}
	/* Untouched keys keep their defaults */
	if cfg.Database.Port != 5432 {
		t.Fatalf("expected default database port, got %d", cfg.Database.Port)
	}
}

/* TestLoadConfigRejectsInvalid tests that invalid files fail loudly */
func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation failure for negative port")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

/* TestValidateOrderingInvariants tests the TTL ordering rule */
func TestValidateOrderingInvariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.HardMaxAge = cfg.Cache.FreshTTL - time.Second

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected rejection when hard max age is below fresh TTL")
	}
}

/* TestLoadFromEnv tests environment overrides */
func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SUPERVISOR_PORT", "7070")
	t.Setenv("SUPERVISOR_DB_HOST", "db.internal")
	t.Setenv("SUPERVISOR_LOG_LEVEL", "debug")
	t.Setenv("SUPERVISOR_MAX_MESSAGE_BYTES", "4096")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.Server.Port != 7070 {
		t.Fatalf("expected env port, got %d", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Fatalf("expected env db host, got %s", cfg.Database.Host)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env log level, got %s", cfg.Logging.Level)
	}
	if cfg.WebSocket.MaxMessageBytes != 4096 {
		t.Fatalf("expected env message bound, got %d", cfg.WebSocket.MaxMessageBytes)
	}
}
