package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def := Default()
	if cfg.Listen != def.Listen {
		t.Errorf("Listen = %q, want %q", cfg.Listen, def.Listen)
	}
	if cfg.Server.RequestTimeout != 15*time.Second {
		t.Errorf("RequestTimeout = %v, want 15s", cfg.Server.RequestTimeout)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("Batch.Workers = %d, want 4", cfg.Batch.Workers)
	}
	if cfg.Engine.CostPrecision != 2 {
		t.Errorf("Engine.CostPrecision = %d, want 2", cfg.Engine.CostPrecision)
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
listen: 0.0.0.0:9000
log:
  level: debug
  format: json
server:
  request_timeout: 3s
tracing:
  enabled: true
batch:
  workers: 9
engine:
  cost_precision: 4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Server.RequestTimeout != 3*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxRequestBytes != 1<<20 {
		t.Errorf("MaxRequestBytes = %d, want default", cfg.Server.MaxRequestBytes)
	}
	if !cfg.Tracing.Enabled {
		t.Error("Tracing.Enabled = false")
	}
	if cfg.Batch.Workers != 9 {
		t.Errorf("Batch.Workers = %d", cfg.Batch.Workers)
	}
	if cfg.Batch.MaxJobs != 100 {
		t.Errorf("Batch.MaxJobs = %d, want default", cfg.Batch.MaxJobs)
	}
	if cfg.Engine.CostPrecision != 4 {
		t.Errorf("CostPrecision = %d", cfg.Engine.CostPrecision)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ALLOT_LISTEN", "127.0.0.1:8123")
	t.Setenv("ALLOT_BATCH_WORKERS", "2")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8123" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Batch.Workers != 2 {
		t.Errorf("Batch.Workers = %d", cfg.Batch.Workers)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "batch:\n  workers: 0\n")

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "workers") {
		t.Fatalf("expected workers validation error, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Listen = "127.0.0.1:7500"
	cfg.Server.RequestTimeout = 42 * time.Second

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Listen != cfg.Listen {
		t.Errorf("Listen = %q, want %q", got.Listen, cfg.Listen)
	}
	if got.Server.RequestTimeout != 42*time.Second {
		t.Errorf("RequestTimeout = %v", got.Server.RequestTimeout)
	}
}

func TestSave_Nil(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "c.yaml"), nil); err == nil {
		t.Error("expected error for nil config")
	}
}
