package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.jsonc")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
	// This is a JSONC comment
	"gateway": {
		"host": "0.0.0.0",
		"port": 9999,
		"backend_url": "${{ .Env.TEST_BACKEND }}",
		"timeout": "5s",
	},
	/* block comment */
	"backend": {"driver": "file", "dir": "/tmp/tasks"},
	"client": {"refresh_schedule": "*/5 * * * *", "rollback_on_failure": true},
}`)
	t.Setenv("TEST_BACKEND", "http://api.internal:8000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Gateway.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %s", cfg.Gateway.Host)
	}
	if cfg.Gateway.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Gateway.Port)
	}
	if cfg.Gateway.BackendURL != "http://api.internal:8000" {
		t.Errorf("expected expanded backend url, got %s", cfg.Gateway.BackendURL)
	}
	if cfg.Gateway.Timeout.Duration() != 5*time.Second {
		t.Errorf("expected timeout 5s, got %s", cfg.Gateway.Timeout.Duration())
	}
	if cfg.Backend.Driver != "file" || cfg.Backend.Dir != "/tmp/tasks" {
		t.Errorf("unexpected backend config %+v", cfg.Backend)
	}
	if !cfg.Client.RollbackOnFailure || cfg.Client.RefreshSchedule != "*/5 * * * *" {
		t.Errorf("unexpected client config %+v", cfg.Client)
	}
	if cfg.Client.GatewayURL != "http://127.0.0.1:9999" {
		t.Errorf("expected wildcard host mapped to loopback, got %s", cfg.Client.GatewayURL)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TASKDECK_API_URL", "")
	t.Setenv("TASKDECK_PATH", "/tmp/td")

	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Gateway.Host != "127.0.0.1" {
		t.Errorf("expected default host 127.0.0.1, got %s", cfg.Gateway.Host)
	}
	if cfg.Gateway.Port != 18420 {
		t.Errorf("expected default port 18420, got %d", cfg.Gateway.Port)
	}
	if cfg.Gateway.BackendURL != "http://backend:8000" {
		t.Errorf("expected default backend url, got %s", cfg.Gateway.BackendURL)
	}
	if cfg.Backend.Driver != "sqlite" || cfg.Backend.DSN != "/tmp/td/tasks.db" || cfg.Backend.Port != 8000 {
		t.Errorf("unexpected backend defaults %+v", cfg.Backend)
	}
	if cfg.Client.GatewayURL != "http://127.0.0.1:18420" {
		t.Errorf("expected default gateway url, got %s", cfg.Client.GatewayURL)
	}
	if cfg.Client.RefreshSchedule != DefaultSchedule {
		t.Errorf("expected default schedule, got %q", cfg.Client.RefreshSchedule)
	}
	if cfg.Client.RollbackOnFailure {
		t.Error("rollback must be off by default")
	}
	if cfg.Events.BufferSize != 1024 {
		t.Errorf("expected default buffer 1024, got %d", cfg.Events.BufferSize)
	}
}

func TestBackendURLFromEnv(t *testing.T) {
	t.Setenv("TASKDECK_API_URL", "http://localhost:9000")

	cfg := Default()
	if cfg.Gateway.BackendURL != "http://localhost:9000" {
		t.Errorf("expected env backend url, got %s", cfg.Gateway.BackendURL)
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.jsonc"))
	if err != nil {
		t.Fatalf("missing file should yield defaults, got %v", err)
	}
	if cfg.Gateway.Port != DefaultGatewayPort {
		t.Errorf("expected default port, got %d", cfg.Gateway.Port)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load(writeConfig(t, `{"gateway": `)); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Load(writeConfig(t, `{"gateway": {"timeout": "soon"}}`)); err == nil {
		t.Fatal("expected duration error")
	}
}

func TestExpandEnvTemplates(t *testing.T) {
	t.Setenv("TEST_KEY", "my-value")
	result := expandEnvTemplates(`{"key": "${{ .Env.TEST_KEY }}"}`)
	expected := `{"key": "my-value"}`
	if result != expected {
		t.Errorf("expected %s, got %s", expected, result)
	}
}
