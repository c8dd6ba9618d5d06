package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTaskdeckPath_Default(t *testing.T) {
	t.Setenv("TASKDECK_PATH", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	got := TaskdeckPath()
	want := filepath.Join(home, ".taskdeck")
	if got != want {
		t.Errorf("TaskdeckPath() = %q, want %q", got, want)
	}
}

func TestTaskdeckPath_EnvOverride(t *testing.T) {
	t.Setenv("TASKDECK_PATH", "/tmp/custom-taskdeck")

	if got := TaskdeckPath(); got != "/tmp/custom-taskdeck" {
		t.Errorf("TaskdeckPath() = %q, want %q", got, "/tmp/custom-taskdeck")
	}
}

func TestConfigAndDotenvPath(t *testing.T) {
	t.Setenv("TASKDECK_PATH", "/tmp/test-taskdeck")

	if got := ConfigPath(); got != "/tmp/test-taskdeck/config.jsonc" {
		t.Errorf("ConfigPath() = %q", got)
	}
	if got := DotenvPath(); got != "/tmp/test-taskdeck/.env" {
		t.Errorf("DotenvPath() = %q", got)
	}
}
