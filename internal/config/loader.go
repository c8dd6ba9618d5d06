package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/tailscale/hujson"
)

// Default values.
const (
	DefaultGatewayHost = "127.0.0.1"
	DefaultGatewayPort = 18420
	DefaultBackendURL  = "http://backend:8000"
	DefaultBackendPort = 8000
	DefaultSchedule    = "@every 1m"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, expands ${{ .Env.VAR }} templates,
// unmarshals it into Config, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(data)
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns a config with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func parse(data []byte) (*Config, error) {
	// Expand environment variable templates (before standardizing, since templates are in strings)
	expanded := expandEnvTemplates(string(data))

	std, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = DefaultGatewayHost
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultGatewayPort
	}
	if cfg.Gateway.BackendURL == "" {
		if v := os.Getenv("TASKDECK_API_URL"); v != "" {
			cfg.Gateway.BackendURL = v
		} else {
			cfg.Gateway.BackendURL = DefaultBackendURL
		}
	}

	if cfg.Backend.Host == "" {
		cfg.Backend.Host = DefaultGatewayHost
	}
	if cfg.Backend.Port == 0 {
		cfg.Backend.Port = DefaultBackendPort
	}
	if cfg.Backend.Driver == "" {
		cfg.Backend.Driver = "sqlite"
	}
	if cfg.Backend.DSN == "" {
		cfg.Backend.DSN = filepath.Join(TaskdeckPath(), "tasks.db")
	}
	if cfg.Backend.Dir == "" {
		cfg.Backend.Dir = filepath.Join(TaskdeckPath(), "tasks")
	}

	if cfg.Client.GatewayURL == "" {
		host := cfg.Gateway.Host
		if host == "0.0.0.0" || host == "::" {
			host = DefaultGatewayHost
		}
		cfg.Client.GatewayURL = "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Gateway.Port))
	}
	if cfg.Client.RefreshSchedule == "" {
		cfg.Client.RefreshSchedule = DefaultSchedule
	}

	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 1024
	}
}
