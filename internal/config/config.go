// Package config loads the taskdeck configuration file.
package config

import "time"

// Config is the root configuration for taskdeck.
type Config struct {
	Gateway GatewayConfig `json:"gateway"`
	Backend BackendConfig `json:"backend"`
	Client  ClientConfig  `json:"client"`
	Events  EventsConfig  `json:"events"`
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host       string   `json:"host"`
	Port       int      `json:"port"`
	BackendURL string   `json:"backend_url"`       // default: $TASKDECK_API_URL or http://backend:8000
	Timeout    Duration `json:"timeout,omitempty"` // backend call timeout, 0 = none
}

// BackendConfig holds the reference task service settings.
type BackendConfig struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Driver string `json:"driver"` // "sqlite" or "file"
	DSN    string `json:"dsn"`    // sqlite database path
	Dir    string `json:"dir"`    // file driver root
}

// ClientConfig holds settings for the CLI and TUI clients.
type ClientConfig struct {
	GatewayURL        string `json:"gateway_url"`
	RefreshSchedule   string `json:"refresh_schedule"` // cron spec, "off" disables
	RollbackOnFailure bool   `json:"rollback_on_failure"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
