// Package config loads daemon configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/notewire/notewire/internal/core/observability/log"
	"github.com/notewire/notewire/internal/core/reconcile"
)

// Config is the full daemon configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Sync    SyncConfig    `yaml:"sync"`
	Session SessionConfig `yaml:"session"`

	LogLevel string `yaml:"log_level" env:"NOTEWIRE_LOG_LEVEL" env-default:"info"`
}

// BackendConfig locates and authenticates against the sync backend.
type BackendConfig struct {
	// URL selects the transport by scheme: ws, wss or quic.
	URL         string `yaml:"url" env:"NOTEWIRE_BACKEND_URL" env-default:"wss://sync.notewire.app/v1"`
	Token       string `yaml:"token" env:"NOTEWIRE_TOKEN"`
	Username    string `yaml:"username" env:"NOTEWIRE_USERNAME"`
	InsecureTLS bool   `yaml:"insecure_tls" env:"NOTEWIRE_INSECURE_TLS" env-default:"false"`
}

// SyncConfig holds the engine timing windows.
type SyncConfig struct {
	NoteDebounceWindow time.Duration `yaml:"note_debounce_window" env:"NOTEWIRE_NOTE_DEBOUNCE" env-default:"2s"`
	TagDebounceWindow  time.Duration `yaml:"tag_debounce_window" env:"NOTEWIRE_TAG_DEBOUNCE" env-default:"20ms"`
	TouchDelay         time.Duration `yaml:"touch_delay" env:"NOTEWIRE_TOUCH_DELAY" env-default:"10ms"`
	RevisionFetchDelay time.Duration `yaml:"revision_fetch_delay" env:"NOTEWIRE_REVISION_DELAY" env-default:"250ms"`
}

// SessionConfig holds session bootstrap options.
type SessionConfig struct {
	CreateWelcomeNote bool          `yaml:"create_welcome_note" env:"NOTEWIRE_WELCOME_NOTE" env-default:"false"`
	MonitorInterval   time.Duration `yaml:"monitor_interval" env:"NOTEWIRE_MONITOR_INTERVAL" env-default:"30s"`
}

// Load reads configuration from path, or from the environment alone when
// path is empty.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("read env config: %w", err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

// EngineConfig converts the sync section into engine timing windows.
func (c Config) EngineConfig() reconcile.Config {
	return reconcile.Config{
		NoteDebounceWindow: c.Sync.NoteDebounceWindow,
		TagDebounceWindow:  c.Sync.TagDebounceWindow,
		TouchDelay:         c.Sync.TouchDelay,
		RevisionFetchDelay: c.Sync.RevisionFetchDelay,
	}
}

// Level maps the configured log level string onto the log facade's levels.
func (c Config) Level() log.Level {
	switch c.LogLevel {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}
