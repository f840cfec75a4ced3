package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/notewire/internal/core/observability/log"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "wss://sync.notewire.app/v1", cfg.Backend.URL)
	assert.Equal(t, 2*time.Second, cfg.Sync.NoteDebounceWindow)
	assert.Equal(t, 20*time.Millisecond, cfg.Sync.TagDebounceWindow)
	assert.Equal(t, 10*time.Millisecond, cfg.Sync.TouchDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.RevisionFetchDelay)
	assert.Equal(t, 30*time.Second, cfg.Session.MonitorInterval)
	assert.False(t, cfg.Session.CreateWelcomeNote)
	assert.Equal(t, log.LevelInfo, cfg.Level())
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
backend:
  url: quic://sync.internal:7844
  username: user@example.com
sync:
  note_debounce_window: 500ms
session:
  create_welcome_note: true
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "quic://sync.internal:7844", cfg.Backend.URL)
	assert.Equal(t, "user@example.com", cfg.Backend.Username)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.NoteDebounceWindow)
	assert.Equal(t, 20*time.Millisecond, cfg.Sync.TagDebounceWindow)
	assert.True(t, cfg.Session.CreateWelcomeNote)
	assert.Equal(t, log.LevelDebug, cfg.Level())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEngineConfigMapping(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	ec := cfg.EngineConfig()
	assert.Equal(t, cfg.Sync.NoteDebounceWindow, ec.NoteDebounceWindow)
	assert.Equal(t, cfg.Sync.TagDebounceWindow, ec.TagDebounceWindow)
	assert.Equal(t, cfg.Sync.TouchDelay, ec.TouchDelay)
	assert.Equal(t, cfg.Sync.RevisionFetchDelay, ec.RevisionFetchDelay)
}

func TestLevelMapping(t *testing.T) {
	cases := map[string]log.Level{
		"debug":   log.LevelDebug,
		"info":    log.LevelInfo,
		"warn":    log.LevelWarn,
		"error":   log.LevelError,
		"unknown": log.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, Config{LogLevel: in}.Level(), "level %q", in)
	}
}
