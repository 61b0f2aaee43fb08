package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/groom/pkg/groom/logging"
)

func TestDecodeDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Workers)
	assert.False(t, cfg.FollowSymlinks)
	assert.Equal(t, DefaultSubstring, cfg.Substring)
	assert.Equal(t, ActionStrip, cfg.Action)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultProgressInterval, cfg.ProgressInterval)
	assert.Equal(t, DefaultExcludeDirs, cfg.Exclude.Dirs)
	assert.Equal(t, DefaultExcludeFiles, cfg.Exclude.Files)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, DefaultOutput, cfg.Output)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groom.yaml")
	content := `
workers: 6
follow_symlinks: true
substring: "_copy"
poll_interval: 500ms
exclude:
  dirs: [".git", "node_modules"]
  files: ["Thumbs.db"]
journal:
  enabled: true
  path: /tmp/groom-journal
logging:
  level: debug
  rotation:
    max_size: 10MiB
    max_backups: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Workers)
	assert.True(t, cfg.FollowSymlinks)
	assert.Equal(t, "_copy", cfg.Substring)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, []string{".git", "node_modules"}, cfg.Exclude.Dirs)
	assert.Equal(t, []string{"Thumbs.db"}, cfg.Exclude.Files)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "/tmp/groom-journal", cfg.JournalPath())

	rc := cfg.Rotation()
	assert.EqualValues(t, 10*1024*1024, rc.MaxSize)
	assert.Equal(t, 2, rc.MaxBackups)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("GROOM_WORKERS", "3")
	t.Setenv("GROOM_SUBSTRING", "__")
	t.Setenv("GROOM_LOGGING_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "__", cfg.Substring)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		v := viper.New()
		SetDefaults(v)
		cfg, err := Decode(v)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"empty substring", func(c *Config) { c.Substring = "" }},
		{"unknown action", func(c *Config) { c.Action = "delete" }},
		{"chown without maps", func(c *Config) { c.Action = ActionChown }},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"negative progress interval", func(c *Config) { c.ProgressInterval = -time.Second }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad max size", func(c *Config) { c.Logging.Rotation.MaxSize = "lots" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := base()
	cfg.Action = ActionChown
	cfg.Owner.UIDs = []string{"1000:2000"}
	assert.NoError(t, cfg.Validate())
}

func TestRotationDefaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, logging.DefaultRotationConfig(), cfg.Rotation())
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	written, err := WriteDefault(path)
	require.NoError(t, err)
	assert.True(t, written)

	cfg, err := Load(path)
	require.NoError(t, err, "default config must load cleanly")
	assert.Equal(t, DefaultSubstring, cfg.Substring)
	assert.Equal(t, DefaultExcludeDirs, cfg.Exclude.Dirs)

	written, err = WriteDefault(path)
	require.NoError(t, err)
	assert.False(t, written)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/journal")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "journal"), got)

	got, err = ExpandPath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)
}
