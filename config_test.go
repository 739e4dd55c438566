package ecs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.toml")
	data := []byte(`
[world]
initial_capacity = 64
strict_serialization = true

[snapshot]
format = "yaml"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.World.InitialCapacity)
	assert.True(t, cfg.World.StrictSerialization)
	assert.Equal(t, SnapshotFormatYAML, cfg.Snapshot.Format)
	assert.Equal(t, 2, cfg.Snapshot.Indent, "unset keys keep their defaults")
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[world\n"},
		{"negative capacity", "[world]\ninitial_capacity = -1\n"},
		{"unknown format", "[snapshot]\nformat = \"xml\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestZeroConfigGetsDefaults(t *testing.T) {
	w := NewWorld(Config{})
	cfg := w.Config()
	assert.Equal(t, DefaultConfig().World.InitialCapacity, cfg.World.InitialCapacity)
	assert.Equal(t, SnapshotFormatJSON, cfg.Snapshot.Format)
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		log, err := NewLogger(LoggingConfig{Level: "debug", Format: format})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(-1), "debug should be enabled")
	}
	log, err := NewLogger(LoggingConfig{Level: "nonsense"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(-1), "unknown levels fall back to info")
}
