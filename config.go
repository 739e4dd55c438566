package ecs

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/rotisserie/eris"
)

// Config holds world construction settings. It can be loaded from a TOML
// file with LoadConfig.
type Config struct {
	World    WorldConfig    `toml:"world"`
	Logging  LoggingConfig  `toml:"logging"`
	Snapshot SnapshotConfig `toml:"snapshot"`
}

type WorldConfig struct {
	InitialCapacity int `toml:"initial_capacity"`
	// StrictSerialization makes Save fail on the first value a serializer
	// rejects instead of writing null and logging a warning.
	StrictSerialization bool `toml:"strict_serialization"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type SnapshotConfig struct {
	Format string `toml:"format"` // "json" or "yaml"
	Indent int    `toml:"indent"`
}

const (
	SnapshotFormatJSON = "json"
	SnapshotFormatYAML = "yaml"
)

// DefaultConfig returns the settings used for any zero field.
func DefaultConfig() Config {
	return Config{
		World: WorldConfig{
			InitialCapacity: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Snapshot: SnapshotConfig{
			Format: SnapshotFormatJSON,
			Indent: 2,
		},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, eris.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig decodes TOML data on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, eris.Wrap(err, "parse config")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.World.InitialCapacity < 0 {
		return eris.Errorf("world.initial_capacity must not be negative, got %d", c.World.InitialCapacity)
	}
	switch c.Snapshot.Format {
	case "", SnapshotFormatJSON, SnapshotFormatYAML:
	default:
		return eris.Errorf("snapshot.format must be %q or %q, got %q", SnapshotFormatJSON, SnapshotFormatYAML, c.Snapshot.Format)
	}
	return nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.World.InitialCapacity <= 0 {
		c.World.InitialCapacity = def.World.InitialCapacity
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Snapshot.Format == "" {
		c.Snapshot.Format = def.Snapshot.Format
	}
	if c.Snapshot.Indent < 0 {
		c.Snapshot.Indent = 0
	}
	return c
}
