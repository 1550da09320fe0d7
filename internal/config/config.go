package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk configuration of the levelkv command. The option
// tables are kept loosely typed and validated by the kv package.
type Config struct {
	DB      DBConfig       `toml:"db"`
	Options map[string]any `toml:"options"`
	Read    map[string]any `toml:"read"`
	Write   map[string]any `toml:"write"`
	Log     LogConfig      `toml:"log"`
}

type DBConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		DB: DBConfig{
			Path: "~/.levelkv/data",
		},
		Options: map[string]any{},
		Read:    map[string]any{},
		Write:   map[string]any{},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a TOML config file and returns the parsed Config.
// If path is empty, the default location is tried and defaults are returned
// when no file is there.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = ExpandHome("~/.levelkv/config.toml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg.DB.Path = ExpandHome(cfg.DB.Path)
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing config: unknown key %q", undecoded[0].String())
	}

	cfg.DB.Path = ExpandHome(cfg.DB.Path)
	return cfg, nil
}

// ExpandHome resolves a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
