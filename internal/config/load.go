package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = "mmd-runtime.yaml"

// Load resolves the config as defaults < file < flags. The file is the
// -config path when given, otherwise the first standard location found.
func Load(o *Overrides) (*Config, error) {
	cfg, err := LoadFile(o.Path())
	if err != nil {
		return nil, err
	}
	o.Apply(cfg)
	if err := cfg.Logging.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads defaults overridden by a single file, ignoring flags.
// An empty path falls back to the standard locations; a missing explicit
// path is an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return cfg, nil
	}
	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing candidate path.
func findConfigFile() string {
	for _, path := range []string{FileName, filepath.Join(ConfigDir(), "config.yaml")} {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user config directory for the current OS.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "MMDRuntime")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "MMDRuntime")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mmd-runtime")
	}
	return filepath.Join(home, ".config", "mmd-runtime")
}

// loadFromFile merges a YAML file over cfg and normalizes the result.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if err := cfg.Engine.normalize(); err != nil {
		return err
	}
	return cfg.Logging.validate()
}
