// Package config handles engine configuration loading and management.
package config

// Config holds all runtime settings.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig holds evaluation and playback settings.
type EngineConfig struct {
	FrameRate        float32 `yaml:"frame_rate"`         // Frames per second of the runtime clock
	TimeScale        float32 `yaml:"time_scale"`         // Playback speed multiplier
	IKIterationLimit int     `yaml:"ik_iteration_limit"` // Hard cap on any IK iteration count
	SearchWindow     int     `yaml:"search_window"`      // Incremental frame search window, in frames
	MorphWeightFloor bool    `yaml:"morph_weight_floor"` // Clamp sampled morph weights to >= 1e-16
	AutoPlay         bool    `yaml:"auto_play"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn or error
	Format     string `yaml:"format"` // console or json
	Quiet      bool   `yaml:"quiet"`  // Disable console output
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"` // Rotate after this many megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			FrameRate:        30,
			TimeScale:        1,
			IKIterationLimit: 256,
			SearchWindow:     6,
			MorphWeightFloor: false,
			AutoPlay:         false,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}
