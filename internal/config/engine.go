package config

import (
	"errors"
	"fmt"
)

// ErrInvalidEngine is returned for engine settings that cannot drive a runtime.
var ErrInvalidEngine = errors.New("invalid engine config")

// normalize fills zero values left by a partial file and rejects negatives.
func (e *EngineConfig) normalize() error {
	def := Default().Engine
	if e.FrameRate == 0 {
		e.FrameRate = def.FrameRate
	}
	if e.IKIterationLimit == 0 {
		e.IKIterationLimit = def.IKIterationLimit
	}
	if e.SearchWindow == 0 {
		e.SearchWindow = def.SearchWindow
	}
	switch {
	case e.FrameRate < 0:
		return fmt.Errorf("frame_rate %v: %w", e.FrameRate, ErrInvalidEngine)
	case e.TimeScale < 0:
		return fmt.Errorf("time_scale %v: %w", e.TimeScale, ErrInvalidEngine)
	case e.IKIterationLimit < 0:
		return fmt.Errorf("ik_iteration_limit %d: %w", e.IKIterationLimit, ErrInvalidEngine)
	case e.SearchWindow < 0:
		return fmt.Errorf("search_window %d: %w", e.SearchWindow, ErrInvalidEngine)
	}
	return nil
}

// ErrInvalidLogging is returned for unknown log levels or formats.
var ErrInvalidLogging = errors.New("invalid logging config")

func (l *LoggingConfig) validate() error {
	switch l.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level %q: %w", l.Level, ErrInvalidLogging)
	}
	switch l.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("format %q: %w", l.Format, ErrInvalidLogging)
	}
	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		return fmt.Errorf("negative rotation setting: %w", ErrInvalidLogging)
	}
	return nil
}
