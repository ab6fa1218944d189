// Package logger provides structured logging using zap.
//
// The global logger is a no-op until Init or Use is called, so engine
// packages can log binding diagnostics without any host setup.
package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Faultbox/mmd-runtime/internal/config"
)

// Log is the global logger instance.
var Log = zap.NewNop()

// Sugar is the sugared logger for convenient logging.
var Sugar = Log.Sugar()

// FileConfig describes the rotating log file. An empty Path disables it.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Options selects the sinks and encoding of a logger built by New.
type Options struct {
	Level   string
	Format  string    // "console" or "json"
	Console io.Writer // nil disables console output
	File    FileConfig
}

// FromConfig maps the logging section of the engine config to Options.
// Console output goes to stderr so command output on stdout stays clean.
func FromConfig(c config.LoggingConfig) Options {
	opts := Options{
		Level:  c.Level,
		Format: c.Format,
		File: FileConfig{
			Path:       c.LogFile,
			MaxSizeMB:  c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAgeDays: c.MaxAgeDays,
			Compress:   c.Compress,
		},
	}
	if !c.Quiet {
		opts.Console = os.Stderr
	}
	return opts
}

// Init builds a logger from the config and installs it globally.
func Init(c config.LoggingConfig) error {
	l, err := New(FromConfig(c))
	if err != nil {
		return err
	}
	Use(l)
	return nil
}

// New builds a logger teeing to every configured sink. With no sinks the
// result is a no-op logger.
func New(opts Options) (*zap.Logger, error) {
	lvl, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var cores []zapcore.Core
	if opts.Console != nil {
		enc, err := encoder(opts.Format, true)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(opts.Console), lvl))
	}
	if opts.File.Path != "" {
		enc, err := encoder(opts.Format, false)
		if err != nil {
			return nil, err
		}
		w := &lumberjack.Logger{
			Filename:   opts.File.Path,
			MaxSize:    opts.File.MaxSizeMB,
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAgeDays,
			Compress:   opts.File.Compress,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// encoder returns the entry encoder for a format. Terminal output gets
// short timestamps and colored levels; files get ISO8601 and plain levels.
func encoder(format string, terminal bool) (zapcore.Encoder, error) {
	cfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		CallerKey:        "caller",
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
	switch format {
	case "", "console":
		if terminal {
			cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
			cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		return zapcore.NewConsoleEncoder(cfg), nil
	case "json":
		return zapcore.NewJSONEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Use replaces the global logger. A nil logger restores the no-op logger.
func Use(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	Log = l
	Sugar = l.Sugar()
}

// Named returns a child of the global logger scoped to a component.
func Named(component string) *zap.Logger {
	return Log.Named(component)
}

// parseLevel accepts zap level names. Empty means info.
func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return lvl, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}

func Debug(msg string, fields ...zap.Field) { Log.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Log.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Log.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Log.Error(msg, fields...) }

// Fatal logs and exits the process.
func Fatal(msg string, fields ...zap.Field) { Log.Fatal(msg, fields...) }
