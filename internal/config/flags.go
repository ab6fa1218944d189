package config

import "flag"

// Overrides holds command-line settings that win over the config file.
// Zero values leave the file setting in place.
type Overrides struct {
	path      *string
	debug     *bool
	quiet     *bool
	timeScale *float64
	frameRate *float64
	logFile   *string
}

// RegisterFlags adds the shared engine flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Overrides {
	return &Overrides{
		path:      fs.String("config", "", "Engine config file"),
		debug:     fs.Bool("debug", false, "Debug logging"),
		quiet:     fs.Bool("quiet", false, "No console logging"),
		timeScale: fs.Float64("time-scale", 0, "Playback speed multiplier"),
		frameRate: fs.Float64("frame-rate", 0, "Runtime clock frames per second"),
		logFile:   fs.String("log", "", "Log file path"),
	}
}

// Path returns the explicit config path, empty when -config was not given.
func (o *Overrides) Path() string {
	if o == nil {
		return ""
	}
	return *o.path
}

// Apply copies the set flags onto cfg.
func (o *Overrides) Apply(cfg *Config) {
	if o == nil {
		return
	}
	if *o.debug {
		cfg.Logging.Level = "debug"
	}
	if *o.quiet {
		cfg.Logging.Quiet = true
	}
	if *o.timeScale > 0 {
		cfg.Engine.TimeScale = float32(*o.timeScale)
	}
	if *o.frameRate > 0 {
		cfg.Engine.FrameRate = float32(*o.frameRate)
	}
	if *o.logFile != "" {
		cfg.Logging.LogFile = *o.logFile
	}
}
