// mmdtool inspects and evaluates MMD scenes without a renderer.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/mmd-runtime/internal/config"
	"github.com/Faultbox/mmd-runtime/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "eval":
		cmdEval(args)
	case "validate", "check":
		cmdValidate(args)
	case "pose":
		cmdPose(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mmdtool - MMD scene inspector

Usage:
  mmdtool <command> [options] <scene.yaml>

Commands:
  info <scene.yaml>                       Show bones, morphs, tracks and spans
  eval -frame N [-bone name] <scene.yaml> Evaluate the pose at a frame
  validate <scene.yaml>                   Validate every fixture of the scene
  pose -frame N [-o out.vpd] <scene.yaml> Save the pose at a frame as VPD
  config [-save | -o path]                Print or write the effective config

Common options:
  -config path      Engine config file
  -debug            Debug logging
  -quiet            No console logging
  -log path         Also log to a rotating file
  -time-scale x     Playback speed multiplier
  -frame-rate fps   Runtime clock rate

Examples:
  mmdtool info scene.yaml
  mmdtool eval -frame 15 -bone 左ひざ scene.yaml
  mmdtool validate scene.yaml
  mmdtool pose -frame 30 -o kneel.vpd scene.yaml
  mmdtool config -debug -o mmd-runtime.yaml`)
}

// setup parses the common flags, loads config and starts logging.
func setup(fs *flag.FlagSet, args []string) *config.Config {
	overrides := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: mmdtool %s <scene.yaml>\n", fs.Name())
		os.Exit(1)
	}
	return cfg
}

func loadScene(path string) *Scene {
	scene, err := LoadScene(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return scene
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	scene := loadScene(fs.Arg(0))
	l, err := scene.Build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printInfo(os.Stdout, scene, l)
}

func cmdEval(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	frame := fs.Float64("frame", 0, "Frame to evaluate")
	bone := fs.String("bone", "", "Only print this bone")
	cfg := setup(fs, args)
	defer logger.Sync()

	scene := loadScene(fs.Arg(0))
	l, err := scene.Build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("evaluating", zap.String("scene", scene.Name), zap.Float64("frame", *frame))
	l.Runtime.Seek(float32(*frame), true)

	if err := printPose(os.Stdout, l, *bone); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	setup(fs, args)
	defer logger.Sync()

	scene := loadScene(fs.Arg(0))
	errs := multierr.Errors(scene.Validate())
	if len(errs) == 0 {
		fmt.Printf("%s: ok\n", fs.Arg(0))
		return
	}

	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	sort.Strings(messages)
	for _, msg := range messages {
		fmt.Fprintf(os.Stderr, "  %s\n", msg)
	}
	fmt.Fprintf(os.Stderr, "\n(%d problems found)\n", len(errs))
	os.Exit(1)
}

func cmdPose(args []string) {
	fs := flag.NewFlagSet("pose", flag.ExitOnError)
	frame := fs.Float64("frame", 0, "Frame to capture")
	out := fs.String("o", "", "Output file (default stdout)")
	cfg := setup(fs, args)
	defer logger.Sync()

	scene := loadScene(fs.Arg(0))
	l, err := scene.Build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	l.Runtime.Seek(float32(*frame), true)
	pose := capturePose(l.Model, l.Meta.Name+".osm")
	logger.Info("captured pose",
		zap.Float64("frame", *frame),
		zap.Int("bones", len(pose.Bones)),
		zap.Int("morphs", len(pose.Morphs)))

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	if err := pose.Encode(w); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.Bool("save", false, "Write to the user config directory")
	out := fs.String("o", "", "Write to this path")
	overrides := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *out != "":
		err = cfg.SaveTo(*out)
		if err == nil {
			fmt.Printf("Wrote %s\n", *out)
		}
	case *save:
		var path string
		path, err = cfg.Save()
		if err == nil {
			fmt.Printf("Wrote %s\n", path)
		}
	default:
		err = cfg.Encode(os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
