package config

// This file implements CLI flag parsing and help text. Most knobs live in the
// YAML config file; flags cover the things an operator changes per invocation.
// The config file is located by a pre-scan of the arguments and loaded before
// flag parsing so that flags always win over file values.

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// version is shown in --version and help; override at build time with
// -ldflags "-X .../internal/config.version=...".
var version = "1.0.0-dev"

// Version reports the build version string.
func Version() string { return version }

// ParseFlags loads the YAML config file (if any) into cfg and then parses
// os.Args on top of it. On --help or --version it prints and exits.
func ParseFlags(cfg *Config) error {
	configPath, explicit := configPathFromArgs(os.Args[1:])
	if configPath == "" {
		configPath = filepath.Join(cfg.Paths.BaseDir, "sunrise.yaml")
	}
	if err := LoadFile(cfg, configPath, explicit); err != nil {
		return err
	}

	fs := flag.NewFlagSet("sunrise-timelapse", flag.ContinueOnError)
	fs.Usage = func() { printUsage(fs) }

	var (
		showHelp    bool
		showVersion bool
		noColor     bool
		forceColor  bool
		noCleanup   bool
		colorMode   string
	)

	fs.String("config", "", "Path to YAML config file (default: <base_dir>/sunrise.yaml)")
	fs.BoolVar(&cfg.RunNow, "now", false, "Skip the wait-for-sunrise phase and capture immediately")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Log the plan without running capture, transcode or publish")
	fs.BoolVar(&cfg.SkipPost, "no-post", false, "Capture and transcode but do not publish")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.IntVar(&cfg.Cleanup.KeepDays, "keep-days", cfg.Cleanup.KeepDays, "Retention window in days for raw/final artifacts")
	fs.BoolVar(&noCleanup, "no-cleanup", false, "Disable the retention sweep")
	fs.StringVar(&colorMode, "color", "", "Color output: auto | always | never")
	fs.BoolVar(&noColor, "no-color", false, "Same as --color=never")
	fs.BoolVar(&forceColor, "force-color", false, "Same as --color=always")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&showHelp, "help", false, "Show this help")
	fs.BoolVar(&showHelp, "h", false, "Same as --help")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		os.Exit(0)
	}
	if showVersion {
		fmt.Fprintln(os.Stdout, "sunrise-timelapse v"+version)
		os.Exit(0)
	}

	if noCleanup {
		cfg.Cleanup.AutoCleanup = false
	}
	switch {
	case noColor:
		cfg.ColorMode = ColorNever
	case forceColor:
		cfg.ColorMode = ColorAlways
	case colorMode != "":
		cfg.ColorMode = ColorMode(colorMode)
	}

	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return nil
}

// configPathFromArgs pre-scans raw arguments for --config/-config in both
// "--config path" and "--config=path" forms.
func configPathFromArgs(args []string) (path string, explicit bool) {
	for i, arg := range args {
		trimmed := strings.TrimLeft(arg, "-")
		switch {
		case trimmed == "config":
			if i+1 < len(args) {
				return args[i+1], true
			}
		case strings.HasPrefix(trimmed, "config="):
			return strings.TrimPrefix(trimmed, "config="), true
		}
	}
	return "", false
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `sunrise-timelapse v%s - daily sunrise capture, transcode and Bluesky publish

Usage:
  sunrise-timelapse [options]

Credentials are read from the environment:
  BLUESKY_HANDLE, BLUESKY_PASSWORD   Bluesky account (app password)
  GROQ_API_KEY                       Optional; enables AI weather descriptions

Options:
`, version)
	fs.PrintDefaults()
}
