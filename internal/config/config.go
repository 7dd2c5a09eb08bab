// Package config holds runtime configuration: defaults, optional YAML config
// file, CLI flag parsing, and validation. Defaults match the behavior the
// pipeline shipped with on the Pi Zero 2 W (Southampton, UK deployment).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Location identifies the capture site for sunrise computation.
type Location struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Timezone  string  `yaml:"timezone"` // IANA name, e.g. "Europe/London".
}

// Capture holds libcamera-vid / libcamera-still parameters.
type Capture struct {
	DurationMinutes   int     `yaml:"duration_minutes"`      // Default: 75.
	Framerate         int     `yaml:"framerate"`             // Default: 1 fps.
	Width             int     `yaml:"width"`                 // Default: 800.
	Height            int     `yaml:"height"`                // Default: 800.
	EV                float64 `yaml:"ev"`                    // Exposure bias. Default: 0.5.
	LeadMinutes       int     `yaml:"lead_minutes"`          // Start this long before sunrise. Default: 45.
	PhotoQuality      int     `yaml:"photo_quality"`         // JPEG quality for the analysis still. Default: 90.
	PhotoDelaySeconds int     `yaml:"photo_delay_seconds"`   // Auto-exposure settle time. Default: 2.
	MinVideoBytes     int64   `yaml:"min_video_bytes"`       // Reject smaller raw captures. Default: 1000.
	MinPhotoBytes     int64   `yaml:"min_photo_bytes"`       // Reject smaller stills. Default: 10000.
	GraceSeconds      int     `yaml:"grace_seconds"`         // Wall-clock allowance past the capture duration. Default: 120.
	PhotoTimeoutSec   int     `yaml:"photo_timeout_seconds"` // Default: 30.
}

// Video holds transcode parameters for the final timelapse.
type Video struct {
	OutputSeconds     int     `yaml:"output_seconds"`     // Default: 30.
	CRF               int     `yaml:"crf"`                // Default: 23.
	Preset            string  `yaml:"preset"`             // Default: "ultrafast" (Pi Zero friendly).
	TimeoutMinutes    int     `yaml:"timeout_minutes"`    // Default: 60.
	DurationTolerance float64 `yaml:"duration_tolerance"` // Fraction of OutputSeconds. Default: 0.5.
}

// Paths holds the working directory layout. Filenames under RawDir and
// VideoDir embed a YYYY-MM-DD date token consumed by the retention sweeper.
type Paths struct {
	BaseDir  string `yaml:"base_dir"`
	RawDir   string `yaml:"raw_dir"`
	VideoDir string `yaml:"video_dir"`
	LogDir   string `yaml:"log_dir"`
}

// Cleanup controls the retention sweeper.
type Cleanup struct {
	KeepDays    int  `yaml:"keep_days"`    // Default: 7.
	AutoCleanup bool `yaml:"auto_cleanup"` // Default: true.
}

// Bluesky holds publishing-service settings. Handle and AppPassword are
// normally injected via BLUESKY_HANDLE / BLUESKY_PASSWORD rather than the
// config file so credentials never land on disk.
type Bluesky struct {
	Handle             string `yaml:"handle"`
	AppPassword        string `yaml:"-"`
	Server             string `yaml:"server"`                 // Default: "https://bsky.social".
	VideoServer        string `yaml:"video_server"`           // Default: "https://video.bsky.app".
	PLCDirectory       string `yaml:"plc_directory"`          // Default: "https://plc.directory".
	MaxUploadMB        int64  `yaml:"max_upload_mb"`          // Service limit. Default: 50.
	ResolveRetries     int    `yaml:"resolve_retries"`        // PDS lookup attempts. Default: 3.
	PollIntervalSec    int    `yaml:"poll_interval_seconds"`  // Default: 10.
	PollCeilingMinutes int    `yaml:"poll_ceiling_minutes"`   // Default: 5.
	HTTPTimeoutSec     int    `yaml:"http_timeout_seconds"`   // Default: 30.
	UploadTimeoutSec   int    `yaml:"upload_timeout_seconds"` // Default: 600.
	AltText            string `yaml:"alt_text"`
}

// Describe holds settings for the vision-model weather description.
type Describe struct {
	APIKey         string  `yaml:"-"`        // From GROQ_API_KEY.
	Endpoint       string  `yaml:"endpoint"` // Default: Groq chat completions.
	Model          string  `yaml:"model"`
	Prompt         string  `yaml:"prompt"`
	Fallback       string  `yaml:"fallback"`        // Used whenever generation fails. Never empty.
	MaxTokens      int     `yaml:"max_tokens"`      // Default: 50.
	Temperature    float64 `yaml:"temperature"`     // Default: 0.3.
	TimeoutSeconds int     `yaml:"timeout_seconds"` // Default: 30.
}

// Config holds all runtime settings. It is populated by [DefaultConfig],
// optionally overlaid by a YAML file and environment secrets, then mutated by
// [ParseFlags] before being passed (by pointer) to packages that need it.
type Config struct {
	Location Location `yaml:"location"`
	Capture  Capture  `yaml:"capture"`
	Video    Video    `yaml:"video"`
	Paths    Paths    `yaml:"paths"`
	Cleanup  Cleanup  `yaml:"cleanup"`
	Bluesky  Bluesky  `yaml:"bluesky"`
	Describe Describe `yaml:"describe"`

	// Schedule fallback when the astronomical calculation fails.
	FallbackStartHour   int `yaml:"fallback_start_hour"`   // Default: 7.
	FallbackStartMinute int `yaml:"fallback_start_minute"` // Default: 0.

	// Behavior flags (CLI only, not persisted).
	RunNow    bool      `yaml:"-"` // Skip the wait-for-sunrise phase.
	DryRun    bool      `yaml:"-"` // Plan and log, run no external processes.
	SkipPost  bool      `yaml:"-"` // Capture and transcode but do not publish.
	CheckOnly bool      `yaml:"-"` // Run --check diagnostics and exit.
	Verbose   bool      `yaml:"-"`
	ColorMode ColorMode `yaml:"-"`
	LogToFile bool      `yaml:"log_to_file"` // Per-day log under Paths.LogDir. Default: true.
}

// DefaultConfig returns a Config with all defaults matching the original
// deployment. Used as the base before the config file and CLI overrides.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, "sunrise_timelapse")

	return Config{
		Location: Location{
			Name:      "Southampton",
			Latitude:  50.9097,
			Longitude: -1.4044,
			Timezone:  "Europe/London",
		},
		Capture: Capture{
			DurationMinutes:   75,
			Framerate:         1,
			Width:             800,
			Height:            800,
			EV:                0.5,
			LeadMinutes:       45,
			PhotoQuality:      90,
			PhotoDelaySeconds: 2,
			MinVideoBytes:     1000,
			MinPhotoBytes:     10000,
			GraceSeconds:      120,
			PhotoTimeoutSec:   30,
		},
		Video: Video{
			OutputSeconds:     30,
			CRF:               23,
			Preset:            "ultrafast",
			TimeoutMinutes:    60,
			DurationTolerance: 0.5,
		},
		Paths: Paths{
			BaseDir:  base,
			RawDir:   filepath.Join(base, "raw_videos"),
			VideoDir: filepath.Join(base, "videos"),
			LogDir:   filepath.Join(base, "logs"),
		},
		Cleanup: Cleanup{
			KeepDays:    7,
			AutoCleanup: true,
		},
		Bluesky: Bluesky{
			Server:             "https://bsky.social",
			VideoServer:        "https://video.bsky.app",
			PLCDirectory:       "https://plc.directory",
			MaxUploadMB:        50,
			ResolveRetries:     3,
			PollIntervalSec:    10,
			PollCeilingMinutes: 5,
			HTTPTimeoutSec:     30,
			UploadTimeoutSec:   600,
			AltText:            "Southampton sunrise timelapse",
		},
		Describe: Describe{
			Endpoint: "https://api.groq.com/openai/v1/chat/completions",
			Model:    "meta-llama/llama-4-scout-17b-16e-instruct",
			Prompt: "Describe the weather in this image of dawn in Southampton in less than " +
				"250 characters. Start the text with: 'Dawn in Southampton and the weather is'",
			Fallback:       "Dawn in Southampton. Again.",
			MaxTokens:      50,
			Temperature:    0.3,
			TimeoutSeconds: 30,
		},
		FallbackStartHour:   7,
		FallbackStartMinute: 0,
		ColorMode:           ColorAuto,
		LogToFile:           true,
	}
}

// LoadSecrets pulls credentials from the environment. Missing values are not
// an error here; Validate and the publish stage decide what is required.
func (c *Config) LoadSecrets() {
	if v := os.Getenv("BLUESKY_HANDLE"); v != "" {
		c.Bluesky.Handle = v
	}
	if v := os.Getenv("BLUESKY_PASSWORD"); v != "" {
		c.Bluesky.AppPassword = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		c.Describe.APIKey = v
	}
}

// Validate checks enum fields and the capture/video numbers the pipeline
// depends on. Zero-valued durations would otherwise produce degenerate
// ffmpeg speed-up factors.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.Capture.DurationMinutes <= 0 {
		return errors.New("capture duration must be positive")
	}
	if c.Capture.Framerate <= 0 {
		return errors.New("capture framerate must be positive")
	}
	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		return errors.New("capture resolution must be positive")
	}
	if c.Video.OutputSeconds <= 0 {
		return errors.New("video output duration must be positive")
	}
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		return fmt.Errorf("invalid CRF %d (libx264 accepts 0-51)", c.Video.CRF)
	}
	if c.Cleanup.KeepDays < 1 {
		return errors.New("keep-days must be at least 1")
	}
	if _, err := time.LoadLocation(c.Location.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Location.Timezone, err)
	}

	if c.CheckOnly {
		return nil
	}
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		return errors.New("base directory must not be empty")
	}
	return nil
}

// PostConfigured reports whether Bluesky credentials are present. The
// pipeline skips publishing (with a warning) when they are not, matching the
// unattended-cron deployment where a misconfigured secret should not cost the
// morning's capture.
func (c *Config) PostConfigured() bool {
	return c.Bluesky.Handle != "" && c.Bluesky.AppPassword != ""
}

// EnsureDirs creates the working directory layout.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.BaseDir, c.Paths.RawDir, c.Paths.VideoDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
