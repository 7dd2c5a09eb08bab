package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capture.DurationMinutes != 75 {
		t.Errorf("capture duration = %d, want 75", cfg.Capture.DurationMinutes)
	}
	if cfg.Capture.LeadMinutes != 45 {
		t.Errorf("lead = %d, want 45", cfg.Capture.LeadMinutes)
	}
	if cfg.Video.OutputSeconds != 30 {
		t.Errorf("output seconds = %d, want 30", cfg.Video.OutputSeconds)
	}
	if cfg.FallbackStartHour != 7 || cfg.FallbackStartMinute != 0 {
		t.Errorf("fallback = %02d:%02d, want 07:00", cfg.FallbackStartHour, cfg.FallbackStartMinute)
	}
	if cfg.Cleanup.KeepDays != 7 || !cfg.Cleanup.AutoCleanup {
		t.Errorf("cleanup = %+v", cfg.Cleanup)
	}
	if cfg.Bluesky.MaxUploadMB != 50 {
		t.Errorf("max upload = %dMB, want 50", cfg.Bluesky.MaxUploadMB)
	}
	if cfg.Describe.Fallback == "" {
		t.Error("describe fallback must never be empty")
	}
	if cfg.ColorMode != ColorAuto {
		t.Errorf("color mode = %s, want auto", cfg.ColorMode)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad color mode", func(c *Config) { c.ColorMode = "rainbow" }, "color mode"},
		{"zero capture duration", func(c *Config) { c.Capture.DurationMinutes = 0 }, "duration"},
		{"negative framerate", func(c *Config) { c.Capture.Framerate = -1 }, "framerate"},
		{"zero width", func(c *Config) { c.Capture.Width = 0 }, "resolution"},
		{"zero output seconds", func(c *Config) { c.Video.OutputSeconds = 0 }, "output duration"},
		{"crf too high", func(c *Config) { c.Video.CRF = 52 }, "CRF"},
		{"keep-days zero", func(c *Config) { c.Cleanup.KeepDays = 0 }, "keep-days"},
		{"bad timezone", func(c *Config) { c.Location.Timezone = "Mars/Olympus" }, "timezone"},
		{"empty base dir", func(c *Config) { c.Paths.BaseDir = "  " }, "base directory"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()

			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_CheckOnlySkipsPathChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckOnly = true
	cfg.Paths.BaseDir = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("--check must not require paths: %v", err)
	}
}

func TestLoadSecrets(t *testing.T) {
	t.Setenv("BLUESKY_HANDLE", "user.bsky.social")
	t.Setenv("BLUESKY_PASSWORD", "app-pass")
	t.Setenv("GROQ_API_KEY", "gk-123")

	cfg := DefaultConfig()
	cfg.LoadSecrets()

	if cfg.Bluesky.Handle != "user.bsky.social" || cfg.Bluesky.AppPassword != "app-pass" {
		t.Errorf("bluesky credentials not loaded: %+v", cfg.Bluesky)
	}
	if cfg.Describe.APIKey != "gk-123" {
		t.Errorf("groq key not loaded")
	}
}

func TestPostConfigured(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PostConfigured() {
		t.Error("no credentials should mean not configured")
	}
	cfg.Bluesky.Handle = "user.bsky.social"
	if cfg.PostConfigured() {
		t.Error("handle alone is not enough")
	}
	cfg.Bluesky.AppPassword = "app-pass"
	if !cfg.PostConfigured() {
		t.Error("handle + password should be configured")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sunrise.yaml")
	yaml := `
location:
  name: Reykjavik
  latitude: 64.1466
  longitude: -21.9426
  timezone: Atlantic/Reykjavik
capture:
  duration_minutes: 90
cleanup:
  keep_days: 14
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(&cfg, path, true); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Location.Name != "Reykjavik" || cfg.Location.Timezone != "Atlantic/Reykjavik" {
		t.Errorf("location not overlaid: %+v", cfg.Location)
	}
	if cfg.Capture.DurationMinutes != 90 {
		t.Errorf("duration = %d, want 90", cfg.Capture.DurationMinutes)
	}
	if cfg.Cleanup.KeepDays != 14 {
		t.Errorf("keep days = %d, want 14", cfg.Cleanup.KeepDays)
	}
	// Untouched keys keep their defaults.
	if cfg.Capture.Framerate != 1 || cfg.Video.OutputSeconds != 30 {
		t.Error("unrelated defaults were clobbered")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg := DefaultConfig()
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	if err := LoadFile(&cfg, missing, false); err != nil {
		t.Errorf("implicit missing file must be ignored: %v", err)
	}
	if err := LoadFile(&cfg, missing, true); err == nil {
		t.Error("explicit missing file must error")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("location: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(&cfg, path, false); err == nil {
		t.Error("malformed yaml must error")
	}
}
