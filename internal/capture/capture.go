// Package capture drives libcamera-vid and libcamera-still through the
// process runner and validates their outputs before anything downstream is
// allowed to consume them. The camera is an exclusive resource: operations
// here must never run concurrently.
package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ab604/pi-sunrise-timelapse/internal/config"
	"github.com/ab604/pi-sunrise-timelapse/internal/proc"
)

// Camera captures the raw sunrise video and the analysis still.
type Camera struct {
	cfg    *config.Config
	runner proc.Runner
}

// NewCamera returns a Camera using runner for all process invocations.
func NewCamera(cfg *config.Config, runner proc.Runner) *Camera {
	return &Camera{cfg: cfg, runner: runner}
}

// RawVideoPath returns the dated raw capture path for day.
func RawVideoPath(cfg *config.Config, day time.Time) string {
	name := fmt.Sprintf("sunrise_raw_%s.h264", day.Format("2006-01-02"))
	return filepath.Join(cfg.Paths.RawDir, name)
}

// PhotoPath returns the dated analysis photo path for day.
func PhotoPath(cfg *config.Config, day time.Time) string {
	name := fmt.Sprintf("analysis_photo_%s.jpg", day.Format("2006-01-02"))
	return filepath.Join(cfg.Paths.RawDir, name)
}

// VideoArgs builds the libcamera-vid argument list for a capture into out.
// Exported for tests and --dry-run logging.
func VideoArgs(cfg *config.Config, out string) []string {
	timeoutMS := cfg.Capture.DurationMinutes * 60 * 1000
	return []string{
		"--width", strconv.Itoa(cfg.Capture.Width),
		"--height", strconv.Itoa(cfg.Capture.Height),
		"--framerate", strconv.Itoa(cfg.Capture.Framerate),
		"--timeout", strconv.Itoa(timeoutMS),
		"--ev", strconv.FormatFloat(cfg.Capture.EV, 'g', -1, 64),
		"--nopreview",
		"-o", out,
	}
}

// StillArgs builds the libcamera-still argument list for a capture into out.
func StillArgs(cfg *config.Config, out string) []string {
	return []string{
		"--width", strconv.Itoa(cfg.Capture.Width),
		"--height", strconv.Itoa(cfg.Capture.Height),
		"--ev", strconv.FormatFloat(cfg.Capture.EV, 'g', -1, 64),
		"--quality", strconv.Itoa(cfg.Capture.PhotoQuality),
		"--timeout", strconv.Itoa(cfg.Capture.PhotoDelaySeconds * 1000),
		"--nopreview",
		"-o", out,
	}
}

// RecordVideo runs the full-length libcamera-vid capture and validates the
// output. The process timeout is the capture duration plus a grace period;
// exceeding it is a stage failure like any other non-zero exit.
func (c *Camera) RecordVideo(ctx context.Context, day time.Time) (Artifact, error) {
	out := RawVideoPath(c.cfg, day)
	timeout := time.Duration(c.cfg.Capture.DurationMinutes)*time.Minute +
		time.Duration(c.cfg.Capture.GraceSeconds)*time.Second

	res, err := c.runner.Run(ctx, "libcamera-vid", VideoArgs(c.cfg, out), timeout)
	if err != nil {
		return Artifact{}, fmt.Errorf("video capture (exit %d): %w: %s",
			res.ExitCode, err, lastLine(res.Stderr))
	}

	return Validate(out, RawVideo, c.cfg.Capture.MinVideoBytes)
}

// TakePhoto captures the analysis still after the video finishes.
func (c *Camera) TakePhoto(ctx context.Context, day time.Time) (Artifact, error) {
	out := PhotoPath(c.cfg, day)
	timeout := time.Duration(c.cfg.Capture.PhotoTimeoutSec) * time.Second

	res, err := c.runner.Run(ctx, "libcamera-still", StillArgs(c.cfg, out), timeout)
	if err != nil {
		return Artifact{}, fmt.Errorf("photo capture (exit %d): %w: %s",
			res.ExitCode, err, lastLine(res.Stderr))
	}

	return Validate(out, StillPhoto, c.cfg.Capture.MinPhotoBytes)
}

// lastLine trims stderr to its final non-empty line for one-line error
// context; full stderr is too noisy for the error chain.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
