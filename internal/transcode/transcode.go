// Package transcode turns the raw capture into the final timelapse with
// ffmpeg and verifies the result with ffprobe. Codec behavior is the
// encoder's business; this package only builds arguments and checks the
// contract "exit 0 and a plausible output file".
package transcode

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ab604/pi-sunrise-timelapse/internal/capture"
	"github.com/ab604/pi-sunrise-timelapse/internal/config"
	"github.com/ab604/pi-sunrise-timelapse/internal/proc"
)

// Video is a validated transcode output.
type Video struct {
	Path            string
	DurationSeconds float64
	SourcePath      string
	SizeBytes       int64
}

// Transcoder produces the final timelapse from a raw capture.
type Transcoder struct {
	cfg    *config.Config
	runner proc.Runner
}

// NewTranscoder returns a Transcoder using runner for all invocations.
func NewTranscoder(cfg *config.Config, runner proc.Runner) *Transcoder {
	return &Transcoder{cfg: cfg, runner: runner}
}

// OutputPath returns the dated final video path for day.
func OutputPath(cfg *config.Config, day time.Time) string {
	name := fmt.Sprintf("sunrise_%s.mp4", day.Format("2006-01-02"))
	return filepath.Join(cfg.Paths.VideoDir, name)
}

// SpeedupFactor is the setpts divisor compressing the capture window into
// the target output duration (75 min at 1 fps into 30 s is 150x).
func SpeedupFactor(cfg *config.Config) float64 {
	captureSeconds := float64(cfg.Capture.DurationMinutes * 60)
	return captureSeconds / float64(cfg.Video.OutputSeconds)
}

// Args builds the ffmpeg argument list for the speed-up encode.
// Exported for tests and --dry-run logging.
func Args(cfg *config.Config, in, out string) []string {
	return []string{
		"-y",
		"-i", in,
		"-filter:v", fmt.Sprintf("setpts=PTS/%.1f", SpeedupFactor(cfg)),
		"-c:v", "libx264",
		"-preset", cfg.Video.Preset,
		"-crf", strconv.Itoa(cfg.Video.CRF),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		out,
	}
}

// Run encodes raw into the final timelapse, probes the result, and verifies
// the duration is inside the configured tolerance around the target.
func (t *Transcoder) Run(ctx context.Context, raw capture.Artifact, day time.Time) (Video, error) {
	out := OutputPath(t.cfg, day)
	timeout := time.Duration(t.cfg.Video.TimeoutMinutes) * time.Minute

	res, err := t.runner.Run(ctx, "ffmpeg", Args(t.cfg, raw.Path, out), timeout)
	if err != nil {
		return Video{}, fmt.Errorf("ffmpeg (exit %d): %w: %s", res.ExitCode, err, tail(res.Stderr))
	}

	art, err := capture.Validate(out, "final_video", t.cfg.Capture.MinVideoBytes)
	if err != nil {
		return Video{}, err
	}

	duration, err := ProbeDuration(ctx, t.runner, out)
	if err != nil {
		return Video{}, err
	}
	if err := verifyDuration(t.cfg, duration); err != nil {
		return Video{}, err
	}

	return Video{
		Path:            out,
		DurationSeconds: duration,
		SourcePath:      raw.Path,
		SizeBytes:       art.SizeBytes,
	}, nil
}

// ProbeDuration reads the container duration via ffprobe's CSV output.
func ProbeDuration(ctx context.Context, runner proc.Runner, path string) (float64, error) {
	args := []string{
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	}
	res, err := runner.Run(ctx, "ffprobe", args, 30*time.Second)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %q: %w", path, err)
	}
	return ParseDuration(res.Stdout)
}

// ParseDuration converts raw ffprobe CSV output into seconds. Exported for
// testing without a real ffprobe binary.
func ParseDuration(out string) (float64, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return 0, fmt.Errorf("ffprobe returned no duration")
	}
	d, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", trimmed, err)
	}
	return d, nil
}

// verifyDuration enforces the duration tolerance around the configured
// target. A wildly short output means the encoder bailed early even though
// it exited zero.
func verifyDuration(cfg *config.Config, got float64) error {
	target := float64(cfg.Video.OutputSeconds)
	tolerance := cfg.Video.DurationTolerance
	if tolerance <= 0 {
		tolerance = 0.5
	}
	if math.Abs(got-target) > target*tolerance {
		return fmt.Errorf("output duration %.1fs outside tolerance (target %.0fs ±%.0f%%)",
			got, target, tolerance*100)
	}
	return nil
}

// tail trims stderr to its last few lines for error context.
func tail(s string) string {
	const maxLines = 5
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, " | ")
}
