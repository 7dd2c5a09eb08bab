// Package pipeline orchestrates the daily run: wait for the computed start
// time, capture, transcode, analyze, publish, and clean up. Stages execute
// strictly sequentially because the camera and encoder are exclusive
// hardware resources; the only wait points are the start-time wait, the
// subprocess waits, and the upload job poll.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ab604/pi-sunrise-timelapse/internal/bsky"
	"github.com/ab604/pi-sunrise-timelapse/internal/capture"
	"github.com/ab604/pi-sunrise-timelapse/internal/config"
	"github.com/ab604/pi-sunrise-timelapse/internal/describe"
	"github.com/ab604/pi-sunrise-timelapse/internal/display"
	"github.com/ab604/pi-sunrise-timelapse/internal/logging"
	"github.com/ab604/pi-sunrise-timelapse/internal/proc"
	"github.com/ab604/pi-sunrise-timelapse/internal/retention"
	"github.com/ab604/pi-sunrise-timelapse/internal/schedule"
	"github.com/ab604/pi-sunrise-timelapse/internal/transcode"
)

// retentionPatterns are the artifact name shapes the sweeper may delete.
// Anything else in the working directories is left alone.
var retentionPatterns = []string{
	"sunrise_raw_*.h264",
	"analysis_photo_*.jpg",
	"sunrise_*.mp4",
}

// CameraService captures the raw video and the analysis still.
type CameraService interface {
	RecordVideo(ctx context.Context, day time.Time) (capture.Artifact, error)
	TakePhoto(ctx context.Context, day time.Time) (capture.Artifact, error)
}

// TranscodeService produces the final timelapse from a raw capture.
type TranscodeService interface {
	Run(ctx context.Context, raw capture.Artifact, day time.Time) (transcode.Video, error)
}

// DescribeService turns the analysis photo into post text. It must always
// return a usable Description even when it also returns an error.
type DescribeService interface {
	FromPhoto(ctx context.Context, path string) (describe.Description, error)
}

// PublishService runs the full upload-and-post sequence, returning the
// record and the human-facing permalink.
type PublishService interface {
	Publish(ctx context.Context, video transcode.Video, text string) (bsky.PublishRecord, string, error)
}

// Orchestrator drives one run through the stage state machine. Collaborators
// are injected so tests exercise the state machine without hardware or
// network.
type Orchestrator struct {
	cfg        *config.Config
	log        *logging.Logger
	runID      string
	camera     CameraService
	transcoder TranscodeService
	describer  DescribeService
	publisher  PublishService
	runner     proc.Runner

	// clock, wait and sweep are injectable for tests; New wires the real ones.
	clock func() time.Time
	wait  func(ctx context.Context, start time.Time, progress schedule.ProgressFunc) error
	sweep func(dir string, today time.Time) int
}

// New builds an Orchestrator with production collaborators. runID identifies
// this run everywhere it surfaces (log lines, lock owner, report); pass the
// same ID used for the run lock.
func New(cfg *config.Config, log *logging.Logger, runID string) *Orchestrator {
	runner := proc.ExecRunner{}
	client := bsky.NewClient(&cfg.Bluesky)
	client.Logf = log.Info

	o := &Orchestrator{
		cfg:        cfg,
		log:        log,
		runID:      runID,
		camera:     capture.NewCamera(cfg, runner),
		transcoder: transcode.NewTranscoder(cfg, runner),
		describer:  describe.NewClient(cfg),
		publisher:  NewPublisher(cfg, client, log),
		runner:     runner,
		clock:      time.Now,
		wait:       schedule.WaitUntil,
	}
	o.sweep = func(dir string, today time.Time) int {
		return retention.Sweep(log, dir, retentionPatterns, cfg.Cleanup.KeepDays, today)
	}
	return o
}

// Run executes one full pipeline run. Cleanup always executes, whatever
// happened upstream; the returned Report is complete either way.
func (o *Orchestrator) Run(ctx context.Context) *Report {
	runID := o.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	r := &Report{
		RunID: runID,
		Stage: StageScheduled,
	}
	started := o.clock()

	o.log.Info("Run %s starting", r.RunID)
	o.runStages(ctx, r)
	o.cleanUp(r)

	if !r.Failed {
		o.advance(r, StageDone)
	}
	r.Elapsed = o.clock().Sub(started)
	return r
}

// runStages walks the happy path, bailing out on the first stage failure.
func (o *Orchestrator) runStages(ctx context.Context, r *Report) {
	day := o.clock()

	// --- Scheduled: compute the window and wait for it ---
	r.Decision = schedule.Compute(o.cfg, day)
	if r.Decision.FallbackUsed {
		o.log.Warn("Sunrise calculation unavailable, using fallback start %s",
			display.FormatClock(r.Decision.Start))
	}
	o.log.Info("Sunrise %s, capture window %s - %s (%d min)",
		display.FormatClock(r.Decision.Sunrise),
		display.FormatClock(r.Decision.Start),
		display.FormatClock(r.Decision.Start.Add(time.Duration(o.cfg.Capture.DurationMinutes)*time.Minute)),
		o.cfg.Capture.DurationMinutes)

	if o.cfg.DryRun {
		o.logDryRunPlan(day)
		return
	}

	if o.cfg.RunNow {
		o.log.Warn("Skipping wait (--now), capturing immediately")
	} else if err := o.wait(ctx, r.Decision.Start, func(remaining time.Duration) {
		o.log.Info("%s until capture starts", display.FormatDuration(remaining))
	}); err != nil {
		o.fail(r, StageScheduled, err)
		return
	}

	// --- Capturing ---
	o.advance(r, StageCapturing)
	o.logMemory(ctx, "before capture")
	raw, err := o.camera.RecordVideo(ctx, day)
	if err != nil {
		o.fail(r, StageCapturing, err)
		return
	}
	o.logMemory(ctx, "after capture")
	o.log.Success("Raw capture: %s (%s)", raw.Path, display.FormatMB(raw.SizeBytes))

	// --- Transcoding ---
	o.advance(r, StageTranscoding)
	o.log.Info("Speed-up factor: %.1fx into %ds", transcode.SpeedupFactor(o.cfg), o.cfg.Video.OutputSeconds)
	video, err := o.transcoder.Run(ctx, raw, day)
	if err != nil {
		o.fail(r, StageTranscoding, err)
		return
	}
	r.Video = video
	o.log.Success("Timelapse: %s (%.1fs, %s)", video.Path, video.DurationSeconds, display.FormatMB(video.SizeBytes))

	// --- Analyzing ---
	// The still must validate before anything downstream runs; a bad photo
	// fails the stage. The remote description itself is the one soft spot:
	// its failure degrades to the fallback text and the run continues.
	o.advance(r, StageAnalyzing)
	photo, err := o.camera.TakePhoto(ctx, day)
	if err != nil {
		o.fail(r, StageAnalyzing, err)
		return
	}
	desc, err := o.describer.FromPhoto(ctx, photo.Path)
	if err != nil {
		o.log.Warn("Description generation failed (%v), using fallback", err)
	} else {
		o.log.Info("Description: %s", desc.Text)
	}
	r.Description = desc

	// --- Publishing ---
	o.advance(r, StagePublishing)
	switch {
	case o.cfg.SkipPost:
		o.log.Warn("Publishing skipped (--no-post)")
	case !o.cfg.PostConfigured():
		o.log.Warn("Bluesky credentials not configured, skipping post")
	default:
		text := postText(desc.Text, r.Decision.Sunrise, day)
		record, link, err := o.publisher.Publish(ctx, video, text)
		if err != nil {
			o.fail(r, StagePublishing, err)
			return
		}
		r.Published = true
		r.Post = record
		r.PostLink = link
		o.log.Success("Posted: %s", record.URI)
		if link != "" {
			o.log.Info("Direct link: %s", link)
		}
	}
}

// cleanUp runs the retention sweep. It is not a stage that can fail the run:
// per-file errors are logged inside the sweeper and the count of successes
// is reported regardless.
func (o *Orchestrator) cleanUp(r *Report) {
	o.advance(r, StageCleaningUp)

	if !o.cfg.Cleanup.AutoCleanup {
		o.log.Debug("Retention sweep disabled")
		return
	}
	if o.cfg.DryRun {
		o.log.Info("[DRY] Would sweep files older than %d days", o.cfg.Cleanup.KeepDays)
		return
	}

	today := o.clock()
	r.Swept = o.sweep(o.cfg.Paths.RawDir, today) + o.sweep(o.cfg.Paths.VideoDir, today)
	if r.Swept > 0 {
		o.log.Info("Cleanup complete: %d file(s) removed", r.Swept)
	}
}

// advance moves the report to the next stage, asserting the transition is
// legal. An illegal transition is a programming error; it is logged loudly
// rather than silently corrupting the run.
func (o *Orchestrator) advance(r *Report, to Stage) {
	if err := Transition(r.Stage, to); err != nil {
		o.log.Error("%v", err)
	}
	r.Stage = to
	o.log.Stage("-> %s", to)
}

// fail records the failing stage and its cause. The caller returns to Run,
// which proceeds straight to cleanup.
func (o *Orchestrator) fail(r *Report, stage Stage, err error) {
	r.Failed = true
	r.FailedStage = stage
	r.Err = err
	o.log.Error("Stage %s failed: %v", stage, err)
}

// logMemory samples available memory for capacity diagnostics on the Pi
// Zero. Best effort; an unreadable value is simply not logged.
func (o *Orchestrator) logMemory(ctx context.Context, when string) {
	if mb := proc.FreeMemoryMB(ctx, o.runner); mb > 0 {
		o.log.Debug("Free memory %s: %dMB", when, mb)
	}
}

// logDryRunPlan prints the exact commands a real run would execute.
func (o *Orchestrator) logDryRunPlan(day time.Time) {
	rawPath := capture.RawVideoPath(o.cfg, day)
	outPath := transcode.OutputPath(o.cfg, day)
	o.log.Info("[DRY] libcamera-vid %s", strings.Join(capture.VideoArgs(o.cfg, rawPath), " "))
	o.log.Info("[DRY] libcamera-still %s", strings.Join(capture.StillArgs(o.cfg, capture.PhotoPath(o.cfg, day)), " "))
	o.log.Info("[DRY] ffmpeg %s", strings.Join(transcode.Args(o.cfg, rawPath, outPath), " "))
	o.log.Info("[DRY] Would publish to @%s", o.cfg.Bluesky.Handle)
}

// postText composes the final post body: description plus the sunrise
// timestamp line.
func postText(description string, sunriseAt, day time.Time) string {
	return fmt.Sprintf("%s\n\nSunrise: %s %s",
		description,
		sunriseAt.Format("15:04:05"),
		day.Format("2006-01-02"))
}
