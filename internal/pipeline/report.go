package pipeline

import (
	"time"

	"github.com/ab604/pi-sunrise-timelapse/internal/bsky"
	"github.com/ab604/pi-sunrise-timelapse/internal/describe"
	"github.com/ab604/pi-sunrise-timelapse/internal/schedule"
	"github.com/ab604/pi-sunrise-timelapse/internal/transcode"
)

// Report is the outcome of one pipeline run. Nothing in it persists across
// runs; the only cross-run state is whatever files remain on disk.
type Report struct {
	RunID string
	Stage Stage // Final stage reached: StageDone, or StageCleaningUp after a failure.

	Failed      bool
	FailedStage Stage
	Err         error

	Decision    schedule.Decision
	Video       transcode.Video
	Description describe.Description

	Published bool
	Post      bsky.PublishRecord
	PostLink  string

	Swept   int
	Elapsed time.Duration
}

// Outcome is the one-line run verdict for the summary block.
func (r *Report) Outcome() string {
	if r.Failed {
		return "failed at " + string(r.FailedStage)
	}
	return "success"
}
