package pipeline

import "fmt"

// Stage identifies a step of the daily run. The orchestrator moves through
// stages strictly in order; a failure in any stage jumps straight to
// StageCleaningUp, which always runs.
type Stage string

const (
	StageScheduled   Stage = "scheduled"
	StageCapturing   Stage = "capturing"
	StageTranscoding Stage = "transcoding"
	StageAnalyzing   Stage = "analyzing"
	StagePublishing  Stage = "publishing"
	StageCleaningUp  Stage = "cleaning-up"
	StageDone        Stage = "done"
)

// Transition validates a stage change. Cleanup is reachable from every
// pre-cleanup stage (that is the failure path); everything else only
// advances to its direct successor.
func Transition(from, to Stage) error {
	if to == StageCleaningUp && from != StageCleaningUp && from != StageDone {
		return nil
	}
	if successor(from) == to {
		return nil
	}
	return fmt.Errorf("invalid stage transition %s -> %s", from, to)
}

func successor(s Stage) Stage {
	switch s {
	case StageScheduled:
		return StageCapturing
	case StageCapturing:
		return StageTranscoding
	case StageTranscoding:
		return StageAnalyzing
	case StageAnalyzing:
		return StagePublishing
	case StagePublishing:
		return StageCleaningUp
	case StageCleaningUp:
		return StageDone
	default:
		return ""
	}
}
