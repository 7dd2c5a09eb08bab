// Package check provides system diagnostics (--check mode) and pre-pipeline
// dependency validation for libcamera-vid, libcamera-still, ffmpeg, and
// ffprobe.
package check

import (
	"errors"
	"os/exec"
	"strings"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrLibcameraVidNotFound   = errors.New("libcamera-vid not found on PATH")
	ErrLibcameraStillNotFound = errors.New("libcamera-still not found on PATH")
	ErrFfmpegNotFound         = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound        = errors.New("ffprobe not found on PATH")
)

// Logger is the minimal logging interface needed by RunCheck. Defined here
// (rather than importing the logging package) so that check remains
// dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// CheckDeps verifies every external binary the pipeline invokes is on PATH.
// Called before the pipeline starts so a missing tool fails fast instead of
// after a 75-minute wait for sunrise.
func CheckDeps() error {
	if _, err := exec.LookPath("libcamera-vid"); err != nil {
		return ErrLibcameraVidNotFound
	}
	if _, err := exec.LookPath("libcamera-still"); err != nil {
		return ErrLibcameraStillNotFound
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ErrFfmpegNotFound
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return ErrFfprobeNotFound
	}
	return nil
}

// RunCheck runs the interactive --check flow: prints availability and
// versions of the capture and encode toolchain. Informational only; it does
// not stop on failure.
func RunCheck(log Logger) {
	log.Info("=== System Check ===")
	checkTool(log, "libcamera-vid", "--version")
	checkTool(log, "libcamera-still", "--version")
	checkTool(log, "ffmpeg", "-version")
	checkTool(log, "ffprobe", "-version")
}

func checkTool(log Logger, name, versionFlag string) {
	if _, err := exec.LookPath(name); err != nil {
		log.Error("%s not found", name)
		return
	}
	out, err := exec.Command(name, versionFlag).CombinedOutput()
	if err != nil {
		log.Warn("%s found but %s failed: %v", name, versionFlag, err)
		return
	}
	firstLine := strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)[0]
	log.Success("%s: %s", name, firstLine)
}
