package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ab604/pi-sunrise-timelapse/internal/config"
	"github.com/ab604/pi-sunrise-timelapse/internal/proc"
)

// fakeRunner records the invocation and optionally writes an output file, the
// way libcamera would.
type fakeRunner struct {
	name    string
	args    []string
	timeout time.Duration

	writeBytes int
	result     proc.Result
	err        error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (proc.Result, error) {
	f.name = name
	f.args = args
	f.timeout = timeout

	if f.writeBytes > 0 {
		out := args[len(args)-1]
		if err := os.WriteFile(out, bytes.Repeat([]byte("x"), f.writeBytes), 0o644); err != nil {
			return proc.Result{}, err
		}
	}
	return f.result, f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Paths.RawDir = t.TempDir()
	return &cfg
}

var day = time.Date(2025, 8, 3, 5, 0, 0, 0, time.UTC)

func TestPaths(t *testing.T) {
	cfg := testConfig(t)
	if got := filepath.Base(RawVideoPath(cfg, day)); got != "sunrise_raw_2025-08-03.h264" {
		t.Errorf("raw video name = %s", got)
	}
	if got := filepath.Base(PhotoPath(cfg, day)); got != "analysis_photo_2025-08-03.jpg" {
		t.Errorf("photo name = %s", got)
	}
}

func TestVideoArgs(t *testing.T) {
	cfg := testConfig(t)
	args := strings.Join(VideoArgs(cfg, "/tmp/out.h264"), " ")

	for _, want := range []string{
		"--width 800",
		"--height 800",
		"--framerate 1",
		"--timeout 4500000", // 75 min in ms
		"--ev 0.5",
		"--nopreview",
		"-o /tmp/out.h264",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
}

func TestStillArgs(t *testing.T) {
	cfg := testConfig(t)
	args := strings.Join(StillArgs(cfg, "/tmp/out.jpg"), " ")

	for _, want := range []string{
		"--quality 90",
		"--timeout 2000", // auto-exposure settle in ms
		"-o /tmp/out.jpg",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.h264")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 1000), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("passes at threshold", func(t *testing.T) {
		art, err := Validate(path, RawVideo, 1000)
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if art.SizeBytes != 1000 || art.Kind != RawVideo || art.Path != path {
			t.Errorf("artifact = %+v", art)
		}
	})

	t.Run("too small", func(t *testing.T) {
		_, err := Validate(path, RawVideo, 1001)
		if !errors.Is(err, ErrArtifactTooSmall) {
			t.Errorf("err = %v, want ErrArtifactTooSmall", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Validate(filepath.Join(dir, "nope.h264"), RawVideo, 1)
		if err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestRecordVideo(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{writeBytes: 2000}
	cam := NewCamera(cfg, runner)

	art, err := cam.RecordVideo(context.Background(), day)
	if err != nil {
		t.Fatalf("RecordVideo: %v", err)
	}

	if runner.name != "libcamera-vid" {
		t.Errorf("command = %s", runner.name)
	}
	wantTimeout := 75*time.Minute + 120*time.Second
	if runner.timeout != wantTimeout {
		t.Errorf("timeout = %v, want %v", runner.timeout, wantTimeout)
	}
	if art.SizeBytes != 2000 {
		t.Errorf("size = %d", art.SizeBytes)
	}
}

func TestRecordVideo_ProcessFailure(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{
		result: proc.Result{ExitCode: 1, Stderr: "first line\nERROR: no cameras available"},
		err:    fmt.Errorf("libcamera-vid: exit status 1"),
	}
	cam := NewCamera(cfg, runner)

	_, err := cam.RecordVideo(context.Background(), day)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no cameras available") {
		t.Errorf("error should carry the last stderr line: %v", err)
	}
}

func TestRecordVideo_OutputTooSmall(t *testing.T) {
	cfg := testConfig(t)
	cam := NewCamera(cfg, &fakeRunner{writeBytes: 10}) // below MinVideoBytes

	_, err := cam.RecordVideo(context.Background(), day)
	if !errors.Is(err, ErrArtifactTooSmall) {
		t.Errorf("err = %v, want ErrArtifactTooSmall", err)
	}
}

func TestTakePhoto(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{writeBytes: 20000}
	cam := NewCamera(cfg, runner)

	art, err := cam.TakePhoto(context.Background(), day)
	if err != nil {
		t.Fatalf("TakePhoto: %v", err)
	}
	if runner.name != "libcamera-still" {
		t.Errorf("command = %s", runner.name)
	}
	if runner.timeout != 30*time.Second {
		t.Errorf("timeout = %v", runner.timeout)
	}
	if art.Kind != StillPhoto {
		t.Errorf("kind = %s", art.Kind)
	}
}

func TestTakePhoto_TooSmall(t *testing.T) {
	cfg := testConfig(t)
	cam := NewCamera(cfg, &fakeRunner{writeBytes: 500}) // below MinPhotoBytes

	_, err := cam.TakePhoto(context.Background(), day)
	if !errors.Is(err, ErrArtifactTooSmall) {
		t.Errorf("err = %v, want ErrArtifactTooSmall", err)
	}
}
