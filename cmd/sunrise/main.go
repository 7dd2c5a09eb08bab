// Command sunrise is the entrypoint for the sunrise timelapse pipeline.
// It parses flags, validates config, and either runs system check (--check)
// or a full schedule/capture/transcode/analyze/publish/cleanup run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/ab604/pi-sunrise-timelapse/internal/check"
	"github.com/ab604/pi-sunrise-timelapse/internal/config"
	"github.com/ab604/pi-sunrise-timelapse/internal/display"
	"github.com/ab604/pi-sunrise-timelapse/internal/logging"
	"github.com/ab604/pi-sunrise-timelapse/internal/pipeline"
	"github.com/ab604/pi-sunrise-timelapse/internal/runlock"
)

func main() {
	os.Exit(run())
}

func run() int {
	// 1. Load config from defaults, config file, flags and environment;
	// exit on parse or validation error.
	cfg := config.DefaultConfig()
	if err := config.ParseFlags(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "sunrise: %v\n", err)
		return 1
	}
	cfg.LoadSecrets()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "sunrise: %v\n", err)
		return 1
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sunrise: %v\n", err)
		return 1
	}
	defer log.Close()

	display.PrintBanner()

	// 2. If user asked for system check, run it and exit.
	if cfg.CheckOnly {
		check.RunCheck(log)
		return 0
	}

	if err := cfg.EnsureDirs(); err != nil {
		log.Error("%v", err)
		return 1
	}
	if err := check.CheckDeps(); err != nil {
		log.Error("%v", err)
		return 1
	}

	log.Info("=== Sunrise Timelapse v%s ===", config.Version())
	log.Info("Base dir: %s", cfg.Paths.BaseDir)
	if path := log.FilePath(); path != "" {
		log.Info("Log file: %s", path)
	}
	if cfg.DryRun {
		log.Warn("DRY RUN")
	}
	log.Info("")

	// 3. One run at a time. A second invocation (cron overlap, manual run
	// during the scheduled one) must not fight over the camera. The same ID
	// names this run in the lock owner file, the logs and the report.
	runID := uuid.NewString()
	lock, err := runlock.Acquire(cfg.Paths.BaseDir, runID)
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	defer lock.Release()

	// 4. Run the pipeline under a signal-aware context so Ctrl-C or a
	// systemd stop still reaches the cleanup stage.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := pipeline.New(&cfg, log, runID).Run(ctx)

	display.PrintSummary(summaryFrom(report))
	if report.Failed {
		return 1
	}
	return 0
}

func summaryFrom(r *pipeline.Report) display.Summary {
	s := display.Summary{
		Outcome:     r.Outcome(),
		Succeeded:   !r.Failed,
		SunriseAt:   display.FormatClock(r.Decision.Sunrise),
		Description: r.Description.Text,
		SweptFiles:  r.Swept,
		Elapsed:     display.FormatDuration(r.Elapsed),
	}
	if r.Video.Path != "" {
		s.VideoPath = r.Video.Path
		s.VideoSize = r.Video.SizeBytes
	}
	if r.Published {
		s.PostURI = r.Post.URI
		s.PostLink = r.PostLink
	}
	return s
}
