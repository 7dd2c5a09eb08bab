// Package schedule computes the capture start time from the day's sunrise
// and waits for it. Astronomical accuracy is best effort: when the
// computation or timezone lookup fails, a fixed local wall-clock fallback is
// used so the pipeline always has a usable start time.
package schedule

import (
	"context"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/ab604/pi-sunrise-timelapse/internal/config"
)

// Decision is the computed capture window for one run. Immutable after
// creation.
type Decision struct {
	Sunrise      time.Time // Local sunrise time (or the fallback).
	Start        time.Time // Sunrise minus the configured lead.
	FallbackUsed bool
}

// Compute determines today's sunrise for the configured location and derives
// the capture start time. It never fails: a zero sunrise (sun never rises at
// this latitude on this date) or a bad timezone yields the fixed fallback
// with FallbackUsed set.
func Compute(cfg *config.Config, now time.Time) Decision {
	loc, err := time.LoadLocation(cfg.Location.Timezone)
	if err != nil {
		loc = now.Location()
		return fallbackDecision(cfg, now, loc)
	}

	local := now.In(loc)
	rise, _ := sunrise.SunriseSunset(
		cfg.Location.Latitude, cfg.Location.Longitude,
		local.Year(), local.Month(), local.Day(),
	)
	if rise.IsZero() {
		return fallbackDecision(cfg, now, loc)
	}

	riseLocal := rise.In(loc)
	return Decision{
		Sunrise: riseLocal,
		Start:   riseLocal.Add(-time.Duration(cfg.Capture.LeadMinutes) * time.Minute),
	}
}

// fallbackDecision builds the fixed-time decision (default 07:00 local) used
// when the astronomical calculation is unusable.
func fallbackDecision(cfg *config.Config, now time.Time, loc *time.Location) Decision {
	local := now.In(loc)
	rise := time.Date(local.Year(), local.Month(), local.Day(),
		cfg.FallbackStartHour, cfg.FallbackStartMinute, 0, 0, loc)
	return Decision{
		Sunrise:      rise,
		Start:        rise.Add(-time.Duration(cfg.Capture.LeadMinutes) * time.Minute),
		FallbackUsed: true,
	}
}

// ProgressFunc receives the remaining wait before the start time, at most
// once per progress interval. Used for periodic "N minutes until capture"
// log lines.
type ProgressFunc func(remaining time.Duration)

// WaitUntil blocks until start, polling coarsely (one minute) while far out
// and finely (five seconds) inside the final minute. It returns immediately
// when start has already passed and returns ctx.Err() on cancellation.
// progress may be nil.
func WaitUntil(ctx context.Context, start time.Time, progress ProgressFunc) error {
	return waitUntil(ctx, start, progress, time.Now, sleepCtx)
}

// waitUntil is the testable core with injected clock and sleep.
func waitUntil(
	ctx context.Context,
	start time.Time,
	progress ProgressFunc,
	now func() time.Time,
	sleep func(context.Context, time.Duration) error,
) error {
	const (
		coarse           = time.Minute
		fine             = 5 * time.Second
		progressInterval = 5 * time.Minute
	)

	lastProgress := time.Time{}
	for {
		remaining := start.Sub(now())
		if remaining <= 0 {
			return nil
		}

		if progress != nil && (lastProgress.IsZero() || now().Sub(lastProgress) >= progressInterval) {
			progress(remaining)
			lastProgress = now()
		}

		step := coarse
		if remaining < coarse {
			step = fine
		}
		if step > remaining {
			step = remaining
		}
		if err := sleep(ctx, step); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
