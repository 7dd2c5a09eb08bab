// Package retention deletes aged capture artifacts by parsing the
// YYYY-MM-DD date token embedded in their filenames. Parsing is fail-safe:
// a name without a valid date token is never deleted.
package retention

import (
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// reDateToken matches the embedded date token: four-digit year, two-digit
// month, two-digit day, dash-separated.
var reDateToken = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

// Logger is the minimal logging interface the sweeper needs. Defined here so
// retention stays dependency-light and testable with a mock.
type Logger interface {
	Info(string, ...interface{})
	Warn(string, ...interface{})
}

// ParseFileDate extracts the embedded date from a filename. ok is false when
// no valid token is present (including impossible dates like month 13).
func ParseFileDate(name string) (time.Time, bool) {
	m := reDateToken.FindString(name)
	if m == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", m)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Sweep removes files under dir matching any of the glob patterns whose
// embedded date is strictly older than today minus keepDays. Deletion is
// best effort per file: a single failure is logged and the sweep continues.
// Returns the number of files actually removed.
func Sweep(log Logger, dir string, patterns []string, keepDays int, today time.Time) int {
	cutoff := today.AddDate(0, 0, -keepDays)
	cutoffDay := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)

	removed := 0
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			// Only malformed patterns error here; skip and keep sweeping.
			log.Warn("Bad retention pattern %q: %v", pattern, err)
			continue
		}
		for _, path := range matches {
			fileDate, ok := ParseFileDate(filepath.Base(path))
			if !ok {
				continue
			}
			if !fileDate.Before(cutoffDay) {
				continue
			}
			if err := os.Remove(path); err != nil {
				log.Warn("Could not remove %s: %v", filepath.Base(path), err)
				continue
			}
			removed++
			log.Info("Removed old file: %s", filepath.Base(path))
		}
	}
	return removed
}
