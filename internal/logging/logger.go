// Package logging provides the leveled, optionally colored logger used by
// every pipeline stage, with an optional per-day file sink under the log
// directory so an unattended run can be diagnosed after the fact.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ab604/pi-sunrise-timelapse/internal/config"
	"github.com/ab604/pi-sunrise-timelapse/internal/term"
)

// Logger provides leveled, optionally colored logging with an optional file
// sink. Safe for use from the polling goroutine and the main flow.
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	filePath string
	verbose  bool
}

// NewLogger configures colors from cfg and, when LogToFile is set, opens
// (appending) the per-day log file sunrise_YYYY-MM-DD.log under the log dir.
// Call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	l := &Logger{verbose: cfg.Verbose}
	if cfg.LogToFile && !cfg.CheckOnly {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, err
		}
		name := "sunrise_" + time.Now().Format("2006-01-02") + ".log"
		path := filepath.Join(cfg.Paths.LogDir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		l.filePath = path
	}
	return l, nil
}

// FilePath returns the path of the file sink, or "" when logging to stdout only.
func (l *Logger) FilePath() string { return l.filePath }

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) line(level, color, text string) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	l.mu.Lock()
	defer l.mu.Unlock()
	plain := ts + " [" + level + "] " + text + "\n"
	out := os.Stdout
	if level == "ERROR" {
		out = os.Stderr
	}
	if color != "" {
		_, _ = io.WriteString(out, ts+" "+color+"["+level+"]"+term.NC+" "+text+"\n")
	} else {
		_, _ = io.WriteString(out, plain)
	}
	if l.file != nil {
		_, _ = io.WriteString(l.file, plain)
	}
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.line("INFO", term.Blue, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.line("SUCCESS", term.Green, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.line("WARN", term.Yellow, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red), also to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.line("ERROR", term.Red, fmt.Sprintf(format, args...))
}

// Stage logs a pipeline stage transition (magenta) so the state machine's
// path through a run is reconstructible from the log alone.
func (l *Logger) Stage(format string, args ...interface{}) {
	l.line("STAGE", term.Magenta, fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan) only when verbose; no-op otherwise.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.line("DEBUG", term.Cyan, fmt.Sprintf(format, args...))
}
