// Package runlock provides the single-instance guard for the pipeline. The
// scheduler firing while yesterday's run is still capturing would contend
// for the camera, so a run refuses to start while another holds the lock.
//
// The lock is a directory (mkdir is atomic on every filesystem we care
// about) containing owner metadata for diagnostics. A crash leaves the lock
// behind; the error message carries the owner PID so the operator can tell a
// live run from a stale lock.
package runlock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockDirName   = ".run.lock"
	ownerFileName = "owner.json"
)

// Lock is a held pipeline lock. The zero value is not held.
type Lock struct {
	dir string
}

type owner struct {
	PID       int    `json:"pid"`
	RunID     string `json:"run_id"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

// Acquire takes the lock under baseDir, recording runID as the owner. A held
// lock returns an error naming the current owner.
func Acquire(baseDir, runID string) (Lock, error) {
	if baseDir == "" {
		return Lock{}, fmt.Errorf("base directory is required")
	}

	dir := filepath.Join(baseDir, lockDirName)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			var o owner
			ownerPath := filepath.Join(dir, ownerFileName)
			if data, readErr := os.ReadFile(ownerPath); readErr == nil && json.Unmarshal(data, &o) == nil && o.PID > 0 {
				return Lock{}, fmt.Errorf(
					"another run holds the lock: pid=%d run=%s since=%s host=%s",
					o.PID, o.RunID, o.CreatedAt, o.Hostname)
			}
			return Lock{}, fmt.Errorf("another run holds the lock: %s", dir)
		}
		return Lock{}, fmt.Errorf("acquire run lock: %w", err)
	}

	o := owner{
		PID:       os.Getpid(),
		RunID:     runID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	data, err := json.Marshal(o)
	if err == nil {
		err = os.WriteFile(filepath.Join(dir, ownerFileName), data, 0o644)
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return Lock{}, fmt.Errorf("write run lock owner: %w", err)
	}
	return Lock{dir: dir}, nil
}

// Release drops the lock. Safe to call on the zero value.
func (l Lock) Release() error {
	if l.dir == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.dir, ownerFileName))
	if err := os.Remove(l.dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}
