package proc

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// FreeMemoryMB returns available memory in MB as reported by `free -m`, or 0
// when it cannot be determined. Telemetry only; callers must treat 0 as
// "unknown", never as an error.
func FreeMemoryMB(ctx context.Context, r Runner) int {
	res, err := r.Run(ctx, "free", []string{"-m"}, 30*time.Second)
	if err != nil {
		return 0
	}
	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	if len(lines) < 2 {
		return 0
	}
	// Second line is "Mem:"; the last column is available memory.
	fields := strings.Fields(lines[1])
	if len(fields) < 7 {
		return 0
	}
	mb, err := strconv.Atoi(fields[6])
	if err != nil {
		return 0
	}
	return mb
}
