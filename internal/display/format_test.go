package display

import (
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{5242880, "5.0 MiB"},
		{1073741824, "1.0 GiB"},
	}

	for _, tc := range cases {
		if got := FormatBytes(tc.bytes); got != tc.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}

func TestFormatMB(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0.0MB"},
		{1048576, "1.0MB"},
		{52428800, "50.0MB"},
		{1572864, "1.5MB"},
	}

	for _, tc := range cases {
		if got := FormatMB(tc.bytes); got != tc.want {
			t.Errorf("FormatMB(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{time.Minute, "1m"},
		{90 * time.Second, "1m 30s"},
		{75 * time.Minute, "75m"},
		{time.Hour + 15*time.Minute + 5*time.Second, "75m 5s"},
		{0, "0s"},
		{499 * time.Millisecond, "0s"},
	}

	for _, tc := range cases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	at := time.Date(2025, 8, 3, 5, 43, 12, 0, time.UTC)
	if got := FormatClock(at); got != "05:43:12" {
		t.Errorf("FormatClock = %q", got)
	}
}
