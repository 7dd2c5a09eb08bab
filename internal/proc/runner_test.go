package proc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExecRunner_CapturesStdout(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), "sh", []string{"-c", "echo hello"}, 10*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit = %d", res.ExitCode)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), "sh", []string{"-c", "echo oops >&2; exit 3"}, 10*time.Second)
	if err == nil {
		t.Fatal("expected error")
	}
	if res.ExitCode != 3 {
		t.Errorf("exit = %d, want 3", res.ExitCode)
	}
	if strings.TrimSpace(res.Stderr) != "oops" {
		t.Errorf("stderr = %q", res.Stderr)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "sh", []string{"-c", "sleep 5"}, 100*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), "definitely-not-a-binary-xyz", nil, time.Second)
	if err == nil {
		t.Fatal("expected error")
	}
	if res.ExitCode != -1 {
		t.Errorf("exit = %d, want -1 for unstartable process", res.ExitCode)
	}
}

func TestFreeMemoryMB(t *testing.T) {
	out := `              total        used        free      shared  buff/cache   available
Mem:            426         180          58           3         187         204
Swap:           099          12          87
`
	r := &stubRunner{res: Result{Stdout: out}}
	if got := FreeMemoryMB(context.Background(), r); got != 204 {
		t.Errorf("got %d, want 204", got)
	}
}

func TestFreeMemoryMB_Unavailable(t *testing.T) {
	cases := []struct {
		name string
		res  Result
		err  error
	}{
		{"command fails", Result{}, errors.New("free: not found")},
		{"empty output", Result{Stdout: ""}, nil},
		{"truncated line", Result{Stdout: "header\nMem: 1 2 3\n"}, nil},
		{"non-numeric", Result{Stdout: "header\nMem: a b c d e f g\n"}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &stubRunner{res: tc.res, err: tc.err}
			if got := FreeMemoryMB(context.Background(), r); got != 0 {
				t.Errorf("got %d, want 0", got)
			}
		})
	}
}

type stubRunner struct {
	res Result
	err error
}

func (s *stubRunner) Run(context.Context, string, []string, time.Duration) (Result, error) {
	return s.res, s.err
}
