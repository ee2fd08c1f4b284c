package tools

import (
	"context"
	"os"
	"testing"

	"github.com/perfmcp/perf-mcp/internal/errs"
)

func TestClassifyFD(t *testing.T) {
	cases := map[string]string{
		"socket:[12345]":             "socket",
		"pipe:[6789]":                "pipe",
		"anon_inode:[eventfd]":       "eventfd",
		"anon_inode:[eventpoll]":     "epoll",
		"anon_inode:[timerfd]":       "timerfd",
		"anon_inode:[signalfd]":      "signalfd",
		"anon_inode:some-other":      "anon_inode",
		"/dev/null":                  "device",
		"/var/log/app.log":          "file",
		"":                           "unknown",
	}
	for target, want := range cases {
		if got := classifyFD(target); got != want {
			t.Errorf("classifyFD(%q) = %q, want %q", target, got, want)
		}
	}
}

func TestParseTaskStat(t *testing.T) {
	// 52-field /proc/<tid>/stat line, truncated after the fields this
	// parser reads (utime=field14, stime=field15).
	line := "4242 (worker thread) S 1 4242 4242 0 -1 4194304 100 0 0 0 500 250 0 0 20 0 4 0 1000 0 0"
	sample, ok := parseTaskStat(line)
	if !ok {
		t.Fatalf("expected parse success")
	}
	if sample.TID != 4242 || sample.Comm != "worker thread" {
		t.Fatalf("unexpected sample: %+v", sample)
	}
	if sample.UtimeTicks != 500 || sample.StimeTicks != 250 {
		t.Fatalf("unexpected ticks: %+v", sample)
	}
}

func TestParseTaskStatMalformed(t *testing.T) {
	if _, ok := parseTaskStat("not a stat line"); ok {
		t.Fatalf("expected failure for malformed input")
	}
}

func TestProcessFDTraceSelf(t *testing.T) {
	d := &Deps{Hostname: "test-host"}
	params := map[string]interface{}{"pid": float64(os.Getpid())}

	env := ProcessFDTrace(context.Background(), d, params)
	if env.Error != nil {
		t.Fatalf("unexpected error: %+v", env.Error)
	}
	data, ok := env.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map data, got %T", env.Data)
	}
	if _, ok := data["fd_count_after"]; !ok {
		t.Fatalf("expected fd_count_after in data: %+v", data)
	}
}

func TestProcessFDTraceRequiresPID(t *testing.T) {
	d := &Deps{Hostname: "test-host"}
	env := ProcessFDTrace(context.Background(), d, map[string]interface{}{})
	if env.Error == nil || env.Error.Code != errs.InvalidPID {
		t.Fatalf("expected INVALID_PID error, got %+v", env.Error)
	}
}

func TestProcessFDTraceRejectsOutOfRangeDuration(t *testing.T) {
	d := &Deps{Hostname: "test-host"}
	params := map[string]interface{}{"pid": float64(os.Getpid()), "duration_seconds": float64(120)}
	env := ProcessFDTrace(context.Background(), d, params)
	if env.Error == nil || env.Error.Code != errs.InvalidDuration {
		t.Fatalf("expected INVALID_DURATION error, got %+v", env.Error)
	}
}

func TestProcessThreadProfileRejectsOutOfRangeDuration(t *testing.T) {
	d := &Deps{Hostname: "test-host"}
	params := map[string]interface{}{"pid": float64(os.Getpid()), "duration_seconds": float64(0)}
	env := ProcessThreadProfile(context.Background(), d, params)
	if env.Error == nil || env.Error.Code != errs.InvalidDuration {
		t.Fatalf("expected INVALID_DURATION error, got %+v", env.Error)
	}
}
