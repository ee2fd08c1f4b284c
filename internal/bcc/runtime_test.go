package bcc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/perfmcp/perf-mcp/internal/capability"
	"github.com/perfmcp/perf-mcp/internal/errs"
	"github.com/perfmcp/perf-mcp/internal/logging"
	"github.com/perfmcp/perf-mcp/internal/sandbox"
)

func TestRenderFallbackSubstitutesDuration(t *testing.T) {
	script, ok := renderFallback("runq_latency", 7*time.Second)
	if !ok {
		t.Fatal("expected runq_latency template to exist")
	}
	if script == "" {
		t.Fatal("expected non-empty rendered script")
	}
}

func TestRenderFallbackUnknownName(t *testing.T) {
	if _, ok := renderFallback("nonexistent", time.Second); ok {
		t.Error("expected unknown fallback name to fail")
	}
}

func TestRenderLinearFallbackSubstitutesBucketAndDuration(t *testing.T) {
	script, ok := renderLinearFallback("bio_latency", 2*time.Second, 10000)
	if !ok {
		t.Fatal("expected bio_latency linear template to exist")
	}
	if !strings.Contains(script, "lhist(") {
		t.Errorf("expected a linear lhist() histogram, got %q", script)
	}
	if !strings.Contains(script, "10000") {
		t.Errorf("expected bucket width 10000 substituted, got %q", script)
	}
}

func TestRenderLinearFallbackUnknownName(t *testing.T) {
	if _, ok := renderLinearFallback("nonexistent", time.Second, 1000); ok {
		t.Error("expected unknown fallback name to fail")
	}
}

func TestRunUnknownToolReturnsFeatureUnavailable(t *testing.T) {
	rt := New(sandbox.New(logging.Noop(), time.Second), NewHintStore(t.TempDir()), logging.Noop())
	out := rt.Run(context.Background(), "not-a-real-tool", time.Second, &capability.Snapshot{}, 1024)
	if out.Error == nil || out.Error.Code != errs.FeatureUnavail {
		t.Fatalf("expected FEATURE_UNAVAILABLE, got %+v", out.Error)
	}
}

func TestRunMissingCapabilityFallsBackOrFails(t *testing.T) {
	rt := New(sandbox.New(logging.Noop(), time.Second), NewHintStore(t.TempDir()), logging.Noop())
	caps := &capability.Snapshot{AvailableTools: map[string]bool{}}
	out := rt.Run(context.Background(), "runqlat", time.Second, caps, 1024)
	if out.Error == nil {
		t.Skip("bpftrace happened to be present and usable in this environment")
	}
}

func TestDynamicTimeoutCapped(t *testing.T) {
	rt := New(sandbox.New(logging.Noop(), time.Second), NewHintStore(t.TempDir()), logging.Noop())
	caps := &capability.Snapshot{NumCPU: 1, Containerized: true, BTFAvailable: false}
	got := rt.dynamicTimeout("runqlat", 60*time.Second, caps)
	if got > maxDynamicTimeout {
		t.Errorf("expected timeout capped at %v, got %v", maxDynamicTimeout, got)
	}
}

func TestDynamicTimeoutScalesDownAfterSuccess(t *testing.T) {
	store := NewHintStore(t.TempDir())
	store.Update("runqlat", Hint{CompileSucceeded: true, CompileDurationMs: 10000})
	rt := New(sandbox.New(logging.Noop(), time.Second), store, logging.Noop())
	got := rt.dynamicTimeout("runqlat", 5*time.Second, &capability.Snapshot{})
	if got >= 5*time.Second+baseCompileEstimate {
		t.Errorf("expected a confirmed success to shrink the compile estimate, got %v", got)
	}
}

func TestHintStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	store := NewHintStore(dir)
	store.Update("biolatency", Hint{CompileSucceeded: true, CompileDurationMs: 1234})

	reopened := NewHintStore(dir)
	hint, ok := reopened.Get("biolatency")
	if !ok {
		t.Fatal("expected hint to be reloaded from disk")
	}
	if hint.CompileDurationMs != 1234 {
		t.Errorf("expected CompileDurationMs=1234, got %d", hint.CompileDurationMs)
	}
}
