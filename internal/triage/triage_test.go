package triage

import (
	"context"
	"testing"
	"time"

	"github.com/perfmcp/perf-mcp/internal/findings"
	"github.com/perfmcp/perf-mcp/internal/tools"
)

func TestBuildPlanQuickModeOnlyRunsSnapshot(t *testing.T) {
	plan := buildPlan(ModeQuick, "auto", true, 42, true, true, 5*time.Second)
	if len(plan) != 2 {
		t.Fatalf("expected exactly snapshot+use_check in quick mode, got %+v", plan)
	}
	if plan[0].tool != "perf_system_snapshot" || plan[1].tool != "perf_system_use_check" {
		t.Fatalf("unexpected plan order: %+v", plan)
	}
}

func TestBuildPlanStandardModeAddsSyscallsAndThreadProfile(t *testing.T) {
	plan := buildPlan(ModeStandard, "auto", true, 42, false, true, 10*time.Second)
	names := toolNames(plan)
	mustContain(t, names, "perf_process_syscalls")
	mustContain(t, names, "perf_process_thread_profile")
	mustNotContain(t, names, "perf_io_slow_ops")
	mustNotContain(t, names, "perf_process_exec_trace")
}

func TestBuildPlanStandardModeWithoutPIDSkipsThreadProfile(t *testing.T) {
	plan := buildPlan(ModeStandard, "auto", false, 0, false, true, 10*time.Second)
	mustNotContain(t, toolNames(plan), "perf_process_thread_profile")
}

func TestBuildPlanDeepModeAddsSlowOpsAndExecTrace(t *testing.T) {
	plan := buildPlan(ModeDeep, "auto", true, 7, true, true, 30*time.Second)
	names := toolNames(plan)
	mustContain(t, names, "perf_io_slow_ops")
	mustContain(t, names, "perf_process_exec_trace")
}

func TestBuildPlanDeepModeWithoutExecTraceRequestSkipsIt(t *testing.T) {
	plan := buildPlan(ModeDeep, "auto", true, 7, false, true, 30*time.Second)
	mustNotContain(t, toolNames(plan), "perf_process_exec_trace")
}

func TestBuildPlanWithoutBPFSkipsBCCTools(t *testing.T) {
	plan := buildPlan(ModeDeep, "auto", true, 7, true, false, 30*time.Second)
	names := toolNames(plan)
	mustNotContain(t, names, "perf_process_syscalls")
	mustNotContain(t, names, "perf_io_latency")
}

func TestBuildPlanFocusNarrowsDomain(t *testing.T) {
	plan := buildPlan(ModeStandard, "memory", true, 7, false, true, 10*time.Second)
	names := toolNames(plan)
	mustNotContain(t, names, "perf_process_syscalls")
	mustNotContain(t, names, "perf_io_latency")
}

func toolNames(plan []subordinateCall) map[string]bool {
	out := map[string]bool{}
	for _, c := range plan {
		out[c.tool] = true
	}
	return out
}

func mustContain(t *testing.T, set map[string]bool, name string) {
	t.Helper()
	if !set[name] {
		t.Errorf("expected plan to include %s", name)
	}
}

func mustNotContain(t *testing.T, set map[string]bool, name string) {
	t.Helper()
	if set[name] {
		t.Errorf("expected plan to exclude %s", name)
	}
}

// TestDiagnoseIsolatesSubordinateFailures exercises the real fan-out with a
// Deps value whose Reader/BCC/Exec/Caps are all nil: every subordinate
// handler panics on first use, and Diagnose must recover each one into
// tools_failed rather than propagating the panic to the caller.
func TestDiagnoseIsolatesSubordinateFailures(t *testing.T) {
	d := &tools.Deps{Hostname: "test-host"}
	env := Diagnose(context.Background(), d, map[string]interface{}{"mode": "quick"})
	if env.Error != nil {
		t.Fatalf("Diagnose itself should not error even when every subordinate panics: %+v", env.Error)
	}
	report, ok := env.Data.(Report)
	if !ok {
		t.Fatalf("expected Report data, got %T", env.Data)
	}
	if len(report.ToolsFailed) != 2 {
		t.Fatalf("expected both quick-mode subordinates to fail in isolation, got %+v", report.ToolsFailed)
	}
	if len(report.ToolsRun) != 2 {
		t.Fatalf("expected both subordinates recorded as run, got %+v", report.ToolsRun)
	}
}

func TestExecutiveSummaryMentionsTopHypothesis(t *testing.T) {
	fs := []findings.Finding{mkFinding("cpu_use_pressure", findings.SeverityWarning)}
	hyps := []Hypothesis{{Title: "test hypothesis", Confidence: 0.8}}
	summary := executiveSummary("host", fs, hyps)
	if summary == "" {
		t.Fatal("expected non-empty summary")
	}
}
