// Package triage implements the meta-tool orchestrator (C9): it fans out
// to a subset of the internal/tools registry under a mode budget, merges
// their findings, and derives ranked root-cause hypotheses from a small
// data-driven rule set. Grounded on melisai's internal/orchestrator
// (parallel collector execution, mutex-protected result map, isolated
// per-collector error capture) generalized from "run everything" to
// "run a mode-scoped subset and reason about what came back".
//
// The tool registry never imports this package: handlers are a flat
// name->function map and the orchestrator is built on top of it, not
// woven into it.
package triage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/perfmcp/perf-mcp/internal/errs"
	"github.com/perfmcp/perf-mcp/internal/findings"
	"github.com/perfmcp/perf-mcp/internal/tools"
)

// ToolName is the identifier the meta-tool is advertised under. It is
// deliberately kept out of tools.Registry (spec: flat registry, no
// back-edges) and wired into the MCP server as a separate tool.
const ToolName = "perf_triage_diagnose"

// Mode is the closed triage depth enum; each maps to the duration_seconds
// passed to the subordinate tools.
type Mode string

const (
	ModeQuick    Mode = "quick"
	ModeStandard Mode = "standard"
	ModeDeep     Mode = "deep"
)

var modeDuration = map[Mode]time.Duration{
	ModeQuick:    5 * time.Second,
	ModeStandard: 10 * time.Second,
	ModeDeep:     30 * time.Second,
}

func parseMode(params map[string]interface{}) Mode {
	v, _ := params["mode"].(string)
	switch Mode(v) {
	case ModeQuick, ModeStandard, ModeDeep:
		return Mode(v)
	default:
		return ModeStandard
	}
}

// Hypothesis is one ranked root-cause candidate the rule engine fired.
type Hypothesis struct {
	Title              string            `json:"title"`
	Category           findings.Category `json:"category"`
	Confidence         float64           `json:"confidence"`
	Severity           findings.Severity `json:"severity"`
	SupportingFindings []string          `json:"supporting_findings"`
	SuggestedActions   []string          `json:"suggested_actions"`
}

// Report is the triage meta-tool's data payload.
type Report struct {
	Target           string              `json:"target"`
	Mode             Mode                `json:"mode"`
	ToolsRun         []string            `json:"tools_run"`
	ToolsFailed      []string            `json:"tools_failed"`
	Findings         []findings.Finding  `json:"findings"`
	Hypotheses       []Hypothesis        `json:"hypotheses"`
	ExecutiveSummary string              `json:"executive_summary"`
	Actions          []string            `json:"actions"`
}

// subordinateCall is one fan-out invocation: a tool name plus the params it
// should run with, recorded up front so the plan is inspectable before any
// handler runs.
type subordinateCall struct {
	tool   string
	params map[string]interface{}
}

// Diagnose is the perf_triage_diagnose handler. It is not part of
// tools.Registry; the MCP server wires it in as an additional tool sharing
// the same Deps the rest of the registry uses.
func Diagnose(ctx context.Context, d *tools.Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope(ToolName, tools.ToolVersion, d.Hostname, start)

	mode := parseMode(params)
	budget := modeDuration[mode]

	pid, hasPID, errv := optionalPID(params)
	if errv != nil {
		env.Error = errv
		return env
	}
	processName, _ := params["process_name"].(string)
	focus, _ := params["focus"].(string)
	if focus == "" {
		focus = "auto"
	}
	includeExecTrace := false
	if v, ok := params["include_exec_trace"].(bool); ok {
		includeExecTrace = v
	}

	target := processName
	if hasPID {
		if target != "" {
			target = fmt.Sprintf("%s (pid %d)", target, pid)
		} else {
			target = fmt.Sprintf("pid %d", pid)
		}
	}
	if target == "" {
		target = "host"
	}

	var hasBPF bool
	if d.Caps != nil {
		if caps := d.Caps(); caps != nil {
			hasBPF = caps.CanRunBPF()
		}
	}

	plan := buildPlan(mode, focus, hasPID, pid, includeExecTrace, hasBPF, budget)

	results := runFanOut(ctx, d, plan)

	var toolsRun, toolsFailed []string
	var merged []findings.Finding
	for _, r := range results {
		toolsRun = append(toolsRun, r.tool)
		if r.failed {
			toolsFailed = append(toolsFailed, r.tool)
			continue
		}
		merged = append(merged, r.env.Findings...)
	}
	sort.Strings(toolsRun)
	sort.Strings(toolsFailed)

	deduped := dedupeFindings(merged)
	hypotheses := evaluateRules(deduped)

	report := Report{
		Target:           target,
		Mode:             mode,
		ToolsRun:         toolsRun,
		ToolsFailed:      toolsFailed,
		Findings:         deduped,
		Hypotheses:       hypotheses,
		ExecutiveSummary: executiveSummary(target, deduped, hypotheses),
		Actions:          topActions(hypotheses),
	}

	env.Data = report
	env.Findings = deduped
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

func optionalPID(params map[string]interface{}) (int, bool, *errs.Error) {
	v, ok := params["pid"]
	if !ok {
		return 0, false, nil
	}
	n, ok := v.(float64)
	if !ok || n <= 0 || n != float64(int(n)) {
		return 0, false, errs.New(errs.InvalidPID, "pid must be a positive integer")
	}
	return int(n), true, nil
}

// buildPlan implements spec §4.9 steps 1-3: snapshot+use_check always run;
// standard/deep add syscall_count/thread_profile/io_layers when the
// capability and pid preconditions hold; deep adds slow-ops and,
// optionally, exec_trace.
func buildPlan(mode Mode, focus string, hasPID bool, pid int, includeExecTrace, hasBPF bool, budget time.Duration) []subordinateCall {
	durationSec := budget.Seconds()
	base := map[string]interface{}{"duration_seconds": durationSec}

	var plan []subordinateCall
	plan = append(plan, subordinateCall{"perf_system_snapshot", base})
	plan = append(plan, subordinateCall{"perf_system_use_check", base})

	if mode == ModeQuick {
		return plan
	}

	if hasBPF && (focus == "auto" || focus == "cpu" || focus == "process") {
		plan = append(plan, subordinateCall{"perf_process_syscalls", base})
	}
	if hasPID {
		plan = append(plan, subordinateCall{"perf_process_thread_profile", map[string]interface{}{"pid": float64(pid)}})
	}
	if hasBPF && (focus == "auto" || focus == "io") {
		plan = append(plan, subordinateCall{"perf_io_latency", base})
	}

	if mode != ModeDeep {
		return plan
	}

	if focus == "auto" || focus == "io" {
		plan = append(plan, subordinateCall{"perf_io_slow_ops", base})
	}
	if includeExecTrace {
		plan = append(plan, subordinateCall{"perf_process_exec_trace", base})
	}
	return plan
}

type subordinateResult struct {
	tool   string
	env    findings.Envelope
	failed bool
}

// runFanOut executes every planned subordinate concurrently via errgroup,
// recovering from any handler panic so one broken tool never takes down
// the rest of the triage (spec §4.9 step 4).
func runFanOut(ctx context.Context, d *tools.Deps, plan []subordinateCall) []subordinateResult {
	results := make([]subordinateResult, len(plan))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range plan {
		i, call := i, call
		g.Go(func() error {
			env, failed := runIsolated(gctx, d, call.tool, call.params)
			mu.Lock()
			results[i] = subordinateResult{tool: call.tool, env: env, failed: failed}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runIsolated(ctx context.Context, d *tools.Deps, name string, params map[string]interface{}) (env findings.Envelope, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			env = findings.NewEnvelope(name, tools.ToolVersion, d.Hostname, time.Now())
			env.Error = errs.New(errs.ExecutionFailed, fmt.Sprintf("%s panicked: %v", name, r))
			failed = true
		}
	}()
	env = tools.Dispatch(ctx, d, name, params)
	return env, env.Error != nil
}

// dedupeFindings collapses repeated finding ids (e.g. perf_system_snapshot
// and perf_system_use_check both emit *_use_pressure ids) keeping the more
// severe instance, per spec §4.9 step 5.
func dedupeFindings(fs []findings.Finding) []findings.Finding {
	byID := map[string]findings.Finding{}
	var order []string
	for _, f := range fs {
		existing, ok := byID[f.ID]
		if !ok {
			byID[f.ID] = f
			order = append(order, f.ID)
			continue
		}
		if f.Severity.Outranks(existing.Severity) {
			byID[f.ID] = f
		}
	}
	out := make([]findings.Finding, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

func executiveSummary(target string, fs []findings.Finding, hyps []Hypothesis) string {
	summary := fmt.Sprintf("%s: %s", target, findings.Summarize(fs))
	if len(hyps) > 0 {
		summary += fmt.Sprintf("; top hypothesis: %s (%.0f%% confidence)", hyps[0].Title, hyps[0].Confidence*100)
	}
	return summary
}

// topActions builds the deduplicated action list from spec §4.9 step 7:
// the top two actions from each of the top three hypotheses, in rank
// order, with duplicates dropped.
func topActions(hyps []Hypothesis) []string {
	seen := map[string]bool{}
	var out []string
	limit := len(hyps)
	if limit > 3 {
		limit = 3
	}
	for _, h := range hyps[:limit] {
		n := len(h.SuggestedActions)
		if n > 2 {
			n = 2
		}
		for _, a := range h.SuggestedActions[:n] {
			key := strings.ToLower(a)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, a)
		}
	}
	return out
}
