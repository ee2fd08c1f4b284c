package tools

import (
	"context"
	"strconv"
	"time"

	"github.com/perfmcp/perf-mcp/internal/bcc"
	"github.com/perfmcp/perf-mcp/internal/errs"
	"github.com/perfmcp/perf-mcp/internal/findings"
	"github.com/perfmcp/perf-mcp/internal/parsers"
	"github.com/perfmcp/perf-mcp/internal/sandbox"
)

const defaultProfileDuration = 10 * time.Second

// CPUProfile is perf_cpu_profile: a BCC profile folded-stack CPU sample,
// optionally persisted as an artifact for external flamegraph rendering.
func CPUProfile(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_cpu_profile", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, defaultProfileDuration)
	if errv != nil {
		env.Error = errv
		return env
	}

	outcome := d.BCC.Run(ctx, "profile", duration, d.Caps(), int64(d.Cfg.Output.Profile))
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	stacks := parsers.ParseProfileStacks(outcome.Stdout)
	data := map[string]interface{}{
		"method":      outcome.Method,
		"stack_count": len(stacks),
		"stacks":      topStacks(stacks, 50),
	}

	if boolParam(params, "store_artifact", false) && d.Artifacts != nil {
		ref, err := d.Artifacts.Put(d.Hostname, "perf_cpu_profile", "folded_stacks", "profile.folded", []byte(outcome.Stdout))
		if err == nil {
			data["artifact_id"] = ref.ID
		}
	}

	env.Data = data
	env.Truncated = outcome.Truncated
	env.Findings = stackFindings("cpu", stacks)
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// CPUOffCPUProfile is perf_cpu_offcpu_profile: BCC offcputime folded stacks
// for time spent blocked rather than running.
func CPUOffCPUProfile(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_cpu_offcpu_profile", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, defaultProfileDuration)
	if errv != nil {
		env.Error = errv
		return env
	}

	outcome := d.BCC.Run(ctx, "offcputime", duration, d.Caps(), int64(d.Cfg.Output.Profile))
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	stacks := parsers.ParseOffcputimeStacks(outcome.Stdout)
	env.Data = map[string]interface{}{
		"method":      outcome.Method,
		"stack_count": len(stacks),
		"stacks":      topStacks(stacks, 50),
	}
	env.Truncated = outcome.Truncated
	env.Findings = stackFindings("offcpu", stacks)
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// CPURunqLatency is perf_cpu_runq_latency: BCC runqlat's run-queue wait
// histogram, with bpftrace fallback baked into the runtime.
func CPURunqLatency(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_cpu_runq_latency", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, 5*time.Second)
	if errv != nil {
		env.Error = errv
		return env
	}

	histType, errv := histogramTypeParam(params)
	if errv != nil {
		env.Error = errv
		return env
	}

	var outcome *bcc.Outcome
	if histType == "linear" {
		bucketMs, errv := linearBucketParam(params)
		if errv != nil {
			env.Error = errv
			return env
		}
		outcome = d.BCC.RunLinear(ctx, "runqlat", duration, bucketMs*1000, d.Cfg.Output.Default)
	} else {
		outcome = d.BCC.Run(ctx, "runqlat", duration, d.Caps(), d.Cfg.Output.Default)
	}
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	var hist *findings.Histogram
	var err error
	if histType == "linear" {
		hist, err = parsers.ParseLinearHistogram(outcome.Stdout, "runqlat", "us")
	} else {
		hist, err = parsers.ParseRunqlat(outcome.Stdout)
	}
	var findingsList []findings.Finding
	data := map[string]interface{}{"method": outcome.Method}
	if err != nil {
		data["parse_error"] = err.Error()
	} else {
		data["histogram"] = hist
		if hist.P99 > 10000 {
			f := findings.MakeFinding("cpu_runq_latency_high", findings.SeverityWarning,
				"run-queue latency elevated", "tasks are waiting noticeably long for CPU time", findings.CategoryCPU)
			f.Metrics = map[string]float64{"p99_us": hist.P99, "p50_us": hist.P50}
			findingsList = append(findingsList, f)
		}
	}
	env.Data = data
	env.Truncated = outcome.Truncated
	env.Findings = findingsList
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// CPUSchedLatency is perf_cpu_sched_latency: perf sched record followed by
// perf sched latency over the same on-disk perf.data, both invoked via the
// sandbox directly (not through the BCC runtime, since this is a perf(1)
// command pair rather than a BCC front-end).
func CPUSchedLatency(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_cpu_sched_latency", ToolVersion, d.Hostname, start)

	if !d.Caps().CanRunPerf() {
		env.Error = errs.New(errs.CapabilityMissing, "perf_event_paranoid forbids perf sched recording")
		return env
	}

	duration, errv := durationParam(params, 5*time.Second)
	if errv != nil {
		env.Error = errv
		return env
	}

	recordRes := d.Exec.Run(ctx, recordRequest(duration, d.Cfg.Output.Default))
	if recordRes.Error != nil {
		env.Error = recordRes.Error
		return env
	}

	latencyRes := d.Exec.Run(ctx, latencyRequest(d.Cfg.Output.Default))
	if latencyRes.Error != nil {
		env.Error = latencyRes.Error
		return env
	}

	rows := parsers.ParsePerfSchedLatency(latencyRes.Stdout)
	env.Data = map[string]interface{}{"rows": rows}
	env.Truncated = latencyRes.Truncated
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

func recordRequestTimeout(duration time.Duration) time.Duration {
	return duration + 5*time.Second
}

func recordRequest(duration time.Duration, maxBytes int64) sandbox.Request {
	return sandbox.Request{
		Key:            "perf",
		Argv:           []string{"sched", "record", "-a", "sleep", strconv.Itoa(int(duration.Round(time.Second).Seconds()))},
		Timeout:        recordRequestTimeout(duration),
		MaxOutputBytes: maxBytes,
	}
}

func latencyRequest(maxBytes int64) sandbox.Request {
	return sandbox.Request{
		Key:            "perf",
		Argv:           []string{"sched", "latency", "--stdio"},
		Timeout:        10 * time.Second,
		MaxOutputBytes: maxBytes,
	}
}

func topStacks(stacks []findings.StackTrace, n int) []findings.StackTrace {
	if len(stacks) <= n {
		return stacks
	}
	return stacks[:n]
}

func stackFindings(category string, stacks []findings.StackTrace) []findings.Finding {
	if len(stacks) == 0 {
		return nil
	}
	var total int
	var hottest findings.StackTrace
	for _, s := range stacks {
		total += s.Count
		if s.Count > hottest.Count {
			hottest = s
		}
	}
	if total == 0 {
		return nil
	}
	share := float64(hottest.Count) / float64(total) * 100
	if share < 20 {
		return nil
	}
	f := findings.MakeFinding(category+"_hot_stack", findings.SeverityInfo,
		"a single stack dominates samples", "one call stack accounts for a large share of collected samples", findings.CategoryCPU)
	f.Metrics = map[string]float64{"share_pct": share, "samples": float64(hottest.Count)}
	f.Evidence = append(f.Evidence, findings.MakeEvidence("profile", "stack", hottest, ""))
	return []findings.Finding{f}
}
