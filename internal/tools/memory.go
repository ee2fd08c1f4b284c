package tools

import (
	"context"
	"time"

	"github.com/perfmcp/perf-mcp/internal/findings"
	"github.com/perfmcp/perf-mcp/internal/parsers"
)

// MemorySnapshot is perf_memory_snapshot: /proc/meminfo, /proc/vmstat and
// /proc/pressure/memory in one read, grounded on melisai's
// MemoryCollector.Collect.
func MemorySnapshot(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_memory_snapshot", ToolVersion, d.Hostname, start)

	meminfoRaw, errv := readProc(d, "/proc/meminfo")
	if errv != nil {
		env.Error = errv
		return env
	}
	vmstatRaw, errv := readProc(d, "/proc/vmstat")
	if errv != nil {
		env.Error = errv
		return env
	}

	mem := parsers.ParseMeminfo(meminfoRaw)
	vmstat := parsers.ParseVmstat(vmstatRaw)

	var psiSome float64
	if psiRaw, errv := readProc(d, "/proc/pressure/memory"); errv == nil {
		for _, line := range parsers.ParsePressure(psiRaw) {
			if line.Kind == "some" {
				psiSome = line.Avg10
			}
		}
	}

	memTotal := float64(mem["MemTotal"])
	memAvail := float64(mem["MemAvailable"])
	availPct := 100.0
	if memTotal > 0 {
		availPct = memAvail / memTotal * 100
	}
	swapTotal := float64(mem["SwapTotal"])
	swapFree := float64(mem["SwapFree"])
	swapUsedPct := 0.0
	if swapTotal > 0 {
		swapUsedPct = (swapTotal - swapFree) / swapTotal * 100
	}

	env.Data = map[string]interface{}{
		"meminfo":           mem,
		"vmstat":            vmstat,
		"available_pct":     availPct,
		"swap_used_pct":     swapUsedPct,
		"psi_some_avg10":    psiSome,
	}

	var findingsList []findings.Finding
	if availPct <= 10 {
		f := findings.MakeFinding("memory_available_critical", findings.SeverityCritical,
			"memory availability critical", "available memory is critically low", findings.CategoryMemory)
		f.Metrics = map[string]float64{"available_pct": availPct}
		findingsList = append(findingsList, f)
	} else if availPct <= 20 {
		f := findings.MakeFinding("memory_available_low", findings.SeverityWarning,
			"memory availability low", "available memory is running low", findings.CategoryMemory)
		f.Metrics = map[string]float64{"available_pct": availPct}
		findingsList = append(findingsList, f)
	}
	env.Findings = findingsList
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// MemoryLeakCheck is perf_memory_leak_check: BCC memleak's outstanding
// allocation table, profiler-class.
func MemoryLeakCheck(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_memory_leak_check", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, 10*time.Second)
	if errv != nil {
		env.Error = errv
		return env
	}

	outcome := d.BCC.Run(ctx, "memleak", duration, d.Caps(), d.Cfg.Output.Profile)
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	events, truncated := parsers.ParseTabularEvents(outcome.Stdout, 100)
	env.Data = map[string]interface{}{"method": outcome.Method, "outstanding_allocations": events}
	env.Truncated = outcome.Truncated || truncated

	if len(events) >= 20 {
		f := findings.MakeFinding("memory_leak_suspected", findings.SeverityWarning,
			"growing outstanding allocations", "a large number of allocations remained outstanding for the sample window", findings.CategoryMemory)
		f.Metrics = map[string]float64{"outstanding_count": float64(len(events))}
		env.Findings = []findings.Finding{f}
	}
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// MemoryCacheStats is perf_memory_cache_stats: BCC cachestat's periodic
// page-cache hit-ratio table.
func MemoryCacheStats(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_memory_cache_stats", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, 5*time.Second)
	if errv != nil {
		env.Error = errv
		return env
	}

	outcome := d.BCC.Run(ctx, "cachestat", duration, d.Caps(), d.Cfg.Output.Default)
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	rows, _ := parsers.ParseCachestat(outcome.Stdout)
	env.Data = map[string]interface{}{"method": outcome.Method, "rows": rows}
	env.Truncated = outcome.Truncated
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// MemoryOOMHistory is perf_memory_oom_history: BCC oomkill's per-kill
// event table.
func MemoryOOMHistory(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_memory_oom_history", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, 10*time.Second)
	if errv != nil {
		env.Error = errv
		return env
	}

	outcome := d.BCC.Run(ctx, "oomkill", duration, d.Caps(), d.Cfg.Output.Default)
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	events, truncated := parsers.ParseOOMKill(outcome.Stdout, 50)
	env.Data = map[string]interface{}{"method": outcome.Method, "kills": events}
	env.Truncated = outcome.Truncated || truncated

	if len(events) > 0 {
		f := findings.MakeFinding("oom_kills_observed", findings.SeverityCritical,
			"OOM kills observed", "the kernel OOM killer terminated one or more processes during the sample window", findings.CategoryMemory)
		f.Metrics = map[string]float64{"kill_count": float64(len(events))}
		env.Findings = []findings.Finding{f}
	}
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}
