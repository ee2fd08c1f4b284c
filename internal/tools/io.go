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

// IOLatency is perf_io_latency: BCC biolatency's per-disk latency
// histograms, with bpftrace fallback.
func IOLatency(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_io_latency", ToolVersion, d.Hostname, start)

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
		outcome = d.BCC.RunLinear(ctx, "biolatency", duration, bucketMs*1000, d.Cfg.Output.Default)
	} else {
		outcome = d.BCC.Run(ctx, "biolatency", duration, d.Caps(), d.Cfg.Output.Default)
	}
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	data := map[string]interface{}{"method": outcome.Method}
	var findingsList []findings.Finding
	if histType == "linear" {
		hist, err := parsers.ParseLinearHistogram(outcome.Stdout, "biolatency", "us")
		if err != nil {
			data["parse_error"] = err.Error()
		} else {
			data["histogram"] = hist
			if hist.P99 > 50000 {
				f := findings.MakeFinding("io_latency_high", findings.SeverityWarning,
					"disk latency elevated", "I/O operations are taking noticeably longer than typical", findings.CategoryIO)
				f.Metrics = map[string]float64{"p99_us": hist.P99}
				findingsList = append(findingsList, f)
			}
		}
	} else {
		hists, err := parsers.ParseBiolatency(outcome.Stdout)
		if err != nil {
			data["parse_error"] = err.Error()
		} else {
			data["histograms"] = hists
			for _, h := range hists {
				if h.P99 > 50000 {
					f := findings.MakeFinding("io_latency_high_"+h.Name, findings.SeverityWarning,
						"disk latency elevated", "I/O operations are taking noticeably longer than typical", findings.CategoryIO)
					f.Metrics = map[string]float64{"p99_us": h.P99}
					findingsList = append(findingsList, f)
				}
			}
		}
	}
	env.Data = data
	env.Truncated = outcome.Truncated
	env.Findings = findingsList
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// IOTop is perf_io_top: BCC biotop's periodic top-process-by-I/O table.
func IOTop(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_io_top", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, 5*time.Second)
	if errv != nil {
		env.Error = errv
		return env
	}

	outcome := d.BCC.Run(ctx, "biotop", duration, d.Caps(), d.Cfg.Output.Default)
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	rows, _ := parsers.ParseTabularEvents(outcome.Stdout, 50)
	env.Data = map[string]interface{}{"method": outcome.Method, "rows": rows}
	env.Truncated = outcome.Truncated
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// IOSlowOps is perf_io_slow_ops: ext4slower/xfsslower/biosnoop, selected by
// the "filesystem" param (ext4|xfs|block), default block via biosnoop.
func IOSlowOps(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_io_slow_ops", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, 5*time.Second)
	if errv != nil {
		env.Error = errv
		return env
	}

	fs := stringParam(params, "filesystem", "block")
	tool := "biosnoop"
	switch fs {
	case "ext4":
		tool = "ext4slower"
	case "xfs":
		tool = "xfsslower"
	}

	outcome := d.BCC.Run(ctx, tool, duration, d.Caps(), d.Cfg.Output.Default)
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	events, truncated := parsers.ParseTabularEvents(outcome.Stdout, 100)
	env.Data = map[string]interface{}{"method": outcome.Method, "tool": tool, "events": events}
	env.Truncated = outcome.Truncated || truncated
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// IODeviceStats is perf_io_device_stats: `iostat -xz` device-level
// utilization/queue/await, run directly through the sandbox (not a BCC
// tool).
func IODeviceStats(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_io_device_stats", ToolVersion, d.Hostname, start)

	interval, errv := intParam(params, "interval_seconds", 1, 1, 10)
	if errv != nil {
		env.Error = errv
		return env
	}

	res := d.Exec.Run(ctx, sandbox.Request{
		Key:            "iostat",
		Argv:           []string{"-x", "-z", "-k", strconv.Itoa(interval), "2"},
		Timeout:        time.Duration(interval)*time.Second + 5*time.Second,
		MaxOutputBytes: d.Cfg.Output.Default,
	})
	if res.Error != nil {
		env.Error = res.Error
		return env
	}

	devices := parsers.ParseIostatExtended(res.Stdout)
	env.Data = map[string]interface{}{"devices": devices}
	env.Truncated = res.Truncated

	var findingsList []findings.Finding
	for _, dev := range devices {
		if dev.UtilPct >= 80 {
			f := findings.MakeFinding("io_device_util_high_"+dev.Device, findings.SeverityCritical,
				"device near saturation", dev.Device+" is heavily utilized", findings.CategoryIO)
			f.Metrics = map[string]float64{"util_pct": dev.UtilPct, "await_ms": dev.AwaitMs}
			findingsList = append(findingsList, f)
		} else if dev.UtilPct >= 60 {
			f := findings.MakeFinding("io_device_util_high_"+dev.Device, findings.SeverityWarning,
				"device utilization elevated", dev.Device+" utilization is elevated", findings.CategoryIO)
			f.Metrics = map[string]float64{"util_pct": dev.UtilPct, "await_ms": dev.AwaitMs}
			findingsList = append(findingsList, f)
		}
	}
	env.Findings = findingsList
	if len(devices) == 0 {
		env.Error = errs.New(errs.ParseError, "iostat produced no parsable device rows")
	}
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}
