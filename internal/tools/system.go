package tools

import (
	"context"
	"time"

	"github.com/perfmcp/perf-mcp/internal/findings"
)

// SystemSnapshot is perf_system_snapshot: a point-in-time procfs read across
// CPU, memory, disk, network and PSI, taken via a short before/after sample
// so rate-based figures (CPU%, disk util%, drops/s) are meaningful rather
// than cumulative counters. Grounded on melisai's
// collector.SystemCollector/CPUCollector Collect methods.
func SystemSnapshot(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_system_snapshot", ToolVersion, d.Hostname, start)

	interval, errv := durationParam(params, sampleInterval)
	if errv != nil {
		env.Error = errv
		return env
	}
	if interval > 5*time.Second {
		interval = 5 * time.Second
	}

	snapshot, raw, errv := buildUSESnapshot(ctx, d, interval)
	if errv != nil {
		env.Error = errv
		return env
	}

	env.Data = raw
	env.Findings = snapshotFindings(snapshot)
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

func snapshotFindings(s USESnapshot) []findings.Finding {
	report := EvaluateUSE(s)
	var out []findings.Finding
	addIfNotOK := func(id string, category findings.Category, title string, r USEResourceReport) {
		if r.Status == StatusOK {
			return
		}
		f := findings.MakeFinding(id, severityFor(r.Status), title, title, category)
		for _, m := range []*USEMetric{r.Utilization, r.Saturation, r.Errors} {
			if m == nil {
				continue
			}
			f.Evidence = append(f.Evidence, findings.MakeEvidence(m.Name, "use_metric", m, ""))
		}
		out = append(out, f)
	}
	addIfNotOK("cpu_use_pressure", findings.CategoryCPU, "CPU shows USE-method pressure", report.CPU)
	addIfNotOK("memory_use_pressure", findings.CategoryMemory, "memory shows USE-method pressure", report.Memory)
	addIfNotOK("disk_use_pressure", findings.CategoryIO, "disk shows USE-method pressure", report.Disk)
	addIfNotOK("network_use_pressure", findings.CategoryNetwork, "network shows USE-method pressure", report.Network)
	addIfNotOK("psi_use_pressure", findings.CategorySystem, "PSI shows USE-method pressure", report.PSI)
	return out
}

func severityFor(s USEStatus) findings.Severity {
	switch s {
	case StatusCritical:
		return findings.SeverityCritical
	case StatusWarning:
		return findings.SeverityWarning
	default:
		return findings.SeverityInfo
	}
}

// SystemUseCheck is perf_system_use_check: it takes the same sample
// perf_system_snapshot would and applies the USE-method evaluator, per spec
// §4.8's description of use_check as a pure function layered on top of
// snapshot's sampling.
func SystemUseCheck(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_system_use_check", ToolVersion, d.Hostname, start)

	interval, errv := durationParam(params, sampleInterval)
	if errv != nil {
		env.Error = errv
		return env
	}
	if interval > 5*time.Second {
		interval = 5 * time.Second
	}

	snapshot, _, errv := buildUSESnapshot(ctx, d, interval)
	if errv != nil {
		env.Error = errv
		return env
	}

	report := EvaluateUSE(snapshot)
	env.Data = report
	env.Findings = snapshotFindings(snapshot)
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}
