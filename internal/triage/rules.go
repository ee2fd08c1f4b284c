package triage

import (
	"sort"
	"strings"

	"github.com/perfmcp/perf-mcp/internal/findings"
)

// rule is one data-driven root-cause hypothesis: it fires when every
// prefix in requires matches at least one merged finding id (prefix
// matching lets a rule target dynamically-suffixed ids like
// "io_device_util_high_sda" without enumerating every device). Rules are
// independent of each other and of evaluation order (spec §4.9 step 6).
type rule struct {
	title      string
	category   findings.Category
	severity   findings.Severity
	confidence float64
	requires   []string
	actions    []string
}

var rules = []rule{
	{
		title:      "excessive syscall overhead",
		category:   findings.CategoryProcess,
		severity:   findings.SeverityWarning,
		confidence: 0.6,
		requires:   []string{"high_syscall_rate", "dominant_syscall"},
		actions: []string{
			"trace the calling code path with an eBPF syscall tracer or strace -c",
			"batch or cache the dominant syscall instead of issuing it per iteration",
		},
	},
	{
		title:      "CPU pressure driven by a dominant syscall",
		category:   findings.CategoryCPU,
		severity:   findings.SeverityWarning,
		confidence: 0.65,
		requires:   []string{"dominant_syscall", "cpu_use_pressure"},
		actions: []string{
			"profile on-CPU stacks to find where the dominant syscall is invoked",
			"check for busy-polling loops that could block on I/O instead",
		},
	},
	{
		title:      "disk saturation compounding I/O latency",
		category:   findings.CategoryIO,
		severity:   findings.SeverityWarning,
		confidence: 0.6,
		requires:   []string{"disk_use_pressure", "io_latency_high"},
		actions: []string{
			"identify the process driving disk queue depth with perf_io_top",
			"move the workload to faster storage or spread it across devices",
		},
	},
	{
		title:      "memory pressure from a suspected leak",
		category:   findings.CategoryMemory,
		severity:   findings.SeverityCritical,
		confidence: 0.7,
		requires:   []string{"memory_use_pressure", "memory_leak_suspected"},
		actions: []string{
			"inspect the top allocation stacks from perf_memory_leak_check",
			"restart the affected process if growth is unbounded and a fix is not immediate",
		},
	},
	{
		title:      "network retransmit storm under saturation",
		category:   findings.CategoryNetwork,
		severity:   findings.SeverityWarning,
		confidence: 0.6,
		requires:   []string{"network_use_pressure", "tcp_retransmits_observed"},
		actions: []string{
			"check for packet loss on the network path with ss and driver counters",
			"review TCP congestion control and retransmit timeout settings",
		},
	},
	{
		title:      "cgroup CPU throttling under host pressure",
		category:   findings.CategoryContainer,
		severity:   findings.SeverityWarning,
		confidence: 0.6,
		requires:   []string{"cgroup_cpu_throttling", "cpu_use_pressure"},
		actions: []string{
			"raise the cgroup's CPU quota or scale out replicas",
			"check whether other cgroups on the host are starving this one",
		},
	},
	{
		title:      "file descriptor leak under syscall load",
		category:   findings.CategoryProcess,
		severity:   findings.SeverityWarning,
		confidence: 0.55,
		requires:   []string{"fd_leak_suspected", "high_syscall_rate"},
		actions: []string{
			"capture perf_process_fd_trace over a longer window to confirm the growth rate",
			"audit the process for unclosed sockets, files, or pipes",
		},
	},
}

func hasFindingWithPrefix(fs []findings.Finding, prefix string) (findings.Finding, bool) {
	for _, f := range fs {
		if strings.HasPrefix(f.ID, prefix) {
			return f, true
		}
	}
	return findings.Finding{}, false
}

// evaluateRules fires every rule whose full set of required finding-id
// prefixes is present in fs, sorted by confidence descending (ties broken
// by title for determinism).
func evaluateRules(fs []findings.Finding) []Hypothesis {
	var out []Hypothesis
	for _, r := range rules {
		var supporting []string
		var hasCritical bool
		matched := true
		for _, prefix := range r.requires {
			f, ok := hasFindingWithPrefix(fs, prefix)
			if !ok {
				matched = false
				break
			}
			supporting = append(supporting, f.ID)
			if f.Severity == findings.SeverityCritical {
				hasCritical = true
			}
		}
		if !matched {
			continue
		}
		confidence := r.confidence
		if hasCritical {
			confidence += 0.2
		}
		if confidence > 0.95 {
			confidence = 0.95
		}
		out = append(out, Hypothesis{
			Title:              r.title,
			Category:           r.category,
			Confidence:         confidence,
			Severity:           r.severity,
			SupportingFindings: supporting,
			SuggestedActions:   r.actions,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Title < out[j].Title
	})
	return out
}
