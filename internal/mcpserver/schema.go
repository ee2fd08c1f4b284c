package mcpserver

import (
	mcpsdk "github.com/mark3labs/mcp-go/mcp"

	"github.com/perfmcp/perf-mcp/internal/triage"
)

// toolDef pairs a registry tool name with the mcp.Tool schema advertised
// for it, mirroring melisai's mcp.NewTool(...) literals in
// internal/mcp/server.go but built from a table instead of one call site
// per tool, since perf-mcp's surface is 23 tools rather than four.
type toolDef struct {
	name  string
	build func() mcpsdk.Tool
}

func durationOpt(def float64, desc string) mcpsdk.ToolOption {
	return mcpsdk.WithNumber("duration_seconds",
		mcpsdk.Description(desc),
		mcpsdk.DefaultNumber(def),
	)
}

func pidOpt(required bool, desc string) mcpsdk.ToolOption {
	if required {
		return mcpsdk.WithNumber("pid", mcpsdk.Required(), mcpsdk.Description(desc))
	}
	return mcpsdk.WithNumber("pid", mcpsdk.Description(desc))
}

// histogramOpts adds the tagged-variant discriminator a histogram tool uses
// to choose BCC's log2 buckets or a bpftrace linear fallback (spec §4.8,
// §9, §8 S3).
func histogramOpts() []mcpsdk.ToolOption {
	return []mcpsdk.ToolOption{
		mcpsdk.WithString("histogram_type",
			mcpsdk.Description("log2: BCC's native power-of-2 buckets; linear: bpftrace lhist() with fixed-width buckets"),
			mcpsdk.Enum("log2", "linear"),
			mcpsdk.DefaultString("log2"),
		),
		mcpsdk.WithNumber("linear_bucket_ms",
			mcpsdk.Description("bucket width in milliseconds when histogram_type is linear"),
			mcpsdk.DefaultNumber(1),
		),
	}
}

var toolSchemas = []toolDef{
	{"perf_system_snapshot", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_system_snapshot",
			mcpsdk.WithDescription("Point-in-time CPU/memory/disk/network/PSI snapshot derived from a short before/after procfs sample."),
			durationOpt(0.2, "sample interval in seconds, capped at 5"),
		)
	}},
	{"perf_system_use_check", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_system_use_check",
			mcpsdk.WithDescription("Runs the same sample as perf_system_snapshot and applies the USE-method (Utilization/Saturation/Errors) threshold evaluator."),
			durationOpt(0.2, "sample interval in seconds, capped at 5"),
		)
	}},
	{"perf_cgroup_resources", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_cgroup_resources",
			mcpsdk.WithDescription("cgroup v2 CPU/memory/IO/pids accounting for the cgroup a given pid belongs to, with throttling and near-limit findings."),
			pidOpt(true, "pid whose cgroup v2 membership should be inspected"),
		)
	}},
	{"perf_cpu_profile", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_cpu_profile",
			mcpsdk.WithDescription("On-CPU folded-stack sample via BCC profile, for flamegraph rendering."),
			durationOpt(10, "profiling duration in seconds"),
			mcpsdk.WithBoolean("store_artifact", mcpsdk.Description("persist the folded stacks as a retrievable artifact"), mcpsdk.DefaultBool(false)),
		)
	}},
	{"perf_cpu_runq_latency", func() mcpsdk.Tool {
		opts := append([]mcpsdk.ToolOption{
			mcpsdk.WithDescription("Run-queue (scheduler) wait-time histogram via BCC runqlat, or bpftrace lhist() when linear buckets are requested."),
			durationOpt(5, "sampling duration in seconds"),
		}, histogramOpts()...)
		return mcpsdk.NewTool("perf_cpu_runq_latency", opts...)
	}},
	{"perf_cpu_sched_latency", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_cpu_sched_latency",
			mcpsdk.WithDescription("perf sched record followed by perf sched latency, reporting per-task scheduling delay."),
			durationOpt(5, "recording duration in seconds"),
		)
	}},
	{"perf_cpu_offcpu_profile", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_cpu_offcpu_profile",
			mcpsdk.WithDescription("Off-CPU (blocked) folded-stack sample via BCC offcputime."),
			durationOpt(10, "profiling duration in seconds"),
		)
	}},
	{"perf_io_latency", func() mcpsdk.Tool {
		opts := append([]mcpsdk.ToolOption{
			mcpsdk.WithDescription("Per-disk block I/O latency histograms via BCC biolatency, or bpftrace lhist() when linear buckets are requested."),
			durationOpt(5, "sampling duration in seconds"),
		}, histogramOpts()...)
		return mcpsdk.NewTool("perf_io_latency", opts...)
	}},
	{"perf_io_top", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_io_top",
			mcpsdk.WithDescription("Top processes by block I/O volume via BCC biotop."),
			durationOpt(5, "sampling duration in seconds"),
		)
	}},
	{"perf_io_slow_ops", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_io_slow_ops",
			mcpsdk.WithDescription("Slow filesystem or block operations via ext4slower/xfsslower/biosnoop."),
			durationOpt(5, "sampling duration in seconds"),
			mcpsdk.WithString("filesystem",
				mcpsdk.Description("which layer to trace"),
				mcpsdk.Enum("ext4", "xfs", "block"),
				mcpsdk.DefaultString("block"),
			),
		)
	}},
	{"perf_io_device_stats", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_io_device_stats",
			mcpsdk.WithDescription("Per-device utilization/queue-depth/await via iostat -x."),
			mcpsdk.WithNumber("interval_seconds", mcpsdk.Description("iostat sampling interval in seconds (1-10)"), mcpsdk.DefaultNumber(1)),
		)
	}},
	{"perf_memory_snapshot", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_memory_snapshot",
			mcpsdk.WithDescription("/proc/meminfo, /proc/vmstat and memory PSI in one read, with low-availability findings."),
		)
	}},
	{"perf_memory_leak_check", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_memory_leak_check",
			mcpsdk.WithDescription("Outstanding user-space allocation table via BCC memleak."),
			durationOpt(10, "sampling duration in seconds"),
		)
	}},
	{"perf_memory_cache_stats", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_memory_cache_stats",
			mcpsdk.WithDescription("Page cache hit-ratio table via BCC cachestat."),
			durationOpt(5, "sampling duration in seconds"),
		)
	}},
	{"perf_memory_oom_history", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_memory_oom_history",
			mcpsdk.WithDescription("Kernel OOM-killer events observed during the sample window via BCC oomkill."),
			durationOpt(10, "sampling duration in seconds"),
		)
	}},
	{"perf_network_connections", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_network_connections",
			mcpsdk.WithDescription("Socket-state summary and per-connection table via ss."),
		)
	}},
	{"perf_network_latency", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_network_latency",
			mcpsdk.WithDescription("TCP connection-setup latency (tcpconnlat) or flow lifetime (tcplife)."),
			durationOpt(5, "sampling duration in seconds"),
			mcpsdk.WithString("mode",
				mcpsdk.Description("connect: setup latency via tcpconnlat; lifetime: flow duration via tcplife"),
				mcpsdk.Enum("connect", "lifetime"),
				mcpsdk.DefaultString("connect"),
			),
		)
	}},
	{"perf_network_retransmits", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_network_retransmits",
			mcpsdk.WithDescription("TCP retransmit events via the native CO-RE tracer when available, otherwise BCC tcpretrans."),
			durationOpt(5, "sampling duration in seconds"),
		)
	}},
	{"perf_network_dns_latency", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_network_dns_latency",
			mcpsdk.WithDescription("Per-resolution DNS latency via BCC gethostlatency."),
			durationOpt(10, "sampling duration in seconds"),
		)
	}},
	{"perf_process_syscalls", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_process_syscalls",
			mcpsdk.WithDescription("Per-syscall counter table via BCC syscount, with high-rate and dominant-syscall findings."),
			durationOpt(5, "sampling duration in seconds"),
		)
	}},
	{"perf_process_exec_trace", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_process_exec_trace",
			mcpsdk.WithDescription("Process exec events via BCC execsnoop."),
			durationOpt(5, "sampling duration in seconds"),
		)
	}},
	{"perf_process_fd_trace", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_process_fd_trace",
			mcpsdk.WithDescription("Two procfs-only samples of a process's open file descriptors, classified by type and checked for leak-rate growth."),
			pidOpt(true, "pid whose file descriptors should be sampled"),
			durationOpt(0.3, "time between the two samples, in seconds"),
		)
	}},
	{"perf_process_thread_profile", func() mcpsdk.Tool {
		return mcpsdk.NewTool("perf_process_thread_profile",
			mcpsdk.WithDescription("Two procfs-only samples of a process's threads, ranked by CPU-tick delta."),
			pidOpt(true, "pid whose threads should be profiled"),
			durationOpt(0.3, "time between the two samples, in seconds"),
		)
	}},
}

var triageSchema = toolDef{triage.ToolName, func() mcpsdk.Tool {
	return mcpsdk.NewTool(triage.ToolName,
		mcpsdk.WithDescription("Meta-tool: fans out to a mode-scoped subset of the other perf_* tools, merges findings, and returns ranked root-cause hypotheses with an executive summary and suggested actions."),
		pidOpt(false, "optional target pid; enables thread-level profiling"),
		mcpsdk.WithString("process_name", mcpsdk.Description("optional target process name, used for the report's executive summary")),
		mcpsdk.WithString("mode",
			mcpsdk.Description("quick: 5s snapshot only; standard: 10s with syscall/thread/io detail; deep: 30s adding slow-ops and optional exec trace"),
			mcpsdk.Enum("quick", "standard", "deep"),
			mcpsdk.DefaultString("standard"),
		),
		mcpsdk.WithString("focus",
			mcpsdk.Description("narrow the subordinate fan-out to one subsystem"),
			mcpsdk.Enum("auto", "cpu", "memory", "io", "network"),
			mcpsdk.DefaultString("auto"),
		),
		mcpsdk.WithBoolean("include_exec_trace", mcpsdk.Description("in deep mode, also run perf_process_exec_trace"), mcpsdk.DefaultBool(false)),
	)
}}
