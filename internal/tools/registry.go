// Package tools holds the ~23 tool handlers (C8): each validates its input,
// picks a method given the capability snapshot, drives C2/C3/C5, parses via
// C6, and emits findings via C7. Grounded per-handler on a melisai collector
// (internal/collector/*.go) or registry entry, renamed onto the
// perf_<domain>_<action> surface (spec §6).
package tools

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/perfmcp/perf-mcp/internal/artifact"
	"github.com/perfmcp/perf-mcp/internal/bcc"
	"github.com/perfmcp/perf-mcp/internal/capability"
	"github.com/perfmcp/perf-mcp/internal/config"
	"github.com/perfmcp/perf-mcp/internal/ebpfnative"
	"github.com/perfmcp/perf-mcp/internal/errs"
	"github.com/perfmcp/perf-mcp/internal/findings"
	"github.com/perfmcp/perf-mcp/internal/reader"
	"github.com/perfmcp/perf-mcp/internal/sandbox"
)

// ToolVersion is stamped into every envelope (spec §3).
const ToolVersion = "1.0.0"

// Deps bundles every dependency a handler may need. A single Deps value is
// constructed once in cmd/perf-mcp and shared by every handler invocation.
type Deps struct {
	Exec         *sandbox.Executor
	BCC          *bcc.Runtime
	Reader       *reader.Reader
	NativeRetrans *ebpfnative.Tracer
	Artifacts    *artifact.Store
	Caps         func() *capability.Snapshot
	Cfg          config.Config
	Logger       *zap.SugaredLogger
	Hostname     string
}

// Handler is the uniform shape every tool implements.
type Handler func(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope

// Registry is the closed set of tools advertised over MCP (spec §6). No
// entry is ever added or removed at runtime.
var Registry = map[string]Handler{
	"perf_system_snapshot":        SystemSnapshot,
	"perf_system_use_check":       SystemUseCheck,
	"perf_cgroup_resources":       CgroupResources,
	"perf_cpu_profile":            CPUProfile,
	"perf_cpu_runq_latency":       CPURunqLatency,
	"perf_cpu_sched_latency":      CPUSchedLatency,
	"perf_cpu_offcpu_profile":     CPUOffCPUProfile,
	"perf_io_latency":             IOLatency,
	"perf_io_top":                 IOTop,
	"perf_io_slow_ops":            IOSlowOps,
	"perf_io_device_stats":        IODeviceStats,
	"perf_memory_snapshot":        MemorySnapshot,
	"perf_memory_leak_check":      MemoryLeakCheck,
	"perf_memory_cache_stats":     MemoryCacheStats,
	"perf_memory_oom_history":     MemoryOOMHistory,
	"perf_network_connections":    NetworkConnections,
	"perf_network_latency":        NetworkLatency,
	"perf_network_retransmits":    NetworkRetransmits,
	"perf_network_dns_latency":    NetworkDNSLatency,
	"perf_process_syscalls":       ProcessSyscalls,
	"perf_process_exec_trace":     ProcessExecTrace,
	"perf_process_fd_trace":       ProcessFDTrace,
	"perf_process_thread_profile": ProcessThreadProfile,
}

// Dispatch runs the named handler, or returns a FEATURE_UNAVAILABLE envelope
// when name is outside the closed set (spec §6: no tool added/removed at
// runtime, so an unknown name is always a client error, never a panic).
func Dispatch(ctx context.Context, d *Deps, name string, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	h, ok := Registry[name]
	if !ok {
		env := findings.NewEnvelope(name, ToolVersion, d.Hostname, start)
		env.Error = errs.New(errs.FeatureUnavail, "unknown tool "+name)
		return env
	}
	env := h(ctx, d, params)
	env.Success = env.Error == nil
	return env
}
