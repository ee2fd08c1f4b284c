package bcc

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/perfmcp/perf-mcp/internal/allowlist"
	"github.com/perfmcp/perf-mcp/internal/capability"
	"github.com/perfmcp/perf-mcp/internal/errs"
	"github.com/perfmcp/perf-mcp/internal/sandbox"
)

const (
	baseCompileEstimate = 15 * time.Second
	minCompileEstimate  = 3 * time.Second
	maxDynamicTimeout   = 45 * time.Second
	buffer              = 5 * time.Second
)

// Method values stamped into a tool's data.method field (spec §4.8).
const (
	MethodBCCPrefix        = "bcc_"
	MethodBpftraceFallback = "bpftrace_fallback"
	MethodBpftraceLinear   = "bpftrace_linear"
)

// Outcome is what a BCC runtime invocation produces: either successful
// stdout from the primary tool or its bpftrace fallback, or a taxonomy
// error. Exactly one of (Stdout populated, Error) holds.
type Outcome struct {
	Method    string
	Stdout    string
	Truncated bool
	Error     *errs.Error
}

// Runtime drives the preflight -> compiling -> tracing -> parsing ->
// complete state machine described in spec §4.5, with automatic bpftrace
// fallback. Grounded on melisai's BCCExecutor plus the per-tool timeout
// logic implied by its 50MB output cap and graceful-shutdown handling.
type Runtime struct {
	exec   *sandbox.Executor
	hints  *HintStore
	logger *zap.SugaredLogger
}

// New builds a Runtime over the given sandbox executor and hint store.
func New(exec *sandbox.Executor, hints *HintStore, logger *zap.SugaredLogger) *Runtime {
	return &Runtime{exec: exec, hints: hints, logger: logger}
}

// Run executes tool for duration, applying fallback automatically when
// preflight fails, the dynamic timeout expires, or the primary tool exits
// with empty stdout.
func (r *Runtime) Run(ctx context.Context, tool string, duration time.Duration, caps *capability.Snapshot, maxOutputBytes int64) *Outcome {
	spec, ok := Registry[tool]
	if !ok {
		return &Outcome{Error: errs.New(errs.FeatureUnavail, "unknown BCC tool "+tool)}
	}

	if !r.preflightOK(tool, caps) {
		if out := r.tryFallback(ctx, spec, duration, maxOutputBytes); out != nil {
			return out
		}
		return &Outcome{Error: errs.New(errs.CapabilityMissing, tool+" is unavailable and has no fallback on this host")}
	}

	timeout := r.dynamicTimeout(tool, duration, caps)

	start := time.Now()
	res := r.exec.Run(ctx, sandbox.Request{
		Key:            tool,
		Argv:           spec.BuildArgs(duration),
		Timeout:        timeout,
		MaxOutputBytes: maxOutputBytes,
		ProfilerClass:  spec.ProfilerClass,
	})
	elapsed := time.Since(start)

	hint := Hint{LastCompileTime: time.Now(), CompileDurationMs: elapsed.Milliseconds()}
	if res.Error == nil && res.Success {
		hint.CompileSucceeded = true
	} else if res.Error != nil {
		hint.LastError = res.Error.Message
	}
	r.hints.Update(tool, hint)

	needsFallback := res.Error != nil || (res.Success && res.Stdout == "")
	if needsFallback {
		if out := r.tryFallback(ctx, spec, duration, maxOutputBytes); out != nil {
			return out
		}
		if res.Error != nil {
			return &Outcome{Error: res.Error}
		}
		return &Outcome{Error: errs.New(errs.ParseError, tool+" produced no output")}
	}

	return &Outcome{Method: MethodBCCPrefix + tool, Stdout: res.Stdout, Truncated: res.Truncated}
}

// RunLinear drives tool's bpftrace linear-bucket fallback directly: BCC's
// own front-ends have no CLI flag to select linear over log2 bucketing
// (spec §4.8: "bpftrace with linear buckets when the input requests
// linear"), so a linear request bypasses the BCC primary tool entirely
// rather than running it and discarding the result.
func (r *Runtime) RunLinear(ctx context.Context, tool string, duration time.Duration, bucketUs int, maxOutputBytes int64) *Outcome {
	spec, ok := Registry[tool]
	if !ok {
		return &Outcome{Error: errs.New(errs.FeatureUnavail, "unknown BCC tool "+tool)}
	}
	if spec.FallbackScript == "" {
		return &Outcome{Error: errs.New(errs.FeatureUnavail, tool+" has no bpftrace fallback")}
	}
	script, ok := renderLinearFallback(spec.FallbackScript, duration, bucketUs)
	if !ok {
		return &Outcome{Error: errs.New(errs.FeatureUnavail, tool+" has no linear bpftrace template")}
	}
	if _, err := allowlist.Resolve("bpftrace"); err != nil {
		return &Outcome{Error: errs.New(errs.ToolNotFound, "bpftrace is not installed")}
	}
	res := r.exec.Run(ctx, sandbox.Request{
		Key:            "bpftrace",
		Argv:           []string{"-e", script},
		Timeout:        duration + buffer,
		MaxOutputBytes: maxOutputBytes,
		ProfilerClass:  spec.ProfilerClass,
	})
	if res.Error != nil {
		return &Outcome{Error: res.Error}
	}
	return &Outcome{Method: MethodBpftraceLinear, Stdout: res.Stdout, Truncated: res.Truncated}
}

func (r *Runtime) preflightOK(tool string, caps *capability.Snapshot) bool {
	if caps == nil {
		return false
	}
	if !caps.ToolAvailable(tool) {
		return false
	}
	return caps.CanRunPerf() || caps.BTFAvailable
}

func (r *Runtime) tryFallback(ctx context.Context, spec *ToolSpec, duration time.Duration, maxOutputBytes int64) *Outcome {
	if spec.FallbackScript == "" {
		return nil
	}
	script, ok := renderFallback(spec.FallbackScript, duration)
	if !ok {
		return nil
	}
	if _, err := allowlist.Resolve("bpftrace"); err != nil {
		return nil
	}
	res := r.exec.Run(ctx, sandbox.Request{
		Key:            "bpftrace",
		Argv:           []string{"-e", script},
		Timeout:        duration + buffer,
		MaxOutputBytes: maxOutputBytes,
		ProfilerClass:  spec.ProfilerClass,
	})
	if res.Error != nil {
		return &Outcome{Error: res.Error}
	}
	return &Outcome{Method: MethodBpftraceFallback, Stdout: res.Stdout, Truncated: res.Truncated}
}

// dynamicTimeout implements spec §4.5: user_duration + compile_estimate +
// buffer, capped at 45s. compile_estimate scales down 0.3x after a
// confirmed prior success, otherwise starts from a 15s base increased for
// a capability-poor host.
func (r *Runtime) dynamicTimeout(tool string, duration time.Duration, caps *capability.Snapshot) time.Duration {
	estimate := baseCompileEstimate
	if hint, ok := r.hints.Get(tool); ok && hint.CompileSucceeded {
		estimate = time.Duration(float64(hint.CompileDurationMs)*0.3) * time.Millisecond
		if estimate < minCompileEstimate {
			estimate = minCompileEstimate
		}
	} else if caps != nil {
		if !caps.BTFAvailable {
			estimate += 5 * time.Second
		}
		if caps.NumCPU <= 2 {
			estimate += 5 * time.Second
		}
		if caps.Containerized {
			estimate += 5 * time.Second
		}
	}

	total := duration + estimate + buffer
	if total > maxDynamicTimeout {
		total = maxDynamicTimeout
	}
	return total
}
