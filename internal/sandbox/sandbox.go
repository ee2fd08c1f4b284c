// Package sandbox is the safe executor (C2): it spawns allow-listed
// executables directly (never through a shell), enforces a deadline with a
// SIGINT-then-SIGKILL escalation, caps captured output, and admits at most
// one profiler-class child at a time. Structure follows melisai's
// internal/executor/executor.go; the policy gate is allowlist.ArgvPermitted
// instead of a root/world-writable ownership check, because this server
// runs the tools as itself rather than verifying a setuid binary.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/perfmcp/perf-mcp/internal/allowlist"
	"github.com/perfmcp/perf-mcp/internal/errs"
)

// gracefulShutdownTimeout is how long a child gets after SIGINT before SIGKILL.
const gracefulShutdownTimeout = 3 * time.Second

// Request describes a single sandboxed invocation.
type Request struct {
	Key            string
	Argv           []string
	Timeout        time.Duration
	MaxOutputBytes int64
	// ProfilerClass marks invocations that need exclusive access to
	// system-wide tracing infrastructure (§5): at most one runs at a time.
	ProfilerClass bool
}

// Result is the executor's output envelope (spec §3).
type Result struct {
	Success    bool
	Stdout     string
	Stderr     string
	ExitCode   int
	DurationMs int64
	Truncated  bool
	Error      *errs.Error
}

// Executor runs allow-listed programs with the controls described above.
type Executor struct {
	logger       *zap.SugaredLogger
	profilerMu   chan struct{} // 1-buffered semaphore: profiler-class mutex
	profilerWait time.Duration // how long a contender waits before PROFILER_BUSY
}

// New creates an Executor. profilerWait bounds how long a profiler-class
// caller blocks behind another before giving up with PROFILER_BUSY.
func New(logger *zap.SugaredLogger, profilerWait time.Duration) *Executor {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	if profilerWait <= 0 {
		profilerWait = 2 * time.Second
	}
	return &Executor{logger: logger, profilerMu: ch, profilerWait: profilerWait}
}

// Run spawns the requested program. It always returns a non-nil Result;
// every failure is reported inside Result.Error with Success=false, never
// as a Go error — callers always get a well-formed envelope.
func (e *Executor) Run(ctx context.Context, req Request) *Result {
	start := time.Now()

	// I4: the allow-list gate runs before any process is spawned.
	if ok, reason := allowlist.ArgvPermitted(req.Key, req.Argv); !ok {
		return &Result{Error: errs.New(errs.InvalidParams, reason)}
	}

	binPath, err := allowlist.Resolve(req.Key)
	if err != nil {
		return &Result{Error: errs.New(errs.ToolNotFound, err.Error())}
	}

	if req.ProfilerClass {
		release, busyErr := e.acquireProfiler(ctx)
		if busyErr != nil {
			return &Result{Error: busyErr}
		}
		defer release()
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(binPath, req.Argv...)
	cmd.Env = sanitizeEnv()
	cmd.Dir = os.TempDir()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	maxBytes := req.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = 64 * 1024
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &LimitedWriter{W: &stdout, N: maxBytes}
	cmd.Stderr = &LimitedWriter{W: &stderr, N: maxBytes}

	if e.logger != nil {
		e.logger.Debugw("exec", "tool", req.Key, "argv", req.Argv)
	}

	if err := cmd.Start(); err != nil {
		return &Result{Error: mapSpawnError(err)}
	}

	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		werr := cmd.Wait()
		done <- werr
		close(exited)
	}()

	go func() {
		select {
		case <-runCtx.Done():
			pgid := cmd.Process.Pid
			if killErr := syscall.Kill(-pgid, syscall.SIGINT); killErr != nil {
				_ = cmd.Process.Signal(syscall.SIGINT)
			}
			select {
			case <-exited:
			case <-time.After(gracefulShutdownTimeout):
				_ = syscall.Kill(-pgid, syscall.SIGKILL)
				_ = cmd.Process.Signal(os.Kill)
			}
		case <-exited:
		}
	}()

	waitErr := <-done
	duration := time.Since(start)

	res := &Result{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: duration.Milliseconds(),
	}
	if lw, ok := cmd.Stdout.(*LimitedWriter); ok {
		res.Truncated = res.Truncated || lw.Truncated
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runCtx.Err() != nil {
		// spec §4.2: every timeout carries error.code=TIMEOUT, even with
		// partial stdout captured, so bcc.Runtime's fallback trigger sees
		// it and retries via bpftrace instead of treating a truncated
		// partial result as a clean success.
		res.Truncated = true
		res.Error = errs.New(errs.Timeout, "tool did not complete within its deadline")
		return res
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			// Non-zero exit is still a well-formed result; callers decide
			// whether an empty stdout with non-zero exit is an error.
			res.Success = true
			return res
		}
		res.Error = errs.New(errs.ExecutionFailed, waitErr.Error())
		return res
	}

	res.Success = true
	return res
}

// acquireProfiler blocks until the single profiler slot is free or
// profilerWait elapses, whichever comes first.
func (e *Executor) acquireProfiler(ctx context.Context) (func(), *errs.Error) {
	timer := time.NewTimer(e.profilerWait)
	defer timer.Stop()
	select {
	case <-e.profilerMu:
		return func() { e.profilerMu <- struct{}{} }, nil
	case <-timer.C:
		return nil, errs.New(errs.ProfilerBusy, "another profiler-class tool is already running")
	case <-ctx.Done():
		return nil, errs.New(errs.ProfilerBusy, "context cancelled while waiting for the profiler slot")
	}
}

// mapSpawnError converts os/exec spawn failures into the taxonomy's
// TOOL_NOT_FOUND / PERMISSION_DENIED codes. The runner never retries.
func mapSpawnError(err error) *errs.Error {
	if errors.Is(err, os.ErrNotExist) {
		return errs.New(errs.ToolNotFound, err.Error())
	}
	if errors.Is(err, os.ErrPermission) {
		return errs.New(errs.PermissionDenied, err.Error())
	}
	return errs.New(errs.ExecutionFailed, err.Error())
}

// sanitizeEnv returns the minimal, fixed child environment: PATH and
// LANG=C only, per spec §4.2.
func sanitizeEnv() []string {
	path := os.Getenv("PATH")
	if path == "" {
		path = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
	}
	return []string{"PATH=" + path, "LANG=C"}
}
