package tools

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/perfmcp/perf-mcp/internal/allowlist"
	"github.com/perfmcp/perf-mcp/internal/errs"
	"github.com/perfmcp/perf-mcp/internal/findings"
	"github.com/perfmcp/perf-mcp/internal/parsers"
)

// ProcessSyscalls is perf_process_syscalls: BCC syscount's per-syscall
// counter table, system-wide; it takes no pid filter.
func ProcessSyscalls(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_process_syscalls", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, 5*time.Second)
	if errv != nil {
		env.Error = errv
		return env
	}

	outcome := d.BCC.Run(ctx, "syscount", duration, d.Caps(), d.Cfg.Output.Default)
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	rows, _ := parsers.ParseSyscount(outcome.Stdout)
	env.Data = map[string]interface{}{"method": outcome.Method, "syscalls": rows}
	env.Truncated = outcome.Truncated
	env.Findings = syscallFindings(rows)
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// syscallFindings flags two independent signals over a syscount table: an
// absolute volume threshold (high_syscall_rate) and a share-of-total
// threshold (dominant_syscall). Both can fire together, or neither.
func syscallFindings(rows []findings.Event) []findings.Finding {
	if len(rows) == 0 {
		return nil
	}
	var total float64
	for _, r := range rows {
		if c, ok := r.Details["count"].(float64); ok {
			total += c
		}
	}
	top := rows[0]
	topCount, ok := top.Details["count"].(float64)
	if !ok {
		return nil
	}
	var out []findings.Finding
	if topCount > 100000 {
		f := findings.MakeFinding("high_syscall_rate", findings.SeverityWarning,
			"high syscall rate", "the most frequent syscall exceeded 100000 calls during the sample window", findings.CategoryProcess)
		f.Metrics = map[string]float64{"count": topCount}
		out = append(out, f)
	}
	if total > 0 {
		share := topCount / total * 100
		if share > 50 {
			name, _ := top.Details["syscall"].(string)
			f := findings.MakeFinding("dominant_syscall", findings.SeverityWarning,
				"one syscall dominates call volume", "a single syscall accounts for most observed calls", findings.CategoryProcess)
			f.Metrics = map[string]float64{"share_pct": share}
			f.Extra = map[string]interface{}{"syscall": name}
			out = append(out, f)
		}
	}
	return out
}

// ProcessExecTrace is perf_process_exec_trace: BCC execsnoop's per-exec
// event table.
func ProcessExecTrace(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_process_exec_trace", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, 5*time.Second)
	if errv != nil {
		env.Error = errv
		return env
	}

	outcome := d.BCC.Run(ctx, "execsnoop", duration, d.Caps(), d.Cfg.Output.Default)
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	events, truncated := parsers.ParseExecsnoop(outcome.Stdout, 200)
	env.Data = map[string]interface{}{"method": outcome.Method, "execs": events}
	env.Truncated = outcome.Truncated || truncated
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// classifyFD classifies a /proc/<pid>/fd/<n> symlink target into one of
// the fixed buckets the spec's leak detector groups by.
func classifyFD(target string) string {
	switch {
	case strings.HasPrefix(target, "socket:"):
		return "socket"
	case strings.HasPrefix(target, "pipe:"):
		return "pipe"
	case strings.HasPrefix(target, "anon_inode:[eventfd]"):
		return "eventfd"
	case strings.HasPrefix(target, "anon_inode:[timerfd]"):
		return "timerfd"
	case strings.HasPrefix(target, "anon_inode:[signalfd]"):
		return "signalfd"
	case strings.HasPrefix(target, "anon_inode:[eventpoll]"):
		return "epoll"
	case strings.HasPrefix(target, "anon_inode:"):
		return "anon_inode"
	case strings.HasPrefix(target, "/dev/"):
		return "device"
	case target == "":
		return "unknown"
	default:
		return "file"
	}
}

func listFDs(pid int) (map[string]int, int, error) {
	dir := "/proc/" + strconv.Itoa(pid) + "/fd"
	if !allowlist.PathReadable(dir) {
		return nil, 0, os.ErrPermission
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}
	counts := map[string]int{}
	for _, e := range entries {
		fdPath := filepath.Join(dir, e.Name())
		if !allowlist.PathReadable(fdPath) {
			continue
		}
		target, err := os.Readlink(fdPath)
		if err != nil {
			continue
		}
		counts[classifyFD(target)]++
	}
	return counts, len(entries), nil
}

const defaultFDSampleInterval = 300 * time.Millisecond

// ProcessFDTrace is perf_process_fd_trace: two procfs-only samples of
// /proc/<pid>/fd, spaced duration_seconds apart (spec §8 S5 needs a window
// up to 60s to observe a leak's growth rate), classified by descriptor
// type and checked for runaway growth. No subprocess is spawned.
func ProcessFDTrace(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_process_fd_trace", ToolVersion, d.Hostname, start)

	pid, errv := pidParam(params)
	if errv != nil {
		env.Error = errv
		return env
	}

	interval, errv := durationParam(params, defaultFDSampleInterval)
	if errv != nil {
		env.Error = errv
		return env
	}

	before, totalBefore, err := listFDs(pid)
	if err != nil {
		env.Error = errs.New(errs.PIDNotFound, "could not enumerate file descriptors for pid")
		return env
	}

	select {
	case <-time.After(interval):
	case <-ctx.Done():
		env.Error = errs.New(errs.Timeout, "cancelled while sampling")
		return env
	}

	after, totalAfter, err := listFDs(pid)
	if err != nil {
		env.Error = errs.New(errs.PIDNotFound, "pid exited during sampling")
		return env
	}

	growthPerSec := float64(totalAfter-totalBefore) / interval.Seconds()
	netChange := totalAfter - totalBefore

	env.Data = map[string]interface{}{
		"pid":                pid,
		"fd_count_before":    totalBefore,
		"fd_count_after":     totalAfter,
		"by_type_before":     before,
		"by_type_after":      after,
		"growth_per_sec":     growthPerSec,
		"net_change":         netChange,
	}

	if growthPerSec > 10 || netChange > 50 {
		f := findings.MakeFinding("fd_leak_suspected", findings.SeverityWarning,
			"file descriptor count growing quickly", "the process's open file descriptor count grew faster than expected during the sample window", findings.CategoryProcess)
		f.Metrics = map[string]float64{"growth_per_sec": growthPerSec, "net_change": float64(netChange)}
		env.Findings = []findings.Finding{f}
	}
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

type threadSample struct {
	TID       int
	Comm      string
	UtimeTicks uint64
	StimeTicks uint64
}

func parseTaskStat(content string) (threadSample, bool) {
	open := strings.IndexByte(content, '(')
	closeIdx := strings.LastIndexByte(content, ')')
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return threadSample{}, false
	}
	tid, err := strconv.Atoi(strings.TrimSpace(content[:open]))
	if err != nil {
		return threadSample{}, false
	}
	comm := content[open+1 : closeIdx]
	rest := strings.Fields(content[closeIdx+1:])
	// rest[0] is state; utime is field 14, stime field 15 counting from
	// pid=1, so rest[11] and rest[12] (rest starts at field 3/state).
	if len(rest) < 13 {
		return threadSample{}, false
	}
	utime, _ := strconv.ParseUint(rest[11], 10, 64)
	stime, _ := strconv.ParseUint(rest[12], 10, 64)
	return threadSample{TID: tid, Comm: comm, UtimeTicks: utime, StimeTicks: stime}, true
}

func listThreads(d *Deps, pid int) (map[int]threadSample, error) {
	dir := "/proc/" + strconv.Itoa(pid) + "/task"
	if !allowlist.PathReadable(dir) {
		return nil, os.ErrPermission
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := map[int]threadSample{}
	for _, e := range entries {
		tid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		statRaw, errv := readProc(d, dir+"/"+e.Name()+"/stat")
		if errv != nil {
			continue
		}
		if sample, ok := parseTaskStat(statRaw); ok {
			out[tid] = sample
		}
	}
	return out, nil
}

const defaultThreadSampleInterval = 300 * time.Millisecond

// ProcessThreadProfile is perf_process_thread_profile: two samples of
// /proc/<pid>/task/*/stat spaced duration_seconds apart, ranking threads by
// CPU-tick delta. Grounded on melisai's ProcessCollector.
func ProcessThreadProfile(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_process_thread_profile", ToolVersion, d.Hostname, start)

	pid, errv := pidParam(params)
	if errv != nil {
		env.Error = errv
		return env
	}

	interval, errv := durationParam(params, defaultThreadSampleInterval)
	if errv != nil {
		env.Error = errv
		return env
	}

	before, err := listThreads(d, pid)
	if err != nil {
		env.Error = errs.New(errs.PIDNotFound, "could not enumerate threads for pid")
		return env
	}

	select {
	case <-time.After(interval):
	case <-ctx.Done():
		env.Error = errs.New(errs.Timeout, "cancelled while sampling")
		return env
	}

	after, err := listThreads(d, pid)
	if err != nil {
		env.Error = errs.New(errs.PIDNotFound, "pid exited during sampling")
		return env
	}

	type threadUsage struct {
		TID     int    `json:"tid"`
		Comm    string `json:"comm"`
		CPUPct  float64 `json:"cpu_pct"`
	}
	intervalTicks := interval.Seconds() * 100 // assume USER_HZ=100
	var usages []threadUsage
	for tid, a := range after {
		b, ok := before[tid]
		if !ok {
			continue
		}
		deltaTicks := float64((a.UtimeTicks + a.StimeTicks) - (b.UtimeTicks + b.StimeTicks))
		pct := deltaTicks / intervalTicks * 100
		usages = append(usages, threadUsage{TID: tid, Comm: a.Comm, CPUPct: pct})
	}
	sort.Slice(usages, func(i, j int) bool { return usages[i].CPUPct > usages[j].CPUPct })
	if len(usages) > 30 {
		usages = usages[:30]
	}

	env.Data = map[string]interface{}{"pid": pid, "thread_count": len(after), "threads": usages}
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}
