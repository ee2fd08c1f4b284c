package bcc

import (
	"fmt"
	"time"
)

// fallbackTemplates holds fixed bpftrace scripts, one per named fallback.
// Each is parameterised only by a validated duration (and, where noted, a
// PID already validated by the tool handler) interpolated with fmt.Sprintf
// into a %d placeholder — never by free-form user text. Spec §4.5: "fixed,
// embedded templates parameterised only by validated numeric inputs".
var fallbackTemplates = map[string]string{
	"runq_latency": `tracepoint:sched:sched_wakeup,tracepoint:sched:sched_wakeup_new { @qtime[args->pid] = nsecs; } tracepoint:sched:sched_switch /@qtime[args->next_pid]/ { @runq_lat = hist(nsecs - @qtime[args->next_pid]); delete(@qtime[args->next_pid]); } interval:s:%d { print(@runq_lat); exit(); }`,
	"bio_latency": `kprobe:blk_account_io_start { @start[arg0] = nsecs; } kprobe:blk_account_io_done /@start[arg0]/ { @usecs = hist((nsecs - @start[arg0]) / 1000); delete(@start[arg0]); } interval:s:%d { print(@usecs); exit(); }`,
	"tcp_connlat": `kprobe:tcp_v4_connect { @start[tid] = nsecs; } kretprobe:tcp_v4_connect /@start[tid]/ { @us = hist((nsecs - @start[tid]) / 1000); delete(@start[tid]); } interval:s:%d { print(@us); exit(); }`,
}

// renderFallback fills in the named template's duration placeholder. An
// unknown name or non-positive duration is a programming error in the
// caller, never triggered by request input directly.
func renderFallback(name string, duration time.Duration) (string, bool) {
	tmpl, ok := fallbackTemplates[name]
	if !ok {
		return "", false
	}
	secs := int(duration.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf(tmpl, secs), true
}

// linearFallbackTemplates mirror fallbackTemplates but bucket with lhist()
// instead of hist(), for callers that request linear buckets (spec §4.8,
// §8 S3). Values are normalized to microseconds before bucketing so the
// bucket width parameter means the same thing as the log2 path's output
// unit. %d placeholders are (bucket width in us, duration in seconds).
var linearFallbackTemplates = map[string]string{
	"runq_latency": `tracepoint:sched:sched_wakeup,tracepoint:sched:sched_wakeup_new { @qtime[args->pid] = nsecs; } tracepoint:sched:sched_switch /@qtime[args->next_pid]/ { @runq_lat = lhist((nsecs - @qtime[args->next_pid]) / 1000, 0, 1000000, %d); delete(@qtime[args->next_pid]); } interval:s:%d { print(@runq_lat); exit(); }`,
	"bio_latency": `kprobe:blk_account_io_start { @start[arg0] = nsecs; } kprobe:blk_account_io_done /@start[arg0]/ { @usecs = lhist((nsecs - @start[arg0]) / 1000, 0, 1000000, %d); delete(@start[arg0]); } interval:s:%d { print(@usecs); exit(); }`,
	"tcp_connlat": `kprobe:tcp_v4_connect { @start[tid] = nsecs; } kretprobe:tcp_v4_connect /@start[tid]/ { @us = lhist((nsecs - @start[tid]) / 1000, 0, 1000000, %d); delete(@start[tid]); } interval:s:%d { print(@us); exit(); }`,
}

// renderLinearFallback renders name's linear-bucket template with bucketUs
// as the lhist() step and duration as the interval, clamping both to sane
// floors the way renderFallback does for duration.
func renderLinearFallback(name string, duration time.Duration, bucketUs int) (string, bool) {
	tmpl, ok := linearFallbackTemplates[name]
	if !ok {
		return "", false
	}
	if bucketUs < 1 {
		bucketUs = 1
	}
	secs := int(duration.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf(tmpl, bucketUs, secs), true
}
