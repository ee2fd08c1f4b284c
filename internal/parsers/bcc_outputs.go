package parsers

import "github.com/perfmcp/perf-mcp/internal/findings"

// The tools below all share BCC's generic tabular or folded-stack shape;
// each wrapper exists to name the contract a tool handler depends on,
// mirroring melisai's per-tool ParseX wrappers in
// internal/executor/parsers.go even though most of them now delegate to
// the same two generic parsers.

// ParseRunqlat parses runqlat's power-of-2 run-queue latency histogram.
func ParseRunqlat(raw string) (*findings.Histogram, error) {
	return ParseHistogram(raw, "run_queue_latency", "us")
}

// ParseBiolatency parses biolatency -D's per-disk histograms.
func ParseBiolatency(raw string) ([]findings.Histogram, error) {
	return ParsePerDiskHistogram(raw, "us")
}

// ParseTcpconnlat parses tcpconnlat's per-connection latency table.
func ParseTcpconnlat(raw string, maxEvents int) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, maxEvents)
}

// ParseTcplife parses tcplife's per-connection lifetime table.
func ParseTcplife(raw string, maxEvents int) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, maxEvents)
}

// ParseTcpconnect parses tcpconnect's per-connection table.
func ParseTcpconnect(raw string, maxEvents int) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, maxEvents)
}

// ParseTcpretrans parses tcpretrans's per-retransmit event table.
func ParseTcpretrans(raw string, maxEvents int) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, maxEvents)
}

// ParseGethostlatency parses gethostlatency's per-resolution event table.
func ParseGethostlatency(raw string, maxEvents int) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, maxEvents)
}

// ParseBiosnoop parses biosnoop's per-I/O event table.
func ParseBiosnoop(raw string, maxEvents int) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, maxEvents)
}

// ParseExecsnoop parses execsnoop's per-exec event table.
func ParseExecsnoop(raw string, maxEvents int) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, maxEvents)
}

// ParseOpensnoop parses opensnoop's per-open event table.
func ParseOpensnoop(raw string, maxEvents int) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, maxEvents)
}

// ParseFilelife parses filelife's per-file-lifetime event table.
func ParseFilelife(raw string, maxEvents int) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, maxEvents)
}

// ParseFileslower parses fileslower's per-slow-operation event table.
func ParseFileslower(raw string, maxEvents int) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, maxEvents)
}

// ParseVfsstat parses vfsstat's periodic counter table.
func ParseVfsstat(raw string) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, 0)
}

// ParseCachestat parses cachestat's periodic hit-ratio table.
func ParseCachestat(raw string) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, 0)
}

// ParseOOMKill parses oomkill's per-kill event table.
func ParseOOMKill(raw string, maxEvents int) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, maxEvents)
}

// ParseSyscount parses syscount's per-syscall counter table, present both
// with and without the -L latency column depending on invocation flags.
func ParseSyscount(raw string) ([]findings.Event, bool) {
	return ParseTabularEvents(raw, 0)
}

// ParseProfileStacks parses `profile -f` on-CPU folded stack output.
func ParseProfileStacks(raw string) []findings.StackTrace {
	return ParseFoldedStacks(raw, "on-cpu")
}

// ParseOffcputimeStacks parses `offcputime -f` off-CPU folded stack output.
func ParseOffcputimeStacks(raw string) []findings.StackTrace {
	return ParseFoldedStacks(raw, "off-cpu")
}
