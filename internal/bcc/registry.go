// Package bcc is the BCC runtime (C5): it drives the closed set of BCC
// eBPF front-ends through the C2 sandbox, manages their large first-run
// compile cost with a dynamic timeout, and falls back to an embedded
// bpftrace template when a tool can't run. Grounded on melisai's
// internal/executor/registry.go ToolSpec/OutputType shape, reduced to the
// ~15 tools this server's tool surface actually drives.
package bcc

import (
	"strconv"
	"time"
)

// OutputType classifies which parser a tool's stdout needs.
type OutputType int

const (
	Histogram OutputType = iota
	HistogramPerDisk
	Tabular
	Folded
	Periodic
)

// ToolSpec describes one BCC front-end: how to invoke it and which
// bpftrace script to fall back to when it can't run.
type ToolSpec struct {
	Name           string
	Category       string
	OutputType     OutputType
	ProfilerClass  bool
	BuildArgs      func(d time.Duration) []string
	FallbackScript string // key into the fallback template table, empty if none
}

// Registry is the closed, compile-time set of BCC tools this server drives.
var Registry = map[string]*ToolSpec{
	"runqlat": {
		Name: "runqlat", Category: "cpu", OutputType: Histogram,
		BuildArgs:      func(d time.Duration) []string { return []string{formatSeconds(d), "1"} },
		FallbackScript: "runq_latency",
	},
	"profile": {
		Name: "profile", Category: "cpu", OutputType: Folded, ProfilerClass: true,
		BuildArgs: func(d time.Duration) []string { return []string{"-f", formatSeconds(d)} },
	},
	"offcputime": {
		Name: "offcputime", Category: "cpu", OutputType: Folded, ProfilerClass: true,
		BuildArgs: func(d time.Duration) []string { return []string{"-f", formatSeconds(d)} },
	},
	"biolatency": {
		Name: "biolatency", Category: "io", OutputType: HistogramPerDisk,
		BuildArgs:      func(d time.Duration) []string { return []string{"-D", formatSeconds(d), "1"} },
		FallbackScript: "bio_latency",
	},
	"biotop": {
		Name: "biotop", Category: "io", OutputType: Periodic,
		BuildArgs: func(d time.Duration) []string { return []string{formatSeconds(d), "1"} },
	},
	"ext4slower": {
		Name: "ext4slower", Category: "io", OutputType: Tabular,
		BuildArgs: func(d time.Duration) []string { return []string{"1", formatSeconds(d)} },
	},
	"xfsslower": {
		Name: "xfsslower", Category: "io", OutputType: Tabular,
		BuildArgs: func(d time.Duration) []string { return []string{"1", formatSeconds(d)} },
	},
	"biosnoop": {
		Name: "biosnoop", Category: "io", OutputType: Tabular,
		BuildArgs: func(d time.Duration) []string { return []string{"-d", formatSeconds(d)} },
	},
	"memleak": {
		Name: "memleak", Category: "memory", OutputType: Tabular, ProfilerClass: true,
		BuildArgs: func(d time.Duration) []string { return []string{formatSeconds(d)} },
	},
	"cachestat": {
		Name: "cachestat", Category: "memory", OutputType: Periodic,
		BuildArgs: func(d time.Duration) []string { return []string{"1", formatSeconds(d)} },
	},
	"oomkill": {
		Name: "oomkill", Category: "memory", OutputType: Tabular,
		BuildArgs: func(d time.Duration) []string { return []string{formatSeconds(d)} },
	},
	"tcpconnlat": {
		Name: "tcpconnlat", Category: "network", OutputType: Tabular,
		BuildArgs:      func(d time.Duration) []string { return []string{formatSeconds(d)} },
		FallbackScript: "tcp_connlat",
	},
	"tcplife": {
		Name: "tcplife", Category: "network", OutputType: Tabular,
		BuildArgs: func(d time.Duration) []string { return []string{formatSeconds(d)} },
	},
	"tcpretrans": {
		Name: "tcpretrans", Category: "network", OutputType: Tabular,
		BuildArgs: func(d time.Duration) []string { return []string{formatSeconds(d)} },
	},
	"gethostlatency": {
		Name: "gethostlatency", Category: "network", OutputType: Tabular,
		BuildArgs: func(d time.Duration) []string { return []string{formatSeconds(d)} },
	},
	"execsnoop": {
		Name: "execsnoop", Category: "process", OutputType: Tabular,
		BuildArgs: func(d time.Duration) []string { return []string{formatSeconds(d)} },
	},
	"syscount": {
		Name: "syscount", Category: "process", OutputType: Periodic,
		BuildArgs: func(d time.Duration) []string { return []string{"-d", formatSeconds(d)} },
	},
}

func formatSeconds(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
