// Package allowlist is the compile-time policy table (C1): which
// executables may be spawned, with which flags, and which procfs/sysfs
// paths may be opened. It is pure and has no mutable state — the same
// tables the teacher's internal/executor/security.go hard-coded as
// AllowedBinaryPaths, generalized into the spec's {key, path, flags,
// numeric-args} shape plus a matching path policy.
package allowlist

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Entry describes one allow-listed executable.
type Entry struct {
	Key                string
	SearchDirs         []string // candidate absolute directories, in order
	PermittedFlags     map[string]bool
	AcceptsNumericArgs bool
	// AcceptsScriptArg permits exactly one verbatim argument immediately
	// following "-e", used only for bpftrace's fixed, embedded fallback
	// templates (never free-form user text — the caller renders those
	// templates from validated numeric inputs before this gate ever runs).
	AcceptsScriptArg bool
}

// searchDirs mirrors melisai's AllowedBinaryPaths: the fixed set of
// directories BCC tools and standard utilities are expected to live in.
var searchDirs = []string{
	"/usr/share/bcc/tools",
	"/usr/share/bcc/tools/old",
	"/usr/sbin",
	"/usr/bin",
	"/usr/local/bin",
	"/usr/local/sbin",
	"/snap/bin",
}

// bccTools is the closed set of 18 BCC front-ends this server knows how to
// drive. Each accepts only duration/count-shaped numeric tokens and a small
// number of fixed flags, never arbitrary arguments.
var bccTools = []string{
	"biolatency", "runqlat", "runqlen", "offcputime", "profile",
	"tcpconnlat", "tcpretrans", "tcplife", "gethostlatency", "cachestat",
	"execsnoop", "oomkill", "memleak", "biotop", "syscount",
	"ext4slower", "xfsslower", "biosnoop",
}

// standardFlags maps the non-BCC observability utilities (sysstat, perf,
// ss, and the bpftrace interpreter) to their permitted flags.
var standardFlags = map[string]map[string]bool{
	"perf":     flagSet("record", "report", "sched", "stat", "-a", "-g", "-F", "--stdio", "latency", "timehist", "-e", "-p", "-o"),
	"bpftrace": flagSet("-e", "-p", "-d"),
	"iostat":   flagSet("-x", "-z", "-k", "-t", "-d", "-y"),
	"vmstat":   flagSet("-a", "-w", "-t"),
	"sar":      flagSet("-u", "-r", "-b", "-n", "DEV"),
	"ss":       flagSet("-s", "-t", "-n", "-a", "-p", "-i"),
	"nstat":    flagSet("-a", "-z"),
	"bpftool":  flagSet("prog", "map", "btf", "list", "-j"),
}

func flagSet(flags ...string) map[string]bool {
	m := make(map[string]bool, len(flags))
	for _, f := range flags {
		m[f] = true
	}
	return m
}

// Table is the closed map of allow-listed executable keys. It is built once
// at package init and never mutated.
var Table = buildTable()

func buildTable() map[string]Entry {
	t := make(map[string]Entry)
	for name, flags := range standardFlags {
		t[name] = Entry{
			Key:                name,
			SearchDirs:         searchDirs,
			PermittedFlags:     flags,
			AcceptsNumericArgs: true,
			AcceptsScriptArg:   name == "bpftrace",
		}
	}
	for _, name := range bccTools {
		t[name] = Entry{
			Key:                name,
			SearchDirs:         searchDirs,
			PermittedFlags:     flagSet("-D", "-d", "-m", "-a", "-f", "-fK", "-j", "1"),
			AcceptsNumericArgs: true,
		}
	}
	return t
}

// Resolve finds the absolute path for an allow-listed key, trying the
// "-bpfcc" suffix some distributions use for BCC's Python front-ends.
func Resolve(key string) (string, error) {
	entry, ok := Table[key]
	if !ok {
		return "", fmt.Errorf("tool %q is not in the allow-list", key)
	}
	for _, dir := range entry.SearchDirs {
		path := filepath.Join(dir, key)
		if fileExecutable(path) {
			return path, nil
		}
		pathBpfcc := filepath.Join(dir, key+"-bpfcc")
		if fileExecutable(pathBpfcc) {
			return pathBpfcc, nil
		}
	}
	return "", fmt.Errorf("tool %q not found in allowed directories", key)
}

func fileExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}

// ArgvPermitted is the I4 gate: it rejects any argv that contains a
// non-numeric, non-permitted flag, a ".." path segment, or references a key
// absent from the allow-list. It never touches the filesystem.
func ArgvPermitted(key string, argv []string) (bool, string) {
	entry, ok := Table[key]
	if !ok {
		return false, fmt.Sprintf("key %q absent from allow-list", key)
	}
	prevWasScriptFlag := false
	for _, arg := range argv {
		if strings.Contains(arg, "..") {
			return false, fmt.Sprintf("argument %q contains a path traversal segment", arg)
		}
		if entry.AcceptsScriptArg && prevWasScriptFlag {
			prevWasScriptFlag = false
			continue
		}
		if entry.PermittedFlags[arg] {
			prevWasScriptFlag = entry.AcceptsScriptArg && arg == "-e"
			continue
		}
		if entry.AcceptsNumericArgs && isNumericToken(arg) {
			continue
		}
		return false, fmt.Sprintf("argument %q is not permitted for %q", arg, key)
	}
	return true, ""
}

func isNumericToken(s string) bool {
	if s == "" {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	// a leading dash marks a flag, which must come from the permitted set.
	if strings.HasPrefix(s, "-") {
		return false
	}
	// allow bare device/identifier names composed of word characters, used
	// as trailing positional args to tools like funccount ("tcp_*").
	for _, r := range s {
		if !(r == '_' || r == '*' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// --- Path policy ---

var procPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/proc/(stat|loadavg|meminfo|vmstat|version|cpuinfo|diskstats|uptime)$`),
	regexp.MustCompile(`^/proc/net/(dev|snmp|tcp|tcp6)$`),
	regexp.MustCompile(`^/proc/pressure/(cpu|memory|io)$`),
	regexp.MustCompile(`^/proc/sys/kernel/(perf_event_paranoid|sched_latency_ns|sched_min_granularity_ns|osrelease)$`),
	regexp.MustCompile(`^/proc/[0-9]+/(stat|status|cmdline|cgroup|io|comm)$`),
	regexp.MustCompile(`^/proc/[0-9]+/fd(/[0-9]+)?$`),
	regexp.MustCompile(`^/proc/[0-9]+/task(/[0-9]+/stat)?$`),
	regexp.MustCompile(`^/proc/[0-9]+/net/(dev|snmp|tcp|tcp6)$`),
}

var sysPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/sys/fs/cgroup(/.*)?/(cpu\.(stat|max)|memory\.(current|max|stat)|io\.stat|pids\.(current|max)|cgroup\.controllers)$`),
	regexp.MustCompile(`^/sys/block/[^/]+/(stat|queue/(scheduler|rotational|read_ahead_kb|nr_requests))$`),
	regexp.MustCompile(`^/sys/devices/system/cpu/cpu[0-9]+/cpufreq/scaling_(cur_freq|governor)$`),
	regexp.MustCompile(`^/sys/devices/system/node/node[0-9]+/(meminfo|numastat)$`),
	regexp.MustCompile(`^/sys/class/dmi/id/(sys_vendor|product_name|bios_vendor)$`),
	regexp.MustCompile(`^/sys/kernel/btf/vmlinux$`),
	regexp.MustCompile(`^/sys/kernel/mm/transparent_hugepage/enabled$`),
}

// PathReadable is the I5 gate. It refuses any path containing a ".."
// segment outright, then checks the path against the /proc and /sys regex
// sets. No other location is ever readable through the safe reader.
func PathReadable(path string) bool {
	if strings.Contains(path, "..") {
		return false
	}
	for _, re := range procPatterns {
		if re.MatchString(path) {
			return true
		}
	}
	for _, re := range sysPatterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
