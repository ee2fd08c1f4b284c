package parsers

import (
	"strconv"
	"strings"
)

// CgroupCPUStat is the parsed content of a cgroup v2 cpu.stat file.
type CgroupCPUStat struct {
	UsageUsec, UserUsec, SystemUsec uint64
	NrPeriods, NrThrottled          uint64
	ThrottledUsec                   uint64
}

// ParseCgroupCPUStat parses cpu.stat's "key value" lines.
func ParseCgroupCPUStat(content string) CgroupCPUStat {
	var s CgroupCPUStat
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "usage_usec":
			s.UsageUsec = v
		case "user_usec":
			s.UserUsec = v
		case "system_usec":
			s.SystemUsec = v
		case "nr_periods":
			s.NrPeriods = v
		case "nr_throttled":
			s.NrThrottled = v
		case "throttled_usec":
			s.ThrottledUsec = v
		}
	}
	return s
}

// CgroupCPUMax is the parsed content of cpu.max ("$MAX $PERIOD" or "max $PERIOD").
type CgroupCPUMax struct {
	Unlimited      bool
	QuotaUs        int64
	PeriodUs       int64
}

// ParseCgroupCPUMax parses cpu.max.
func ParseCgroupCPUMax(content string) CgroupCPUMax {
	fields := strings.Fields(content)
	m := CgroupCPUMax{PeriodUs: 100000}
	if len(fields) == 0 {
		m.Unlimited = true
		return m
	}
	if fields[0] == "max" {
		m.Unlimited = true
	} else {
		m.QuotaUs, _ = strconv.ParseInt(fields[0], 10, 64)
	}
	if len(fields) > 1 {
		m.PeriodUs, _ = strconv.ParseInt(fields[1], 10, 64)
	}
	return m
}

// ParseCgroupMemory parses a flat "key value" cgroup v2 memory controller
// file (memory.current is a bare integer; memory.stat is key/value pairs).
// Both shapes are handled by returning a single-entry map keyed "value" for
// the bare-integer case.
func ParseCgroupMemory(content string) map[string]uint64 {
	content = strings.TrimSpace(content)
	out := map[string]uint64{}
	if content == "max" {
		return out
	}
	if v, err := strconv.ParseUint(content, 10, 64); err == nil && !strings.Contains(content, "\n") && !strings.Contains(content, " ") {
		out["value"] = v
		return out
	}
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		if v, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
			out[fields[0]] = v
		}
	}
	return out
}

// ParseCgroupIOStat parses io.stat's "<maj>:<min> rbytes=.. wbytes=.."
// lines into a per-device counter map.
func ParseCgroupIOStat(content string) map[string]map[string]uint64 {
	out := map[string]map[string]uint64{}
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		dev := fields[0]
		counters := map[string]uint64{}
		for _, kv := range fields[1:] {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 {
				continue
			}
			if v, err := strconv.ParseUint(parts[1], 10, 64); err == nil {
				counters[parts[0]] = v
			}
		}
		out[dev] = counters
	}
	return out
}

// ParseCgroupPids parses pids.current/pids.max (bare integer or "max").
func ParseCgroupPids(content string) (int64, bool) {
	content = strings.TrimSpace(content)
	if content == "max" {
		return -1, true
	}
	v, err := strconv.ParseInt(content, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
