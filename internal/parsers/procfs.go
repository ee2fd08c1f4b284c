package parsers

import (
	"bufio"
	"strconv"
	"strings"
)

// CPUTimes holds jiffies for one CPU line of /proc/stat. Adapted from
// melisai's internal/collector/cpu.go cpuTimes.
type CPUTimes struct {
	User, Nice, System, Idle, IOWait, IRQ, SoftIRQ, Steal uint64
}

// Total sums every jiffy bucket.
func (t CPUTimes) Total() uint64 {
	return t.User + t.Nice + t.System + t.Idle + t.IOWait + t.IRQ + t.SoftIRQ + t.Steal
}

// ProcStat is the parsed content of /proc/stat.
type ProcStat struct {
	Aggregate      CPUTimes
	PerCPU         map[int]CPUTimes
	ContextSwitches uint64
	Processes      uint64
	ProcsRunning   uint64
	ProcsBlocked   uint64
}

// ParseProcStat parses /proc/stat's cpu/cpuN/ctxt/processes lines.
func ParseProcStat(content string) ProcStat {
	stat := ProcStat{PerCPU: map[int]CPUTimes{}}
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		switch {
		case fields[0] == "cpu" && len(fields) >= 9:
			stat.Aggregate = parseCPUFields(fields)
		case strings.HasPrefix(fields[0], "cpu") && len(fields) >= 9:
			if n, err := strconv.Atoi(strings.TrimPrefix(fields[0], "cpu")); err == nil {
				stat.PerCPU[n] = parseCPUFields(fields)
			}
		case fields[0] == "ctxt":
			stat.ContextSwitches, _ = strconv.ParseUint(fields[1], 10, 64)
		case fields[0] == "processes":
			stat.Processes, _ = strconv.ParseUint(fields[1], 10, 64)
		case fields[0] == "procs_running":
			stat.ProcsRunning, _ = strconv.ParseUint(fields[1], 10, 64)
		case fields[0] == "procs_blocked":
			stat.ProcsBlocked, _ = strconv.ParseUint(fields[1], 10, 64)
		}
	}
	return stat
}

func parseCPUFields(fields []string) CPUTimes {
	get := func(i int) uint64 {
		if i >= len(fields) {
			return 0
		}
		v, _ := strconv.ParseUint(fields[i], 10, 64)
		return v
	}
	return CPUTimes{
		User: get(1), Nice: get(2), System: get(3), Idle: get(4),
		IOWait: get(5), IRQ: get(6), SoftIRQ: get(7), Steal: get(8),
	}
}

// LoadAvg is the parsed content of /proc/loadavg.
type LoadAvg struct {
	Avg1, Avg5, Avg15 float64
	RunnableEntities  int
	TotalEntities     int
	LastPID           int
}

// ParseLoadAvg parses /proc/loadavg.
func ParseLoadAvg(content string) LoadAvg {
	fields := strings.Fields(content)
	var la LoadAvg
	if len(fields) < 3 {
		return la
	}
	la.Avg1, _ = strconv.ParseFloat(fields[0], 64)
	la.Avg5, _ = strconv.ParseFloat(fields[1], 64)
	la.Avg15, _ = strconv.ParseFloat(fields[2], 64)
	if len(fields) >= 4 {
		parts := strings.SplitN(fields[3], "/", 2)
		if len(parts) == 2 {
			la.RunnableEntities, _ = strconv.Atoi(parts[0])
			la.TotalEntities, _ = strconv.Atoi(parts[1])
		}
	}
	if len(fields) >= 5 {
		la.LastPID, _ = strconv.Atoi(fields[4])
	}
	return la
}

// ParseMeminfo parses /proc/meminfo into a key (without the trailing
// "kB")->value-in-kB map.
func ParseMeminfo(content string) map[string]uint64 {
	out := map[string]uint64{}
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		valueFields := strings.Fields(line[idx+1:])
		if len(valueFields) == 0 {
			continue
		}
		v, err := strconv.ParseUint(valueFields[0], 10, 64)
		if err != nil {
			continue
		}
		out[key] = v
	}
	return out
}

// ParseVmstat parses /proc/vmstat into a flat counter map.
func ParseVmstat(content string) map[string]uint64 {
	out := map[string]uint64{}
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		out[fields[0]] = v
	}
	return out
}

// NetDevLine is one interface's counters from /proc/net/dev.
type NetDevLine struct {
	Interface                            string
	RxBytes, RxPackets, RxErrs, RxDrop   uint64
	TxBytes, TxPackets, TxErrs, TxDrop   uint64
}

// ParseNetDev parses /proc/net/dev.
func ParseNetDev(content string) []NetDevLine {
	var out []NetDevLine
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, ":") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		iface := strings.TrimSpace(parts[0])
		if iface == "" || iface == "Inter-|" || strings.HasPrefix(iface, "face") {
			continue
		}
		fields := strings.Fields(parts[1])
		if len(fields) < 16 {
			continue
		}
		get := func(i int) uint64 {
			v, _ := strconv.ParseUint(fields[i], 10, 64)
			return v
		}
		out = append(out, NetDevLine{
			Interface: iface,
			RxBytes:   get(0), RxPackets: get(1), RxErrs: get(2), RxDrop: get(3),
			TxBytes: get(8), TxPackets: get(9), TxErrs: get(10), TxDrop: get(11),
		})
	}
	return out
}

// ParseNetSNMP parses /proc/net/snmp's "Tcp:"/"Udp:" header+value line
// pairs into a flat map keyed "Proto.Field" (e.g. "Tcp.RetransSegs").
func ParseNetSNMP(content string) map[string]uint64 {
	out := map[string]uint64{}
	lines := strings.Split(content, "\n")
	for i := 0; i+1 < len(lines); i += 2 {
		headerFields := strings.Fields(lines[i])
		valueFields := strings.Fields(lines[i+1])
		if len(headerFields) == 0 || len(headerFields) != len(valueFields) {
			continue
		}
		proto := strings.TrimSuffix(headerFields[0], ":")
		for j := 1; j < len(headerFields); j++ {
			v, err := strconv.ParseUint(valueFields[j], 10, 64)
			if err != nil {
				continue
			}
			out[proto+"."+headerFields[j]] = v
		}
	}
	return out
}

// PSILine is one resource-pressure line ("some"/"full") from
// /proc/pressure/{cpu,memory,io}.
type PSILine struct {
	Kind                      string
	Avg10, Avg60, Avg300      float64
	Total                     uint64
}

// ParsePressure parses a /proc/pressure/<resource> file.
func ParsePressure(content string) []PSILine {
	var out []PSILine
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		line := PSILine{Kind: fields[0]}
		for _, f := range fields[1:] {
			kv := strings.SplitN(f, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch kv[0] {
			case "avg10":
				line.Avg10, _ = strconv.ParseFloat(kv[1], 64)
			case "avg60":
				line.Avg60, _ = strconv.ParseFloat(kv[1], 64)
			case "avg300":
				line.Avg300, _ = strconv.ParseFloat(kv[1], 64)
			case "total":
				line.Total, _ = strconv.ParseUint(kv[1], 10, 64)
			}
		}
		out = append(out, line)
	}
	return out
}

// ParseProcCgroup parses /proc/<pid>/cgroup, returning the controller ->
// path map (v1) or the single unified path under key "" (v2).
func ParseProcCgroup(content string) map[string]string {
	out := map[string]string{}
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), ":", 3)
		if len(fields) != 3 {
			continue
		}
		out[fields[1]] = fields[2]
	}
	return out
}

// ParseCPUInfo counts logical CPUs from /proc/cpuinfo.
func ParseCPUInfo(content string) int {
	n := 0
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "processor") {
			n++
		}
	}
	return n
}

// DiskStatsLine is one device's counters from /proc/diskstats.
type DiskStatsLine struct {
	Device                              string
	ReadsCompleted, ReadsMerged, SectorsRead, ReadTimeMs   uint64
	WritesCompleted, WritesMerged, SectorsWritten, WriteTimeMs uint64
	IOInProgress, IOTimeMs, WeightedIOTimeMs                uint64
}

// ParseDiskStats parses /proc/diskstats.
func ParseDiskStats(content string) []DiskStatsLine {
	var out []DiskStatsLine
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 14 {
			continue
		}
		get := func(i int) uint64 {
			v, _ := strconv.ParseUint(fields[i], 10, 64)
			return v
		}
		out = append(out, DiskStatsLine{
			Device:          fields[2],
			ReadsCompleted:  get(3),
			ReadsMerged:     get(4),
			SectorsRead:     get(5),
			ReadTimeMs:      get(6),
			WritesCompleted: get(7),
			WritesMerged:    get(8),
			SectorsWritten:  get(9),
			WriteTimeMs:     get(10),
			IOInProgress:    get(11),
			IOTimeMs:        get(12),
			WeightedIOTimeMs: get(13),
		})
	}
	return out
}
