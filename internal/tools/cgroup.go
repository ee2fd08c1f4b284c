package tools

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/perfmcp/perf-mcp/internal/errs"
	"github.com/perfmcp/perf-mcp/internal/findings"
	"github.com/perfmcp/perf-mcp/internal/parsers"
)

const cgroupRoot = "/sys/fs/cgroup"

// resolveCgroupPath finds the unified (v2) cgroup directory a pid belongs
// to by reading /proc/<pid>/cgroup, per melisai's
// internal/collector/container.go cgroup-path resolution.
func resolveCgroupPath(d *Deps, pid int) (string, *errs.Error) {
	content, errv := readProc(d, procPath(pid, "cgroup"))
	if errv != nil {
		return "", errv
	}
	paths := parsers.ParseProcCgroup(content)
	rel, ok := paths[""]
	if !ok {
		return "", errs.New(errs.CgroupNotFound, "pid has no unified cgroup v2 membership")
	}
	return filepath.Join(cgroupRoot, rel), nil
}

func procPath(pid int, leaf string) string {
	return "/proc/" + strconv.Itoa(pid) + "/" + leaf
}

// CgroupResources is perf_cgroup_resources: cpu.stat/cpu.max,
// memory.current/max/stat, io.stat and pids.current/max for the cgroup v2
// controller the given pid belongs to. Grounded on melisai's
// ContainerCollector.Collect.
func CgroupResources(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_cgroup_resources", ToolVersion, d.Hostname, start)

	pid, errv := pidParam(params)
	if errv != nil {
		env.Error = errv
		return env
	}

	cgPath, errv := resolveCgroupPath(d, pid)
	if errv != nil {
		env.Error = errv
		return env
	}

	cpuStatRaw, _ := readProc(d, filepath.Join(cgPath, "cpu.stat"))
	cpuMaxRaw, _ := readProc(d, filepath.Join(cgPath, "cpu.max"))
	memCurrentRaw, _ := readProc(d, filepath.Join(cgPath, "memory.current"))
	memMaxRaw, _ := readProc(d, filepath.Join(cgPath, "memory.max"))
	memStatRaw, _ := readProc(d, filepath.Join(cgPath, "memory.stat"))
	ioStatRaw, _ := readProc(d, filepath.Join(cgPath, "io.stat"))
	pidsCurrentRaw, _ := readProc(d, filepath.Join(cgPath, "pids.current"))
	pidsMaxRaw, _ := readProc(d, filepath.Join(cgPath, "pids.max"))

	cpuStat := parsers.ParseCgroupCPUStat(cpuStatRaw)
	cpuMax := parsers.ParseCgroupCPUMax(cpuMaxRaw)
	memCurrent := parsers.ParseCgroupMemory(memCurrentRaw)
	memMax := parsers.ParseCgroupMemory(memMaxRaw)
	memStat := parsers.ParseCgroupMemory(memStatRaw)
	ioStat := parsers.ParseCgroupIOStat(ioStatRaw)
	pidsCurrent, _ := parsers.ParseCgroupPids(pidsCurrentRaw)
	pidsMax, _ := parsers.ParseCgroupPids(pidsMaxRaw)

	data := map[string]interface{}{
		"cgroup_path": cgPath,
		"cpu_stat":    cpuStat,
		"cpu_max":     cpuMax,
		"memory_current_bytes": memCurrent["value"],
		"memory_max_bytes":     memMax["value"],
		"memory_stat":          memStat,
		"io_stat":              ioStat,
		"pids_current":         pidsCurrent,
		"pids_max":             pidsMax,
	}
	env.Data = data

	var findingsList []findings.Finding
	if cpuStat.NrThrottled > 0 {
		ratio := float64(cpuStat.NrThrottled) / float64(maxU64(cpuStat.NrPeriods, 1))
		sev := findings.SeverityInfo
		if ratio > 0.25 {
			sev = findings.SeverityWarning
		}
		if ratio > 0.5 {
			sev = findings.SeverityCritical
		}
		f := findings.MakeFinding("cgroup_cpu_throttling", sev, "cgroup CPU throttling detected",
			"the process's cgroup has been CPU-throttled", findings.CategoryCPU)
		f.Metrics = map[string]float64{"throttled_ratio": ratio, "nr_throttled": float64(cpuStat.NrThrottled)}
		f.Evidence = append(f.Evidence, findings.MakeEvidence("cpu.stat", "cgroup_stat", cpuStat, cpuStatRaw))
		findingsList = append(findingsList, f)
	}
	_, memMaxSet := memMax["value"]
	_, memCurrentSet := memCurrent["value"]
	if !memMaxSet {
		// unlimited memory.max ("max") -- nothing to compare against.
	} else if memCurrentSet && memMax["value"] > 0 {
		usedPct := float64(memCurrent["value"]) / float64(memMax["value"]) * 100
		if usedPct >= 90 {
			f := findings.MakeFinding("cgroup_memory_near_limit", findings.SeverityCritical,
				"cgroup memory usage near limit", "the cgroup is close to its memory.max ceiling", findings.CategoryMemory)
			f.Metrics = map[string]float64{"used_pct": usedPct}
			findingsList = append(findingsList, f)
		} else if usedPct >= 75 {
			f := findings.MakeFinding("cgroup_memory_near_limit", findings.SeverityWarning,
				"cgroup memory usage elevated", "the cgroup is approaching its memory.max ceiling", findings.CategoryMemory)
			f.Metrics = map[string]float64{"used_pct": usedPct}
			findingsList = append(findingsList, f)
		}
	}
	env.Findings = findingsList
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
