package tools

import (
	"context"
	"strings"
	"time"

	"github.com/perfmcp/perf-mcp/internal/errs"
	"github.com/perfmcp/perf-mcp/internal/parsers"
)

// sampleInterval is how far apart the two procfs reads used to derive rates
// (CPU%, disk util%, network drops/s) are spaced for a single-shot snapshot.
const sampleInterval = 200 * time.Millisecond

func readProc(d *Deps, path string) (string, *errs.Error) {
	res := d.Reader.ReadFile(path)
	if !res.Success {
		return "", errs.New(errs.FileNotFound, "could not read "+path)
	}
	return res.Content, nil
}

// cpuPercentages derives {user,system,iowait,idle} percentages from two
// /proc/stat aggregate CPU-time samples taken interval apart.
func cpuPercentages(before, after parsers.CPUTimes) (user, system, iowait, idle float64) {
	totalBefore := before.Total()
	totalAfter := after.Total()
	deltaTotal := float64(totalAfter - totalBefore)
	if deltaTotal <= 0 {
		return 0, 0, 0, 100
	}
	user = float64(after.User-before.User) / deltaTotal * 100
	system = float64(after.System-before.System) / deltaTotal * 100
	iowait = float64(after.IOWait-before.IOWait) / deltaTotal * 100
	idle = float64(after.Idle-before.Idle) / deltaTotal * 100
	return
}

// diskSample picks the busiest non-loopback device across two /proc/diskstats
// samples and returns its utilization%, queue length and average wait in ms.
func diskSample(before, after []parsers.DiskStatsLine, interval time.Duration) (device string, utilPct, queueLen, awaitMs float64) {
	beforeByDev := map[string]parsers.DiskStatsLine{}
	for _, l := range before {
		beforeByDev[l.Device] = l
	}
	intervalMs := float64(interval.Milliseconds())
	if intervalMs <= 0 {
		intervalMs = 1
	}

	bestUtil := -1.0
	for _, a := range after {
		if strings.HasPrefix(a.Device, "loop") || strings.HasPrefix(a.Device, "ram") {
			continue
		}
		b, ok := beforeByDev[a.Device]
		if !ok {
			continue
		}
		deltaIOTime := float64(a.IOTimeMs - b.IOTimeMs)
		util := deltaIOTime / intervalMs * 100
		if util > bestUtil {
			bestUtil = util
			device = a.Device
			utilPct = util
			queueLen = float64(a.WeightedIOTimeMs-b.WeightedIOTimeMs) / intervalMs

			deltaOps := float64((a.ReadsCompleted + a.WritesCompleted) - (b.ReadsCompleted + b.WritesCompleted))
			deltaTimeMs := float64((a.ReadTimeMs + a.WriteTimeMs) - (b.ReadTimeMs + b.WriteTimeMs))
			if deltaOps > 0 {
				awaitMs = deltaTimeMs / deltaOps
			}
		}
	}
	if bestUtil < 0 {
		return "", 0, 0, 0
	}
	return device, utilPct, queueLen, awaitMs
}

// networkDropsPerSec derives aggregate drops/sec from two /proc/net/dev
// samples; networkRetransPct derives retransmit% from two /proc/net/snmp
// samples.
func networkDropsPerSec(before, after []parsers.NetDevLine, interval time.Duration) float64 {
	var beforeDrops, afterDrops uint64
	for _, l := range before {
		beforeDrops += l.RxDrop + l.TxDrop
	}
	for _, l := range after {
		afterDrops += l.RxDrop + l.TxDrop
	}
	secs := interval.Seconds()
	if secs <= 0 {
		secs = 1
	}
	return float64(afterDrops-beforeDrops) / secs
}

func networkRetransPct(before, after map[string]uint64) float64 {
	deltaOut := float64(after["Tcp.OutSegs"]) - float64(before["Tcp.OutSegs"])
	deltaRetrans := float64(after["Tcp.RetransSegs"]) - float64(before["Tcp.RetransSegs"])
	if deltaOut <= 0 {
		return 0
	}
	return deltaRetrans / deltaOut * 100
}

// buildUSESnapshot performs the two-read sampling strategy behind both
// perf_system_snapshot and perf_system_use_check, returning the derived
// USESnapshot plus the raw data for the envelope's data.raw field.
func buildUSESnapshot(ctx context.Context, d *Deps, interval time.Duration) (USESnapshot, map[string]interface{}, *errs.Error) {
	if interval <= 0 {
		interval = sampleInterval
	}

	statBeforeRaw, errv := readProc(d, "/proc/stat")
	if errv != nil {
		return USESnapshot{}, nil, errv
	}
	diskBeforeRaw, errv := readProc(d, "/proc/diskstats")
	if errv != nil {
		return USESnapshot{}, nil, errv
	}
	netDevBeforeRaw, errv := readProc(d, "/proc/net/dev")
	if errv != nil {
		return USESnapshot{}, nil, errv
	}
	netSNMPBeforeRaw, errv := readProc(d, "/proc/net/snmp")
	if errv != nil {
		return USESnapshot{}, nil, errv
	}

	select {
	case <-time.After(interval):
	case <-ctx.Done():
		return USESnapshot{}, nil, errs.New(errs.Timeout, "cancelled while sampling")
	}

	statAfterRaw, errv := readProc(d, "/proc/stat")
	if errv != nil {
		return USESnapshot{}, nil, errv
	}
	diskAfterRaw, errv := readProc(d, "/proc/diskstats")
	if errv != nil {
		return USESnapshot{}, nil, errv
	}
	netDevAfterRaw, errv := readProc(d, "/proc/net/dev")
	if errv != nil {
		return USESnapshot{}, nil, errv
	}
	netSNMPAfterRaw, errv := readProc(d, "/proc/net/snmp")
	if errv != nil {
		return USESnapshot{}, nil, errv
	}

	meminfoRaw, errv := readProc(d, "/proc/meminfo")
	if errv != nil {
		return USESnapshot{}, nil, errv
	}
	loadavgRaw, errv := readProc(d, "/proc/loadavg")
	if errv != nil {
		return USESnapshot{}, nil, errv
	}

	statBefore := parsers.ParseProcStat(statBeforeRaw)
	statAfter := parsers.ParseProcStat(statAfterRaw)
	user, system, iowait, idle := cpuPercentages(statBefore.Aggregate, statAfter.Aggregate)

	diskBefore := parsers.ParseDiskStats(diskBeforeRaw)
	diskAfter := parsers.ParseDiskStats(diskAfterRaw)
	device, diskUtil, diskQueue, diskAwait := diskSample(diskBefore, diskAfter, interval)

	netDevBefore := parsers.ParseNetDev(netDevBeforeRaw)
	netDevAfter := parsers.ParseNetDev(netDevAfterRaw)
	dropsPerSec := networkDropsPerSec(netDevBefore, netDevAfter, interval)

	netSNMPBefore := parsers.ParseNetSNMP(netSNMPBeforeRaw)
	netSNMPAfter := parsers.ParseNetSNMP(netSNMPAfterRaw)
	retransPct := networkRetransPct(netSNMPBefore, netSNMPAfter)

	mem := parsers.ParseMeminfo(meminfoRaw)
	memTotal := float64(mem["MemTotal"])
	memAvail := float64(mem["MemAvailable"])
	memAvailPct := 100.0
	if memTotal > 0 {
		memAvailPct = memAvail / memTotal * 100
	}
	swapTotal := float64(mem["SwapTotal"])
	swapFree := float64(mem["SwapFree"])
	swapUsedPct := 0.0
	if swapTotal > 0 {
		swapUsedPct = (swapTotal - swapFree) / swapTotal * 100
	}

	load := parsers.ParseLoadAvg(loadavgRaw)
	runQueue := float64(load.RunnableEntities)
	if runQueue > 0 {
		runQueue -= 1 // exclude the sampling process itself
	}

	psiCPU := float64(0)
	psiCPUFull := float64(0)
	if psiRaw, errv := readProc(d, "/proc/pressure/cpu"); errv == nil {
		for _, line := range parsers.ParsePressure(psiRaw) {
			switch line.Kind {
			case "some":
				psiCPU = line.Avg10
			case "full":
				psiCPUFull = line.Avg10
			}
		}
	}

	snapshot := USESnapshot{
		CPUUserPct: user, CPUSystemPct: system, CPUIOWaitPct: iowait, CPUIdlePct: idle,
		RunQueueLen: runQueue, CPUCount: d.Caps().NumCPU,
		MemAvailablePct: memAvailPct, SwapUsedPct: swapUsedPct,
		DiskUtilPct: diskUtil, DiskQueueLen: diskQueue, DiskAwaitMs: diskAwait,
		NetDropsPerSec: dropsPerSec, NetRetransPct: retransPct,
		PSISomeAvg10: psiCPU, PSIFullAvg10: psiCPUFull,
	}

	raw := map[string]interface{}{
		"cpu":             map[string]float64{"user_pct": user, "system_pct": system, "iowait_pct": iowait, "idle_pct": idle},
		"load_average":    map[string]float64{"avg1": load.Avg1, "avg5": load.Avg5, "avg15": load.Avg15},
		"memory":          map[string]float64{"total_kb": memTotal, "available_kb": memAvail, "available_pct": memAvailPct, "swap_used_pct": swapUsedPct},
		"disk":            map[string]interface{}{"device": device, "util_pct": diskUtil, "queue_len": diskQueue, "await_ms": diskAwait},
		"network":         map[string]float64{"drops_per_sec": dropsPerSec, "retransmit_pct": retransPct},
		"psi_cpu_some_avg10": psiCPU,
		"psi_cpu_full_avg10": psiCPUFull,
	}

	return snapshot, raw, nil
}
