package tools

import "strconv"

// USEStatus is the closed status ladder for one USE-method metric.
type USEStatus string

const (
	StatusOK       USEStatus = "ok"
	StatusWarning  USEStatus = "warning"
	StatusCritical USEStatus = "critical"
)

func worseStatus(a, b USEStatus) USEStatus {
	rank := map[USEStatus]int{StatusOK: 0, StatusWarning: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// USEMetric is one evaluated {utilization|saturation|errors} resource axis.
type USEMetric struct {
	Name   string    `json:"name"`
	Value  float64   `json:"value"`
	Status USEStatus `json:"status"`
	Detail string    `json:"detail"`
}

// thresholdStatus applies a warn/crit pair where higher is worse.
func thresholdStatus(value, warn, crit float64) USEStatus {
	switch {
	case value >= crit:
		return StatusCritical
	case value >= warn:
		return StatusWarning
	default:
		return StatusOK
	}
}

// USESnapshot is the subset of a system snapshot the USE evaluator needs.
// Built from perf_system_snapshot's procfs reads (spec §4.8 use_check).
type USESnapshot struct {
	CPUUserPct     float64
	CPUSystemPct   float64
	CPUIOWaitPct   float64
	CPUIdlePct     float64
	RunQueueLen    float64
	CPUCount       int
	MemAvailablePct float64
	SwapUsedPct    float64
	DiskUtilPct    float64
	DiskQueueLen   float64
	DiskAwaitMs    float64
	NetDropsPerSec float64
	NetRetransPct  float64
	PSISomeAvg10   float64
	PSIFullAvg10   float64
}

// USEReport is use_check's response payload (spec §4.8).
type USEReport struct {
	CPU       USEResourceReport `json:"cpu"`
	Memory    USEResourceReport `json:"memory"`
	Disk      USEResourceReport `json:"disk"`
	Network   USEResourceReport `json:"network"`
	PSI       USEResourceReport `json:"psi"`
	Overall   USEStatus         `json:"overall_status"`
	Suspicions []string         `json:"top_suspicions"`
}

// USEResourceReport groups one resource's utilization/saturation/errors axes.
type USEResourceReport struct {
	Utilization *USEMetric `json:"utilization,omitempty"`
	Saturation  *USEMetric `json:"saturation,omitempty"`
	Errors      *USEMetric `json:"errors,omitempty"`
	Status      USEStatus  `json:"status"`
}

func resourceStatus(metrics ...*USEMetric) USEStatus {
	status := StatusOK
	for _, m := range metrics {
		if m == nil {
			continue
		}
		status = worseStatus(status, m.Status)
	}
	return status
}

// EvaluateUSE is the pure USE-threshold evaluator (spec §6 threshold table,
// §8: "use_check is a pure function of the snapshot it receives"). Modeled
// on melisai's ComputeUSEMetrics.
func EvaluateUSE(s USESnapshot) USEReport {
	cpuBusy := s.CPUUserPct
	cpuUtil := &USEMetric{
		Name:   "cpu.utilization",
		Value:  cpuBusy,
		Status: thresholdStatus(cpuBusy, 70, 90),
	}
	cpuUtil.Detail = formatPct(cpuBusy) + "% busy"

	cpuCount := s.CPUCount
	if cpuCount < 1 {
		cpuCount = 1
	}
	cpuSat := &USEMetric{
		Name:   "cpu.saturation",
		Value:  s.RunQueueLen,
		Status: thresholdStatus(s.RunQueueLen, float64(cpuCount), float64(2*cpuCount)),
		Detail: "run queue length " + formatPct(s.RunQueueLen),
	}
	cpuReport := USEResourceReport{Utilization: cpuUtil, Saturation: cpuSat}
	cpuReport.Status = resourceStatus(cpuUtil, cpuSat)

	// memory available% is healthier the higher it is, so thresholds invert.
	memUtil := &USEMetric{
		Name:   "memory.available",
		Value:  s.MemAvailablePct,
		Status: invertedThresholdStatus(s.MemAvailablePct, 20, 10),
		Detail: formatPct(s.MemAvailablePct) + "% available",
	}
	swapSat := &USEMetric{
		Name:   "memory.swap_used",
		Value:  s.SwapUsedPct,
		Status: thresholdStatus(s.SwapUsedPct, 10, 50),
		Detail: formatPct(s.SwapUsedPct) + "% swap used",
	}
	memReport := USEResourceReport{Utilization: memUtil, Saturation: swapSat}
	memReport.Status = resourceStatus(memUtil, swapSat)

	diskUtil := &USEMetric{
		Name:   "disk.utilization",
		Value:  s.DiskUtilPct,
		Status: thresholdStatus(s.DiskUtilPct, 60, 80),
		Detail: formatPct(s.DiskUtilPct) + "% busy",
	}
	diskSat := &USEMetric{
		Name:   "disk.saturation",
		Value:  s.DiskQueueLen,
		Status: thresholdStatus(s.DiskQueueLen, 2, 8),
		Detail: "queue depth " + formatPct(s.DiskQueueLen),
	}
	diskErr := &USEMetric{
		Name:   "disk.await",
		Value:  s.DiskAwaitMs,
		Status: thresholdStatus(s.DiskAwaitMs, 20, 50),
		Detail: formatPct(s.DiskAwaitMs) + "ms average wait",
	}
	diskReport := USEResourceReport{Utilization: diskUtil, Saturation: diskSat, Errors: diskErr}
	diskReport.Status = resourceStatus(diskUtil, diskSat, diskErr)

	netErr := &USEMetric{
		Name:   "network.drops",
		Value:  s.NetDropsPerSec,
		Status: thresholdStatus(s.NetDropsPerSec, 1, 100),
		Detail: formatPct(s.NetDropsPerSec) + " drops/s",
	}
	netSat := &USEMetric{
		Name:   "network.retransmits",
		Value:  s.NetRetransPct,
		Status: thresholdStatus(s.NetRetransPct, 1, 5),
		Detail: formatPct(s.NetRetransPct) + "% retransmitted",
	}
	netReport := USEResourceReport{Saturation: netSat, Errors: netErr}
	netReport.Status = resourceStatus(netSat, netErr)

	psiSome := &USEMetric{
		Name:   "psi.some_avg10",
		Value:  s.PSISomeAvg10,
		Status: thresholdStatus(s.PSISomeAvg10, 10, 25),
		Detail: "avg10 " + formatPct(s.PSISomeAvg10) + "%",
	}
	psiFull := &USEMetric{
		Name:   "psi.full_avg10",
		Value:  s.PSIFullAvg10,
		Status: thresholdStatus(s.PSIFullAvg10, 5, 15),
		Detail: "avg10 " + formatPct(s.PSIFullAvg10) + "%",
	}
	psiReport := USEResourceReport{Utilization: psiSome, Saturation: psiFull}
	psiReport.Status = resourceStatus(psiSome, psiFull)

	overall := worseStatus(cpuReport.Status, memReport.Status)
	overall = worseStatus(overall, diskReport.Status)
	overall = worseStatus(overall, netReport.Status)
	overall = worseStatus(overall, psiReport.Status)

	var suspicions []string
	if cpuUtil.Status != StatusOK {
		suspicions = append(suspicions, "CPU utilization elevated: "+cpuUtil.Detail)
	}
	if cpuSat.Status != StatusOK {
		suspicions = append(suspicions, "CPU saturation elevated: "+cpuSat.Detail)
	}
	if memUtil.Status != StatusOK {
		suspicions = append(suspicions, "memory pressure: "+memUtil.Detail)
	}
	if diskReport.Status != StatusOK {
		suspicions = append(suspicions, "disk contention: "+diskUtil.Detail)
	}
	if netReport.Status != StatusOK {
		suspicions = append(suspicions, "network errors/saturation: "+netErr.Detail)
	}

	return USEReport{
		CPU: cpuReport, Memory: memReport, Disk: diskReport, Network: netReport, PSI: psiReport,
		Overall:    overall,
		Suspicions: suspicions,
	}
}

func invertedThresholdStatus(value, warn, crit float64) USEStatus {
	switch {
	case value <= crit:
		return StatusCritical
	case value <= warn:
		return StatusWarning
	default:
		return StatusOK
	}
}

// formatPct renders one decimal place, matching the "78.5% busy" example in
// spec §8 S2.
func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
