package tools

import "testing"

func TestEvaluateUSEHealthyIdleSystem(t *testing.T) {
	s := USESnapshot{
		CPUUserPct: 2, CPUSystemPct: 1, CPUIOWaitPct: 0, CPUIdlePct: 97,
		RunQueueLen: 0, CPUCount: 16,
		MemAvailablePct: 60, SwapUsedPct: 0,
		DiskUtilPct: 5, DiskQueueLen: 0, DiskAwaitMs: 1,
		NetDropsPerSec: 0, NetRetransPct: 0,
		PSISomeAvg10: 0, PSIFullAvg10: 0,
	}
	report := EvaluateUSE(s)
	if report.Overall != StatusOK {
		t.Fatalf("expected healthy overall status, got %v", report.Overall)
	}
	if len(report.Suspicions) != 0 {
		t.Fatalf("expected no suspicions, got %v", report.Suspicions)
	}
}

func TestEvaluateUSECPUSaturation(t *testing.T) {
	s := USESnapshot{
		CPUUserPct: 78.5, CPUSystemPct: 13.3, CPUIOWaitPct: 0, CPUIdlePct: 8.2,
		RunQueueLen: 18, CPUCount: 16,
		MemAvailablePct: 60, SwapUsedPct: 0,
		DiskUtilPct: 5, DiskQueueLen: 0, DiskAwaitMs: 1,
	}
	report := EvaluateUSE(s)
	if report.CPU.Utilization.Status != StatusWarning {
		t.Fatalf("expected warning cpu utilization status, got %v", report.CPU.Utilization.Status)
	}
	if report.CPU.Saturation.Status != StatusWarning {
		t.Fatalf("expected warning cpu saturation status, got %v", report.CPU.Saturation.Status)
	}
	if report.CPU.Utilization.Detail != "78.5% busy" {
		t.Fatalf("unexpected detail: %q", report.CPU.Utilization.Detail)
	}
	found := false
	for _, s := range report.Suspicions {
		if len(s) >= len("CPU utilization elevated") && s[:len("CPU utilization elevated")] == "CPU utilization elevated" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a CPU utilization suspicion, got %v", report.Suspicions)
	}
}

func TestEvaluateUSEMemoryLowAvailableIsCritical(t *testing.T) {
	s := USESnapshot{MemAvailablePct: 5, CPUCount: 4}
	report := EvaluateUSE(s)
	if report.Memory.Utilization.Status != StatusCritical {
		t.Fatalf("expected critical memory status, got %v", report.Memory.Utilization.Status)
	}
}

func TestWorseStatus(t *testing.T) {
	if worseStatus(StatusOK, StatusWarning) != StatusWarning {
		t.Fatalf("expected warning to win over ok")
	}
	if worseStatus(StatusCritical, StatusWarning) != StatusCritical {
		t.Fatalf("expected critical to remain")
	}
}
