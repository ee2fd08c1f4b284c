package findings

import "testing"

func TestSeverityOutranks(t *testing.T) {
	if !SeverityCritical.Outranks(SeverityWarning) {
		t.Error("expected critical to outrank warning")
	}
	if !SeverityWarning.Outranks(SeverityInfo) {
		t.Error("expected warning to outrank info")
	}
	if SeverityInfo.Outranks(SeverityCritical) {
		t.Error("expected info to not outrank critical")
	}
	if SeverityWarning.Outranks(SeverityWarning) {
		t.Error("expected equal severities to not outrank each other")
	}
}

func TestMakeFinding(t *testing.T) {
	f := MakeFinding("high_cpu", SeverityWarning, "High CPU", "CPU utilization above threshold", CategoryCPU)
	if f.ID != "high_cpu" || f.Severity != SeverityWarning || f.Category != CategoryCPU {
		t.Errorf("unexpected finding: %+v", f)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil); got != "no findings" {
		t.Errorf("expected 'no findings', got %q", got)
	}
}

func TestSummarizeCountsBySeverity(t *testing.T) {
	fs := []Finding{
		MakeFinding("a", SeverityCritical, "Disk saturated", "", CategoryIO),
		MakeFinding("b", SeverityWarning, "High memory", "", CategoryMemory),
		MakeFinding("c", SeverityWarning, "High CPU", "", CategoryCPU),
	}
	got := Summarize(fs)
	want := "1 critical, 2 warning: Disk saturated; High memory; High CPU"
	if got != want {
		t.Errorf("Summarize() = %q, want %q", got, want)
	}
}

func TestNewEnvelopeStampsMetadata(t *testing.T) {
	env := NewEnvelope("perf_cpu_profile", "1.0.0", "host-a", stampTime())
	if env.ToolName != "perf_cpu_profile" || env.Host != "host-a" || env.ToolVersion != "1.0.0" {
		t.Errorf("unexpected envelope metadata: %+v", env)
	}
}
