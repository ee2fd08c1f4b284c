package capability

import "testing"

func TestParseKernelVersion(t *testing.T) {
	tests := []struct {
		input     string
		wantMajor int
		wantMinor int
	}{
		{"6.1.0-generic", 6, 1},
		{"5.15.0-91-generic", 5, 15},
		{"5.8.0", 5, 8},
		{"4.15.0-213-generic", 4, 15},
		{"", 0, 0},
		{"bad", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			major, minor := parseKernelVersion(tt.input)
			if major != tt.wantMajor || minor != tt.wantMinor {
				t.Errorf("parseKernelVersion(%q) = (%d, %d), want (%d, %d)",
					tt.input, major, minor, tt.wantMajor, tt.wantMinor)
			}
		})
	}
}

func TestDetectDoesNotPanic(t *testing.T) {
	snap := Detect()
	if snap == nil {
		t.Fatal("Detect returned nil")
	}
	t.Logf("kernel=%s btf=%v core=%v cgroup=v%d containerized=%v",
		snap.KernelVersion, snap.BTFAvailable, snap.CORESupport, snap.CgroupVersion, snap.Containerized)
}

func TestDetectIsCached(t *testing.T) {
	first := Detect()
	second := Detect()
	if first != second {
		t.Error("expected Detect to return the same cached snapshot pointer")
	}
}

func TestCanRunPerfRequiresValidParanoid(t *testing.T) {
	s := &Snapshot{PerfEventParanoid: -1}
	if s.CanRunPerf() {
		t.Error("expected unreadable perf_event_paranoid to disable perf tools")
	}
	s.PerfEventParanoid = 1
	if !s.CanRunPerf() {
		t.Error("expected paranoid level 1 to permit perf tools")
	}
	s.PerfEventParanoid = 3
	if s.CanRunPerf() {
		t.Error("expected paranoid level 3 to disable perf tools")
	}
}

func TestCanRunBPF(t *testing.T) {
	s := &Snapshot{BTFAvailable: false, AvailableTools: map[string]bool{"bpftrace": true}}
	if !s.CanRunBPF() {
		t.Error("expected bpftrace availability alone to permit BPF-class tools")
	}
	s2 := &Snapshot{AvailableTools: map[string]bool{}}
	if s2.CanRunBPF() {
		t.Error("expected no BTF and no bpftrace to disable BPF-class tools")
	}
}

func TestToolAvailable(t *testing.T) {
	s := &Snapshot{AvailableTools: map[string]bool{"profile": true}}
	if !s.ToolAvailable("profile") {
		t.Error("expected profile to be reported available")
	}
	if s.ToolAvailable("runqlat") {
		t.Error("expected runqlat to be reported unavailable")
	}
}
