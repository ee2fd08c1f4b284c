// Package capability builds the one-shot host capability snapshot (C4):
// kernel version, which allow-listed tools are actually present, BTF/CO-RE,
// PSI, cgroup version, containerization, and topology. Grounded on
// melisai's internal/ebpf/btf.go (DetectBTF/DetectBPFCapabilities) and
// internal/executor/security.go's ResolveBinary, generalized into a single
// immutable struct instead of a loose map[string]bool.
package capability

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/perfmcp/perf-mcp/internal/allowlist"
)

// Snapshot is the immutable result of probing the host once. Every probe is
// best-effort: a failed sub-probe yields a conservative zero value rather
// than aborting the whole snapshot.
type Snapshot struct {
	KernelVersion     string
	KernelMajor       int
	KernelMinor       int
	Arch              string
	NumCPU            int
	NumNUMANodes      int
	PerfEventParanoid int // -1 when unreadable
	BTFAvailable      bool
	VmlinuxPath       string
	CORESupport       bool
	PSIAvailable      bool
	CgroupVersion     int // 1 or 2, 0 if undetermined
	Containerized     bool
	ContainerRuntime  string
	Virtualized       bool
	AvailableTools    map[string]bool
}

// CanRunPerf reports whether perf_event_open-based tools (perf, profile,
// offcputime) are expected to work. It checks only that perf_event_paranoid
// was read and is between 0 and 2; it does not check for root or for the
// presence of the perf binary.
func (s *Snapshot) CanRunPerf() bool {
	return s.PerfEventParanoid >= 0 && s.PerfEventParanoid <= 2
}

// CanRunBPF reports whether BCC/bpftrace-class tools have a realistic
// chance of attaching.
func (s *Snapshot) CanRunBPF() bool {
	return s.BTFAvailable || s.AvailableTools["bpftrace"]
}

// ToolAvailable reports whether a given allow-listed key resolved to a
// binary on this host.
func (s *Snapshot) ToolAvailable(key string) bool {
	return s.AvailableTools[key]
}

var (
	once   sync.Once
	cached *Snapshot
)

// Detect returns the process-wide snapshot, probing the host exactly once.
// Tests that need an alternate snapshot should construct one directly and
// pass it around rather than calling Detect.
func Detect() *Snapshot {
	once.Do(func() {
		cached = probe()
	})
	return cached
}

func probe() *Snapshot {
	s := &Snapshot{
		Arch:              runtimeArch(),
		NumCPU:            countCPUs(),
		NumNUMANodes:      countNUMANodes(),
		PerfEventParanoid: -1,
		AvailableTools:    map[string]bool{},
	}

	s.KernelVersion = readKernelVersion()
	s.KernelMajor, s.KernelMinor = parseKernelVersion(s.KernelVersion)

	if v, ok := readIntFile("/proc/sys/kernel/perf_event_paranoid"); ok {
		s.PerfEventParanoid = v
	}

	if fileExists("/sys/kernel/btf/vmlinux") {
		s.BTFAvailable = true
		s.VmlinuxPath = "/sys/kernel/btf/vmlinux"
	}
	s.CORESupport = s.KernelMajor > 5 || (s.KernelMajor == 5 && s.KernelMinor >= 8)

	s.PSIAvailable = fileExists("/proc/pressure/cpu")

	s.CgroupVersion = detectCgroupVersion()

	s.Containerized, s.ContainerRuntime = detectContainer()
	s.Virtualized = detectVirtualization()

	for key := range allowlist.Table {
		if _, err := allowlist.Resolve(key); err == nil {
			s.AvailableTools[key] = true
		}
	}

	return s
}

func readKernelVersion() string {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return ""
	}
	fields := strings.Fields(string(data))
	if len(fields) >= 3 {
		return fields[2]
	}
	return ""
}

func parseKernelVersion(version string) (int, int) {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return 0, 0
	}
	major, _ := strconv.Atoi(parts[0])
	minorStr := parts[1]
	if idx := strings.IndexAny(minorStr, "-+~"); idx >= 0 {
		minorStr = minorStr[:idx]
	}
	minor, _ := strconv.Atoi(minorStr)
	return major, minor
}

func readIntFile(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return v, true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func countCPUs() int {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 1
	}
	n := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "cpu") && len(line) > 3 && line[3] >= '0' && line[3] <= '9' {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

func countNUMANodes() int {
	entries, err := os.ReadDir("/sys/devices/system/node")
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "node") {
			n++
		}
	}
	return n
}

func detectCgroupVersion() int {
	if fileExists("/sys/fs/cgroup/cgroup.controllers") {
		return 2
	}
	if fileExists("/sys/fs/cgroup/memory/memory.limit_in_bytes") {
		return 1
	}
	return 0
}

func detectContainer() (bool, string) {
	data, err := os.ReadFile("/proc/1/cgroup")
	if err == nil {
		content := string(data)
		switch {
		case strings.Contains(content, "docker"):
			return true, "docker"
		case strings.Contains(content, "kubepods"):
			return true, "kubernetes"
		case strings.Contains(content, "lxc"):
			return true, "lxc"
		}
	}
	if fileExists("/.dockerenv") {
		return true, "docker"
	}
	return false, ""
}

func detectVirtualization() bool {
	data, err := os.ReadFile("/sys/class/dmi/id/sys_vendor")
	if err != nil {
		return false
	}
	vendor := strings.ToLower(strings.TrimSpace(string(data)))
	for _, v := range []string{"qemu", "kvm", "vmware", "virtualbox", "xen", "microsoft corporation"} {
		if strings.Contains(vendor, v) {
			return true
		}
	}
	return false
}

func runtimeArch() string {
	return runtime.GOARCH
}
