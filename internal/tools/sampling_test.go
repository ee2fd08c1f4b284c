package tools

import (
	"testing"
	"time"

	"github.com/perfmcp/perf-mcp/internal/parsers"
)

func TestCPUPercentages(t *testing.T) {
	before := parsers.CPUTimes{User: 100, System: 50, Idle: 800, IOWait: 10}
	after := parsers.CPUTimes{User: 150, System: 70, Idle: 840, IOWait: 20}
	user, system, iowait, idle := cpuPercentages(before, after)
	// delta total = (150-100)+(70-50)+(840-800)+(20-10) = 50+20+40+10 = 120
	if want := 50.0 / 120 * 100; user != want {
		t.Errorf("user = %v, want %v", user, want)
	}
	if want := 20.0 / 120 * 100; system != want {
		t.Errorf("system = %v, want %v", system, want)
	}
	if want := 10.0 / 120 * 100; iowait != want {
		t.Errorf("iowait = %v, want %v", iowait, want)
	}
	if want := 40.0 / 120 * 100; idle != want {
		t.Errorf("idle = %v, want %v", idle, want)
	}
}

func TestCPUPercentagesNoDelta(t *testing.T) {
	same := parsers.CPUTimes{User: 10, System: 10, Idle: 10}
	_, _, _, idle := cpuPercentages(same, same)
	if idle != 100 {
		t.Errorf("expected idle=100 when no jiffies elapsed, got %v", idle)
	}
}

func TestDiskSamplePicksBusiestNonLoopDevice(t *testing.T) {
	before := []parsers.DiskStatsLine{
		{Device: "loop0", IOTimeMs: 0},
		{Device: "sda", IOTimeMs: 100, WeightedIOTimeMs: 50, ReadsCompleted: 10, WritesCompleted: 5, ReadTimeMs: 200, WriteTimeMs: 100},
	}
	after := []parsers.DiskStatsLine{
		{Device: "loop0", IOTimeMs: 1000},
		{Device: "sda", IOTimeMs: 300, WeightedIOTimeMs: 150, ReadsCompleted: 20, WritesCompleted: 10, ReadTimeMs: 400, WriteTimeMs: 200},
	}
	device, util, queue, await := diskSample(before, after, 1*time.Second)
	if device != "sda" {
		t.Fatalf("expected sda chosen over loop0, got %s", device)
	}
	if util != 20 { // (300-100)/1000ms*100
		t.Errorf("util = %v, want 20", util)
	}
	if queue != 0.1 { // (150-50)/1000ms
		t.Errorf("queue = %v, want 0.1", queue)
	}
	if await != 20 { // (600-300)/(15) = 20ms
		t.Errorf("await = %v, want 20", await)
	}
}

func TestNetworkDropsPerSec(t *testing.T) {
	before := []parsers.NetDevLine{{Interface: "eth0", RxDrop: 10, TxDrop: 5}}
	after := []parsers.NetDevLine{{Interface: "eth0", RxDrop: 30, TxDrop: 15}}
	got := networkDropsPerSec(before, after, 2*time.Second)
	if got != 15 { // (45-15)/2
		t.Errorf("drops/sec = %v, want 15", got)
	}
}

func TestNetworkRetransPct(t *testing.T) {
	before := map[string]uint64{"Tcp.OutSegs": 1000, "Tcp.RetransSegs": 5}
	after := map[string]uint64{"Tcp.OutSegs": 2000, "Tcp.RetransSegs": 25}
	got := networkRetransPct(before, after)
	want := 20.0 / 1000 * 100
	if got != want {
		t.Errorf("retrans pct = %v, want %v", got, want)
	}
}

func TestNetworkRetransPctNoTraffic(t *testing.T) {
	same := map[string]uint64{"Tcp.OutSegs": 100, "Tcp.RetransSegs": 2}
	if got := networkRetransPct(same, same); got != 0 {
		t.Errorf("expected 0 with no delta traffic, got %v", got)
	}
}
