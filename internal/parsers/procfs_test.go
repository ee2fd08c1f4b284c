package parsers

import "testing"

func TestParseProcStat(t *testing.T) {
	content := `cpu  100 10 50 800 5 0 2 0 0 0
cpu0 50 5 25 400 2 0 1 0 0 0
ctxt 123456
processes 789
procs_running 2
procs_blocked 1`

	stat := ParseProcStat(content)
	if stat.Aggregate.User != 100 || stat.Aggregate.Idle != 800 {
		t.Fatalf("unexpected aggregate: %+v", stat.Aggregate)
	}
	if stat.ContextSwitches != 123456 {
		t.Fatalf("expected ctxt 123456, got %d", stat.ContextSwitches)
	}
	if stat.ProcsRunning != 2 || stat.ProcsBlocked != 1 {
		t.Fatalf("unexpected procs_running/blocked: %+v", stat)
	}
	if _, ok := stat.PerCPU[0]; !ok {
		t.Fatalf("expected PerCPU[0] entry")
	}
}

func TestParseLoadAvg(t *testing.T) {
	la := ParseLoadAvg("0.50 0.75 1.00 3/456 7890\n")
	if la.Avg1 != 0.50 || la.Avg5 != 0.75 || la.Avg15 != 1.00 {
		t.Fatalf("unexpected averages: %+v", la)
	}
	if la.RunnableEntities != 3 || la.TotalEntities != 456 || la.LastPID != 7890 {
		t.Fatalf("unexpected fields: %+v", la)
	}
}

func TestParseMeminfo(t *testing.T) {
	content := `MemTotal:       16384000 kB
MemFree:         1024000 kB
MemAvailable:    8192000 kB`
	m := ParseMeminfo(content)
	if m["MemTotal"] != 16384000 || m["MemAvailable"] != 8192000 {
		t.Fatalf("unexpected meminfo: %+v", m)
	}
}

func TestParseVmstat(t *testing.T) {
	content := "pgfault 1000\npgmajfault 5\n"
	m := ParseVmstat(content)
	if m["pgfault"] != 1000 || m["pgmajfault"] != 5 {
		t.Fatalf("unexpected vmstat: %+v", m)
	}
}

func TestParseNetDev(t *testing.T) {
	content := `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo: 1000       10    0    0    0     0          0         0  1000       10    0    0    0     0       0          0
  eth0: 50000      100   1    2    0     0          0         0  60000      120   0    0    0     0       0          0`

	lines := ParseNetDev(content)
	if len(lines) != 2 {
		t.Fatalf("expected 2 interfaces, got %d", len(lines))
	}
	var eth0 *NetDevLine
	for i := range lines {
		if lines[i].Interface == "eth0" {
			eth0 = &lines[i]
		}
	}
	if eth0 == nil {
		t.Fatalf("expected eth0 entry")
	}
	if eth0.RxBytes != 50000 || eth0.TxBytes != 60000 || eth0.RxErrs != 1 {
		t.Fatalf("unexpected eth0 fields: %+v", eth0)
	}
}

func TestParseNetSNMP(t *testing.T) {
	content := `Tcp: RtoAlgorithm RtoMin RtoMax MaxConn ActiveOpens PassiveOpens RetransSegs
Tcp: 1 200 120000 -1 100 50 42
Udp: InDatagrams NoPorts InErrors OutDatagrams
Udp: 1000 2 0 900`

	m := ParseNetSNMP(content)
	if m["Tcp.RetransSegs"] != 42 {
		t.Fatalf("expected Tcp.RetransSegs 42, got %v", m["Tcp.RetransSegs"])
	}
	if m["Udp.InDatagrams"] != 1000 {
		t.Fatalf("expected Udp.InDatagrams 1000, got %v", m["Udp.InDatagrams"])
	}
}

func TestParsePressure(t *testing.T) {
	content := `some avg10=5.00 avg60=2.50 avg300=1.00 total=123456
full avg10=1.00 avg60=0.50 avg300=0.10 total=6789`

	lines := ParsePressure(content)
	if len(lines) != 2 {
		t.Fatalf("expected 2 PSI lines, got %d", len(lines))
	}
	if lines[0].Kind != "some" || lines[0].Avg10 != 5.00 || lines[0].Total != 123456 {
		t.Fatalf("unexpected some line: %+v", lines[0])
	}
}

func TestParseProcCgroup(t *testing.T) {
	content := "0::/user.slice/user-1000.slice\n"
	m := ParseProcCgroup(content)
	if m[""] != "/user.slice/user-1000.slice" {
		t.Fatalf("unexpected cgroup map: %+v", m)
	}
}

func TestParseCPUInfo(t *testing.T) {
	content := "processor\t: 0\nmodel name\t: x\nprocessor\t: 1\nprocessor\t: 2\n"
	if n := ParseCPUInfo(content); n != 3 {
		t.Fatalf("expected 3 CPUs, got %d", n)
	}
}

func TestParseDiskStats(t *testing.T) {
	content := "   8       0 sda 100 5 2000 50 200 10 4000 100 0 150 160\n"
	lines := ParseDiskStats(content)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Device != "sda" || lines[0].ReadsCompleted != 100 || lines[0].WritesCompleted != 200 {
		t.Fatalf("unexpected diskstats line: %+v", lines[0])
	}
}
