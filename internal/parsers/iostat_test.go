package parsers

import "testing"

func TestParseIostatExtended(t *testing.T) {
	raw := `Linux 5.15.0 (host)    08/01/2026    _x86_64_    (4 CPU)

Device            r/s     w/s     rkB/s     wkB/s   aqu-sz   await  %util
sda              10.00   20.00    500.00   1000.00     0.50    5.00   12.50
nvme0n1          50.00  100.00   2500.00   5000.00     1.20    1.50   45.00`

	devices := ParseIostatExtended(raw)
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0].Device != "sda" || devices[0].UtilPct != 12.50 {
		t.Fatalf("unexpected sda row: %+v", devices[0])
	}
	if devices[1].Device != "nvme0n1" || devices[1].AwaitMs != 1.50 {
		t.Fatalf("unexpected nvme0n1 row: %+v", devices[1])
	}
}

func TestParseIostatExtendedLegacyQueueColumn(t *testing.T) {
	raw := `Device:         rrqm/s   wrqm/s     r/s     w/s    rkB/s    wkB/s avgrq-sz avgqu-sz   await  %util
sda               0.00     0.00   10.00   20.00   500.00  1000.00     5.00     0.50    5.00   12.50`

	devices := ParseIostatExtended(raw)
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}
	if devices[0].AvgQueueSize != 0.50 {
		t.Fatalf("expected legacy avgqu-sz to be picked up, got %+v", devices[0])
	}
}

func TestParseIostatExtendedNoHeader(t *testing.T) {
	if devices := ParseIostatExtended("garbage\nmore garbage\n"); devices != nil {
		t.Fatalf("expected nil for missing header, got %+v", devices)
	}
}
