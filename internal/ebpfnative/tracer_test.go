package ebpfnative

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/perfmcp/perf-mcp/internal/capability"
)

func TestAvailableRequiresBTFAndCORE(t *testing.T) {
	if Available(nil) {
		t.Fatalf("expected false for nil snapshot")
	}
	caps := &capability.Snapshot{BTFAvailable: true, CORESupport: false}
	if Available(caps) {
		t.Fatalf("expected false without CORE support")
	}
	caps.CORESupport = true
	if !Available(caps) {
		t.Fatalf("expected true with BTF+CORE")
	}
}

func TestParseRetransEvent(t *testing.T) {
	raw := rawRetransEvent{
		TimestampNs: 123456789,
		SAddr:       0x0100007f, // 127.0.0.1 little-endian network order as stored
		DAddr:       0x0101a8c0, // 192.168.1.1
		PID:         4242,
		SPort:       443,
		DPort:       51234,
	}
	copy(raw.Comm[:], "curl")

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, raw); err != nil {
		t.Fatalf("binary.Write: %v", err)
	}

	ev, err := parseRetransEvent(buf.Bytes())
	if err != nil {
		t.Fatalf("parseRetransEvent: %v", err)
	}
	if ev.PID != 4242 || ev.Comm != "curl" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.SAddr != "127.0.0.1" {
		t.Fatalf("expected SAddr 127.0.0.1, got %s", ev.SAddr)
	}
	if ev.DAddr != "192.168.1.1" {
		t.Fatalf("expected DAddr 192.168.1.1, got %s", ev.DAddr)
	}
}

func TestParseRetransEventTruncated(t *testing.T) {
	if _, err := parseRetransEvent([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for truncated input")
	}
}

func TestCString(t *testing.T) {
	if got := cString([]byte{'a', 'b', 0, 'c'}); got != "ab" {
		t.Fatalf("expected %q, got %q", "ab", got)
	}
}
