package parsers

import "testing"

func TestParseSSSummary(t *testing.T) {
	raw := `Total: 184
TCP:   12 (estab 4, closed 2, orphaned 0, timewait 1)
Transport Total     IP        IPv6
*         184       -         -
UDP       3         2         1`

	s := ParseSSSummary(raw)
	if s.TotalSockets != 184 || s.TCPTotal != 12 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.TCPEstablished != 4 || s.TCPTimeWait != 1 || s.TCPCloseWait != 2 {
		t.Fatalf("unexpected TCP breakdown: %+v", s)
	}
	if s.UDPTotal != 3 {
		t.Fatalf("expected UDPTotal 3, got %d", s.UDPTotal)
	}
}

func TestParseSSConnections(t *testing.T) {
	raw := `State    Recv-Q   Send-Q     Local Address:Port      Peer Address:Port    Process
ESTAB    0        0          10.0.0.5:443            10.0.0.9:51234       users:(("curl",pid=123,fd=4))
LISTEN   0        128        0.0.0.0:22              0.0.0.0:*`

	conns := ParseSSConnections(raw)
	if len(conns) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(conns))
	}
	if conns[0].State != "ESTAB" || conns[0].LocalAddr != "10.0.0.5:443" {
		t.Fatalf("unexpected first connection: %+v", conns[0])
	}
	if conns[0].ProcessInfo == "" {
		t.Fatalf("expected process info to be captured")
	}
	if conns[1].State != "LISTEN" || conns[1].ProcessInfo != "" {
		t.Fatalf("unexpected second connection: %+v", conns[1])
	}
}

func TestParseSSConnectionsEmpty(t *testing.T) {
	if conns := ParseSSConnections("State Recv-Q Send-Q Local Peer\n"); conns != nil {
		t.Fatalf("expected nil for header-only input, got %+v", conns)
	}
}
