package parsers

import (
	"strconv"
	"strings"
)

// SSSummary is the parsed content of `ss -s`.
type SSSummary struct {
	TotalSockets int
	TCPTotal     int
	TCPEstablished int
	TCPTimeWait  int
	TCPCloseWait int
	UDPTotal     int
}

// ParseSSSummary parses `ss -s` output, e.g.:
//
//	Total: 184
//	TCP:   12 (estab 4, closed 2, orphaned 0, timewait 1)
//	Transport Total     IP        IPv6
//	*         184       -         -
//	UDP       3         2         1
func ParseSSSummary(raw string) SSSummary {
	var s SSSummary
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch {
		case fields[0] == "Total:" && len(fields) >= 2:
			s.TotalSockets, _ = strconv.Atoi(fields[1])
		case fields[0] == "TCP:" && len(fields) >= 2:
			s.TCPTotal, _ = strconv.Atoi(fields[1])
			rest := strings.Join(fields[2:], " ")
			s.TCPEstablished = extractCount(rest, "estab")
			s.TCPTimeWait = extractCount(rest, "timewait")
			s.TCPCloseWait = extractCount(rest, "closed")
		case fields[0] == "UDP" && len(fields) >= 2:
			s.UDPTotal, _ = strconv.Atoi(fields[1])
		}
	}
	return s
}

func extractCount(s, key string) int {
	idx := strings.Index(s, key)
	if idx < 0 {
		return 0
	}
	rest := s[idx+len(key):]
	fields := strings.FieldsFunc(rest, func(r rune) bool {
		return r == ' ' || r == ',' || r == ')'
	})
	for _, f := range fields {
		if v, err := strconv.Atoi(f); err == nil {
			return v
		}
	}
	return 0
}

// SSConnection is one row from `ss -tnap`.
type SSConnection struct {
	State      string
	LocalAddr  string
	PeerAddr   string
	RecvQ, SendQ int
	ProcessInfo string
}

// ParseSSConnections parses `ss -tnap`'s header+rows table.
func ParseSSConnections(raw string) []SSConnection {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) < 2 {
		return nil
	}
	var out []SSConnection
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		recvQ, _ := strconv.Atoi(fields[1])
		sendQ, _ := strconv.Atoi(fields[2])
		conn := SSConnection{
			State:     fields[0],
			RecvQ:     recvQ,
			SendQ:     sendQ,
			LocalAddr: fields[3],
			PeerAddr:  fields[4],
		}
		if len(fields) > 5 {
			conn.ProcessInfo = strings.Join(fields[5:], " ")
		}
		out = append(out, conn)
	}
	return out
}
