package parsers

import (
	"strconv"
	"strings"

	"github.com/perfmcp/perf-mcp/internal/findings"
)

// ParseTabularEvents parses BCC tabular output (tcpconnlat, execsnoop,
// syscount, ...): a header row followed by whitespace-delimited data rows,
// tolerant of preamble lines and of a header/row field-count mismatch.
func ParseTabularEvents(raw string, maxEvents int) ([]findings.Event, bool) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) < 2 {
		return nil, false
	}

	headerIdx := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isPreambleLine(trimmed) {
			continue
		}
		headerIdx = i
		break
	}
	if headerIdx < 0 {
		return nil, false
	}

	headers := strings.Fields(lines[headerIdx])
	if len(headers) == 0 {
		return nil, false
	}

	var events []findings.Event
	truncated := false

	for _, line := range lines[headerIdx+1:] {
		line = strings.TrimSpace(line)
		if line == "" || isPreambleLine(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		ev := findings.Event{Details: map[string]interface{}{}}
		limit := len(headers)
		if len(fields) < limit {
			limit = len(fields)
		}
		for i := 0; i < limit; i++ {
			key := strings.ToLower(headers[i])
			switch key {
			case "time", "time(s)":
				ev.Time = fields[i]
			case "pid":
				ev.PID, _ = strconv.Atoi(fields[i])
			case "comm":
				ev.Comm = fields[i]
			default:
				if v, err := strconv.ParseFloat(fields[i], 64); err == nil {
					ev.Details[key] = v
				} else {
					ev.Details[key] = fields[i]
				}
			}
		}
		events = append(events, ev)
		if maxEvents > 0 && len(events) >= maxEvents {
			truncated = true
			break
		}
	}
	return events, truncated
}
