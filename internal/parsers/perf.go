package parsers

import (
	"strconv"
	"strings"
)

// PerfReportEntry is one symbol row from `perf report --stdio`.
type PerfReportEntry struct {
	OverheadPct float64
	Command     string
	Symbol      string
}

// ParsePerfReportStdio parses `perf report --stdio`'s "# Overhead ..."
// table, skipping comment lines (prefixed "#").
func ParsePerfReportStdio(raw string) []PerfReportEntry {
	var out []PerfReportEntry
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 4 {
			continue
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
		if err != nil {
			continue
		}
		out = append(out, PerfReportEntry{
			OverheadPct: pct,
			Command:     fields[2],
			Symbol:      strings.Join(fields[3:], " "),
		})
	}
	return out
}

// PerfSchedLatencyEntry is one row of `perf sched latency`'s per-task
// scheduling latency table.
type PerfSchedLatencyEntry struct {
	Task               string
	PID                int
	AvgDelayMs         float64
	MaxDelayMs         float64
	MaxDelayAtSeconds  float64
}

// ParsePerfSchedLatency parses `perf sched latency`'s table. A line looks
// like: "task:pid        |   123.45 ms |    9 | avg: 0.012 ms | max: 5.1 ms | max at: 12.3 s |"
func ParsePerfSchedLatency(raw string) []PerfSchedLatencyEntry {
	var out []PerfSchedLatencyEntry
	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(line, "|") || !strings.Contains(line, ":") {
			continue
		}
		cells := strings.Split(line, "|")
		if len(cells) < 4 {
			continue
		}
		taskPID := strings.TrimSpace(cells[0])
		colon := strings.LastIndex(taskPID, ":")
		if colon < 0 {
			continue
		}
		task := taskPID[:colon]
		pid, err := strconv.Atoi(strings.TrimSpace(taskPID[colon+1:]))
		if err != nil {
			continue
		}
		entry := PerfSchedLatencyEntry{Task: task, PID: pid}
		for _, cell := range cells[1:] {
			cell = strings.TrimSpace(cell)
			switch {
			case strings.HasPrefix(cell, "avg:"):
				entry.AvgDelayMs = extractMs(cell)
			case strings.HasPrefix(cell, "max:"):
				entry.MaxDelayMs = extractMs(cell)
			case strings.HasPrefix(cell, "max at:"):
				entry.MaxDelayAtSeconds = extractMs(cell)
			}
		}
		out = append(out, entry)
	}
	return out
}

func extractMs(cell string) float64 {
	fields := strings.Fields(cell)
	for _, f := range fields {
		if v, err := strconv.ParseFloat(f, 64); err == nil {
			return v
		}
	}
	return 0
}

// PerfTimehistEntry is one sample row from `perf sched timehist`.
type PerfTimehistEntry struct {
	TimestampSeconds float64
	Comm             string
	PID              int
	WaitTimeMs       float64
	SchedDelayMs     float64
}

// ParsePerfSchedTimehist parses `perf sched timehist`'s per-event rows,
// skipping the header and "time" column lines.
func ParsePerfSchedTimehist(raw string) []PerfTimehistEntry {
	var out []PerfTimehistEntry
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "time") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 5 {
			continue
		}
		ts, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], ":"), 64)
		if err != nil {
			continue
		}
		// skip the optional "[cpu]" column between the timestamp and task.
		idx := 1
		if strings.HasPrefix(fields[1], "[") && strings.HasSuffix(fields[1], "]") {
			idx = 2
		}
		if len(fields) < idx+3 {
			continue
		}
		commPID := fields[idx]
		bracket := strings.LastIndex(commPID, "[")
		if bracket < 0 {
			continue
		}
		comm := commPID[:bracket]
		pid, _ := strconv.Atoi(strings.Trim(commPID[bracket+1:], "[]"))
		wait, _ := strconv.ParseFloat(fields[idx+1], 64)
		delay, _ := strconv.ParseFloat(fields[idx+2], 64)
		out = append(out, PerfTimehistEntry{
			TimestampSeconds: ts,
			Comm:             comm,
			PID:              pid,
			WaitTimeMs:       wait,
			SchedDelayMs:     delay,
		})
	}
	return out
}
