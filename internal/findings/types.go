// Package findings is the result-envelope / findings model (C7): the
// value objects every tool handler returns (Histogram, Event, StackTrace)
// plus the Finding/Evidence/Envelope shape and its constructors. Modeled
// on melisai's internal/model package (Result, Histogram, Event,
// StackTrace), generalized away from the teacher's orchestrator-report
// shape into the spec's per-tool envelope.
package findings

import (
	"strconv"
	"time"

	"github.com/perfmcp/perf-mcp/internal/errs"
)

// Severity is the closed severity ladder, ordered least to most severe.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityCritical: 2,
}

// Outranks reports whether s is strictly more severe than other.
func (s Severity) Outranks(other Severity) bool {
	return severityRank[s] > severityRank[other]
}

// Category is the closed finding category enum.
type Category string

const (
	CategoryCPU       Category = "cpu"
	CategoryMemory    Category = "memory"
	CategoryIO        Category = "io"
	CategoryNetwork   Category = "network"
	CategoryProcess   Category = "process"
	CategorySystem    Category = "system"
	CategoryContainer Category = "container"
)

// HistBucket is one bucket of a latency/size histogram.
type HistBucket struct {
	Low   int64 `json:"low"`
	High  int64 `json:"high"`
	Count int64 `json:"count"`
}

// Histogram carries both raw buckets and derived percentiles, plus a
// rendered bar chart (spec §4.8: bar length proportional to count, capped
// at 40).
type Histogram struct {
	Name       string       `json:"name"`
	Unit       string       `json:"unit"`
	Buckets    []HistBucket `json:"buckets"`
	Bars       []string     `json:"bars,omitempty"`
	TotalCount int64        `json:"total_count"`
	P50        float64      `json:"p50"`
	P90        float64      `json:"p90"`
	P99        float64      `json:"p99"`
	Mean       float64      `json:"mean"`
	Max        float64      `json:"max"`
}

// Event is one row of tabular BCC output (tcpconnlat, execsnoop, ...).
type Event struct {
	Time    string                 `json:"time,omitempty"`
	PID     int                    `json:"pid,omitempty"`
	Comm    string                 `json:"comm,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StackTrace is one folded stack with its sample count.
type StackTrace struct {
	Stack string `json:"stack"`
	Count int    `json:"count"`
	Type  string `json:"type"`
}

// Evidence backs a Finding with the raw data that triggered it.
type Evidence struct {
	Source    string      `json:"source"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	RawRef    string      `json:"raw_ref,omitempty"`
}

// Finding is one diagnosis surfaced by a tool handler or the triage
// orchestrator.
type Finding struct {
	ID          string                 `json:"id"`
	Severity    Severity               `json:"severity"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Category    Category               `json:"category"`
	Confidence  float64                `json:"confidence,omitempty"`
	Metrics     map[string]float64     `json:"metrics,omitempty"`
	Suggestion  string                 `json:"suggestion,omitempty"`
	Evidence    []Evidence             `json:"evidence,omitempty"`
	Extra       map[string]interface{} `json:"-"`
}

// MakeFinding is the §4.7 finding constructor.
func MakeFinding(id string, severity Severity, title, description string, category Category) Finding {
	return Finding{ID: id, Severity: severity, Title: title, Description: description, Category: category}
}

// MakeEvidence is the §4.7 evidence constructor.
func MakeEvidence(source, typ string, data interface{}, rawRef string) Evidence {
	return Evidence{Source: source, Type: typ, Timestamp: stampTime(), Data: data, RawRef: rawRef}
}

// stampTime exists so tests can observe that evidence construction calls
// a single well-known clock source; it is not otherwise special.
var stampTime = time.Now

// Envelope is the response every tool handler returns (spec §3/§6).
type Envelope struct {
	Success     bool        `json:"success"`
	ToolName    string      `json:"tool_name"`
	ToolVersion string      `json:"tool_version"`
	Host        string      `json:"host"`
	Timestamp   time.Time   `json:"timestamp"`
	DurationMs  int64       `json:"duration_ms"`
	Data        interface{} `json:"data,omitempty"`
	Findings    []Finding   `json:"findings,omitempty"`
	Truncated   bool        `json:"truncated,omitempty"`
	Error       *errs.Error `json:"error,omitempty"`
}

// NewEnvelope stamps the fixed metadata fields common to every response.
func NewEnvelope(toolName, toolVersion, host string, start time.Time) Envelope {
	return Envelope{
		ToolName:    toolName,
		ToolVersion: toolVersion,
		Host:        host,
		Timestamp:   start,
		DurationMs:  time.Since(start).Milliseconds(),
	}
}

// Summarize turns a finding list into the short human sentence described
// in §4.7 ("N critical, M warning: titles...").
func Summarize(fs []Finding) string {
	if len(fs) == 0 {
		return "no findings"
	}
	var critical, warning, info int
	titles := make([]string, 0, len(fs))
	for _, f := range fs {
		switch f.Severity {
		case SeverityCritical:
			critical++
		case SeverityWarning:
			warning++
		default:
			info++
		}
		titles = append(titles, f.Title)
	}
	summary := ""
	if critical > 0 {
		summary += pluralize(critical, "critical")
	}
	if warning > 0 {
		if summary != "" {
			summary += ", "
		}
		summary += pluralize(warning, "warning")
	}
	if summary == "" {
		summary = pluralize(info, "info")
	}
	return summary + ": " + joinTitles(titles)
}

func pluralize(n int, word string) string {
	return strconv.Itoa(n) + " " + word
}

func joinTitles(titles []string) string {
	out := ""
	for i, t := range titles {
		if i > 0 {
			out += "; "
		}
		out += t
		if i >= 2 {
			break
		}
	}
	return out
}
