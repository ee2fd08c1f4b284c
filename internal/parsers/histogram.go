// Package parsers holds every pure, deterministic, side-effect-free parser
// (C6): total functions from a string to a typed findings value. Adapted
// from melisai's internal/executor/parsers.go, generalized to return the
// findings package's value types instead of a collector-shaped Result, and
// extended with the procfs/sysfs/perf/ss/bpftrace parsers the BCC-only
// teacher never needed.
package parsers

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/perfmcp/perf-mcp/internal/findings"
)

var ansiEscapeRe = regexp.MustCompile(`\x1b\[[0-9;]*[mGKHF]`)

func stripANSI(s string) string {
	return ansiEscapeRe.ReplaceAllString(s, "")
}

func isPreambleLine(line string) bool {
	return strings.HasPrefix(line, "Tracing") || strings.HasPrefix(line, "Attaching")
}

// ErrNoHistogramData signals a clean "no events during collection", not a
// parse failure.
var ErrNoHistogramData = errors.New("no histogram buckets found")

var log2BucketRe = regexp.MustCompile(`^\s*(\d+)\s*->\s*(\d+)\s*:\s*(\d+)`)

// ParseHistogram parses BCC's power-of-2 histogram format:
//
//	usecs     : count   distribution
//	  0 -> 1  : 10     |**                            |
func ParseHistogram(raw, name, unit string) (*findings.Histogram, error) {
	raw = stripANSI(raw)
	var buckets []findings.HistBucket
	for _, line := range strings.Split(raw, "\n") {
		m := log2BucketRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		low, _ := strconv.ParseInt(m[1], 10, 64)
		high, _ := strconv.ParseInt(m[2], 10, 64)
		count, _ := strconv.ParseInt(m[3], 10, 64)
		buckets = append(buckets, findings.HistBucket{Low: low, High: high, Count: count})
	}
	if len(buckets) == 0 {
		return nil, ErrNoHistogramData
	}
	h := &findings.Histogram{Name: name, Unit: unit, Buckets: buckets}
	computeHistStats(h)
	return h, nil
}

// linearBucketRe matches bpftrace's linear histogram format:
// "[0, 10)              5 |@@@@@@@@@@@@@@@@@@@@@@      |"
var linearBucketRe = regexp.MustCompile(`^\s*\[(\d+),\s*(\d+)\)\s*(\d+)`)

// ParseLinearHistogram parses bpftrace's linear lhist() output.
func ParseLinearHistogram(raw, name, unit string) (*findings.Histogram, error) {
	raw = stripANSI(raw)
	var buckets []findings.HistBucket
	for _, line := range strings.Split(raw, "\n") {
		m := linearBucketRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		low, _ := strconv.ParseInt(m[1], 10, 64)
		high, _ := strconv.ParseInt(m[2], 10, 64)
		count, _ := strconv.ParseInt(m[3], 10, 64)
		buckets = append(buckets, findings.HistBucket{Low: low, High: high, Count: count})
	}
	if len(buckets) == 0 {
		return nil, ErrNoHistogramData
	}
	h := &findings.Histogram{Name: name, Unit: unit, Buckets: buckets}
	computeHistStats(h)
	return h, nil
}

func computeHistStats(h *findings.Histogram) {
	var total int64
	var weighted float64
	maxCount := int64(0)
	for _, b := range h.Buckets {
		total += b.Count
		mid := float64(b.Low+b.High) / 2.0
		weighted += mid * float64(b.Count)
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	h.TotalCount = total
	if total > 0 {
		h.Mean = weighted / float64(total)
	}
	h.P50 = computePercentile(h.Buckets, total, 0.50)
	h.P90 = computePercentile(h.Buckets, total, 0.90)
	h.P99 = computePercentile(h.Buckets, total, 0.99)
	if len(h.Buckets) > 0 {
		h.Max = float64(h.Buckets[len(h.Buckets)-1].High)
	}
	h.Bars = renderBars(h.Buckets, maxCount)
}

func computePercentile(buckets []findings.HistBucket, total int64, pct float64) float64 {
	target := int64(math.Ceil(float64(total) * pct))
	var cumulative int64
	for _, b := range buckets {
		cumulative += b.Count
		if cumulative >= target {
			return float64(b.Low+b.High) / 2.0
		}
	}
	if len(buckets) > 0 {
		return float64(buckets[len(buckets)-1].High)
	}
	return 0
}

const maxBarLength = 40

// renderBars builds the "*"-bar for each bucket, proportional to count
// over the max-count bucket, capped at 40 (spec §4.8).
func renderBars(buckets []findings.HistBucket, maxCount int64) []string {
	bars := make([]string, len(buckets))
	for i, b := range buckets {
		if maxCount == 0 {
			bars[i] = ""
			continue
		}
		n := int(float64(b.Count) / float64(maxCount) * maxBarLength)
		bars[i] = strings.Repeat("*", n)
	}
	return bars
}

// ParsePerDiskHistogram splits biolatency -D output into one histogram per
// "disk = 'nvme0n1'" section, falling back to a single histogram when no
// section markers are present.
func ParsePerDiskHistogram(raw, unit string) ([]findings.Histogram, error) {
	sections := splitDiskSections(raw)
	var hists []findings.Histogram
	for disk, section := range sections {
		h, err := ParseHistogram(section, "block_io_latency_"+disk, unit)
		if err != nil {
			continue
		}
		hists = append(hists, *h)
	}
	if len(hists) == 0 {
		h, err := ParseHistogram(raw, "block_io_latency", unit)
		if err != nil {
			return nil, err
		}
		hists = append(hists, *h)
	}
	return hists, nil
}

var diskSectionRe = regexp.MustCompile(`(?i)disk\s*=\s*'?(\w+)'?`)

func splitDiskSections(raw string) map[string]string {
	sections := make(map[string]string)
	currentDisk := ""
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if m := diskSectionRe.FindStringSubmatch(line); m != nil {
			if currentDisk != "" && len(lines) > 0 {
				sections[currentDisk] = strings.Join(lines, "\n")
			}
			currentDisk = m[1]
			lines = nil
			continue
		}
		if currentDisk != "" {
			lines = append(lines, line)
		}
	}
	if currentDisk != "" && len(lines) > 0 {
		sections[currentDisk] = strings.Join(lines, "\n")
	}
	return sections
}
