package parsers

import (
	"testing"

	"github.com/perfmcp/perf-mcp/internal/findings"
)

func TestParseHistogram(t *testing.T) {
	raw := `     usecs               : count     distribution
         0 -> 1          : 0        |                                        |
         2 -> 3          : 4        |****                                    |
         4 -> 7          : 40       |****************************************|
         8 -> 15         : 10       |**********                              |`

	h, err := ParseHistogram(raw, "run_queue_latency", "us")
	if err != nil {
		t.Fatalf("ParseHistogram returned error: %v", err)
	}
	if len(h.Buckets) != 4 {
		t.Fatalf("expected 4 buckets, got %d", len(h.Buckets))
	}
	if h.TotalCount != 54 {
		t.Fatalf("expected total count 54, got %d", h.TotalCount)
	}
	maxBar := 0
	for _, bar := range h.Bars {
		if len(bar) > maxBar {
			maxBar = len(bar)
		}
	}
	if maxBar != maxBarLength {
		t.Fatalf("expected max bar length %d, got %d", maxBarLength, maxBar)
	}
}

func TestParseHistogramNoData(t *testing.T) {
	if _, err := ParseHistogram("Tracing... Hit Ctrl-C to end.\n", "x", "us"); err != ErrNoHistogramData {
		t.Fatalf("expected ErrNoHistogramData, got %v", err)
	}
}

func TestParseLinearHistogram(t *testing.T) {
	raw := `@usecs:
[0, 10)                5 |@@@@@@@@@@@@@@@@@@@@@@                             |
[10, 20)               9 |@@@@@@@@@@@@@@@@@@@@@@@@@@@@@@@@@@@@@@            |`

	h, err := ParseLinearHistogram(raw, "wait", "us")
	if err != nil {
		t.Fatalf("ParseLinearHistogram returned error: %v", err)
	}
	if len(h.Buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(h.Buckets))
	}
	if h.TotalCount != 14 {
		t.Fatalf("expected total count 14, got %d", h.TotalCount)
	}
}

func TestRenderBarsMonotone(t *testing.T) {
	buckets := []findings.HistBucket{{Count: 0}, {Count: 1}, {Count: 5}, {Count: 10}}
	prev := -1
	for _, bar := range renderBars(buckets, 10) {
		n := len(bar)
		if n < prev {
			t.Fatalf("bar length not monotone non-decreasing: %d before %d", prev, n)
		}
		prev = n
	}
}

func TestParsePerDiskHistogram(t *testing.T) {
	raw := `disk = 'nvme0n1'
     usecs               : count     distribution
         0 -> 1          : 3        |****                                    |

disk = 'sda'
     usecs               : count     distribution
         0 -> 1          : 7        |****************************************|`

	hists, err := ParsePerDiskHistogram(raw, "us")
	if err != nil {
		t.Fatalf("ParsePerDiskHistogram returned error: %v", err)
	}
	if len(hists) != 2 {
		t.Fatalf("expected 2 per-disk histograms, got %d", len(hists))
	}
}

func TestParsePerDiskHistogramFallsBackToSingle(t *testing.T) {
	raw := `     usecs               : count     distribution
         0 -> 1          : 3        |****                                    |`

	hists, err := ParsePerDiskHistogram(raw, "us")
	if err != nil {
		t.Fatalf("ParsePerDiskHistogram returned error: %v", err)
	}
	if len(hists) != 1 {
		t.Fatalf("expected 1 fallback histogram, got %d", len(hists))
	}
}
