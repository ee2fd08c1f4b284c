package parsers

import (
	"strconv"
	"strings"
)

// IostatDevice is one device row from `iostat -xz`'s extended device report.
type IostatDevice struct {
	Device        string
	RPS, WPS      float64
	RKBs, WKBs    float64
	AvgQueueSize  float64
	AwaitMs       float64
	UtilPct       float64
}

// ParseIostatExtended parses the "Device ..." table from `iostat -xz`
// output, keyed on the presence of an "%util" column header.
func ParseIostatExtended(raw string) []IostatDevice {
	lines := strings.Split(raw, "\n")
	headerIdx := -1
	var headers []string
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if strings.EqualFold(fields[0], "Device") || strings.EqualFold(fields[0], "Device:") {
			headerIdx = i
			headers = fields
			break
		}
	}
	if headerIdx < 0 {
		return nil
	}

	colIndex := func(names ...string) int {
		for _, n := range names {
			for i, h := range headers {
				if strings.EqualFold(h, n) {
					return i
				}
			}
		}
		return -1
	}
	rIdx := colIndex("r/s")
	wIdx := colIndex("w/s")
	rkbIdx := colIndex("rkB/s")
	wkbIdx := colIndex("wkB/s")
	qIdx := colIndex("aqu-sz", "avgqu-sz")
	awaitIdx := colIndex("await")
	utilIdx := colIndex("%util")

	var out []IostatDevice
	for _, line := range lines[headerIdx+1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		parseAt := func(idx int) float64 {
			if idx < 0 || idx >= len(fields) {
				return 0
			}
			v, _ := strconv.ParseFloat(fields[idx], 64)
			return v
		}
		out = append(out, IostatDevice{
			Device:       fields[0],
			RPS:          parseAt(rIdx),
			WPS:          parseAt(wIdx),
			RKBs:         parseAt(rkbIdx),
			WKBs:         parseAt(wkbIdx),
			AvgQueueSize: parseAt(qIdx),
			AwaitMs:      parseAt(awaitIdx),
			UtilPct:      parseAt(utilIdx),
		})
	}
	return out
}
