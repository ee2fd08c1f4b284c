package tools

import (
	"strconv"
	"time"

	"github.com/perfmcp/perf-mcp/internal/errs"
)

const (
	minDuration = 1 * time.Second
	maxDuration = 60 * time.Second

	minSampleHz = 1
	maxSampleHz = 999
)

// durationParam extracts a "duration_seconds" field, defaulting to def when
// absent, and enforces the 1-60s range from spec §4.8 step 1.
func durationParam(params map[string]interface{}, def time.Duration) (time.Duration, *errs.Error) {
	v, ok := params["duration_seconds"]
	if !ok {
		return def, nil
	}
	n, ok := asFloat(v)
	if !ok {
		return 0, errs.New(errs.InvalidDuration, "duration_seconds must be a number")
	}
	d := time.Duration(n * float64(time.Second))
	if d < minDuration || d > maxDuration {
		return 0, errs.New(errs.InvalidDuration, "duration_seconds must be between 1 and 60")
	}
	return d, nil
}

// pidParam extracts a required positive-integer "pid" field.
func pidParam(params map[string]interface{}) (int, *errs.Error) {
	v, ok := params["pid"]
	if !ok {
		return 0, errs.New(errs.InvalidPID, "pid is required")
	}
	n, ok := asFloat(v)
	if !ok || n <= 0 || n != float64(int(n)) {
		return 0, errs.New(errs.InvalidPID, "pid must be a positive integer")
	}
	return int(n), nil
}

// optionalPIDParam extracts an optional positive-integer "pid" field; 0, false
// when absent.
func optionalPIDParam(params map[string]interface{}) (int, bool, *errs.Error) {
	if _, ok := params["pid"]; !ok {
		return 0, false, nil
	}
	pid, errv := pidParam(params)
	if errv != nil {
		return 0, false, errv
	}
	return pid, true, nil
}

func stringParam(params map[string]interface{}, key, def string) string {
	v, ok := params[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return def
	}
	return s
}

func intParam(params map[string]interface{}, key string, def, min, max int) (int, *errs.Error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	n, ok := asFloat(v)
	if !ok {
		return 0, errs.New(errs.InvalidParams, key+" must be a number")
	}
	i := int(n)
	if i < min || i > max {
		return 0, errs.New(errs.InvalidParams, key+" must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return i, nil
}

const (
	minLinearBucketMs = 1
	maxLinearBucketMs = 1000
)

// histogramTypeParam extracts a "histogram_type" field, defaulting to
// "log2" and rejecting anything outside the tagged variant spec §9
// recognizes ("log2" or "linear").
func histogramTypeParam(params map[string]interface{}) (string, *errs.Error) {
	v := stringParam(params, "histogram_type", "log2")
	if v != "log2" && v != "linear" {
		return "", errs.New(errs.InvalidParams, "histogram_type must be \"log2\" or \"linear\"")
	}
	return v, nil
}

// linearBucketParam extracts "linear_bucket_ms", the bpftrace linear
// fallback's bucket width in milliseconds (spec §8 S3).
func linearBucketParam(params map[string]interface{}) (int, *errs.Error) {
	return intParam(params, "linear_bucket_ms", 1, minLinearBucketMs, maxLinearBucketMs)
}

func boolParam(params map[string]interface{}, key string, def bool) bool {
	v, ok := params[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

