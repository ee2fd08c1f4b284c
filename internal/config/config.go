// Package config assembles perf-mcp's runtime configuration from environment
// variables and flags, the way melisai's CLI assembled collector.CollectConfig.
package config

import (
	"os"
	"strconv"
	"time"
)

// Transport selects how the MCP server exposes its tools.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// OutputLimits bounds response sizes per tool class.
type OutputLimits struct {
	Default int64 // 64 KiB
	Profile int64 // 256 KiB
	Max     int64 // 1 MiB absolute ceiling
}

// TimeoutClass holds the default/max timeout pair for a tool class.
type TimeoutClass struct {
	Default time.Duration
	Max     time.Duration
}

// Config is perf-mcp's process-wide configuration, built once at startup.
type Config struct {
	Transport    Transport
	HTTPAddr     string
	BearerToken  string
	ArtifactDir  string
	ArtifactTTL  time.Duration
	Output       OutputLimits
	Snapshot     TimeoutClass
	Profile      TimeoutClass
	Trace        TimeoutClass
	AuditLog     bool
}

const (
	defaultOutputBytes        = 64 * 1024
	defaultProfileOutputBytes = 256 * 1024
	defaultMaxOutputBytes     = 1024 * 1024
)

// Load builds a Config from environment variables, falling back to the
// defaults documented in the specification's "Configuration knobs" section.
func Load() Config {
	cfg := Config{
		Transport:   Transport(envOr("PERF_MCP_TRANSPORT", string(TransportStdio))),
		HTTPAddr:    envOr("PERF_MCP_HTTP_ADDR", ":8585"),
		BearerToken: os.Getenv("PERF_MCP_BEARER_TOKEN"),
		ArtifactDir: envOr("PERF_MCP_ARTIFACT_DIR", defaultArtifactDir()),
		ArtifactTTL: envDuration("PERF_MCP_ARTIFACT_TTL", time.Hour),
		AuditLog:    envBool("PERF_MCP_AUDIT_LOG", false),
		Output: OutputLimits{
			Default: envInt64("PERF_MCP_OUTPUT_CAP", defaultOutputBytes),
			Profile: envInt64("PERF_MCP_PROFILE_OUTPUT_CAP", defaultProfileOutputBytes),
			Max:     envInt64("PERF_MCP_MAX_OUTPUT_CAP", defaultMaxOutputBytes),
		},
		Snapshot: TimeoutClass{Default: 5 * time.Second, Max: 15 * time.Second},
		Profile:  TimeoutClass{Default: 15 * time.Second, Max: 60 * time.Second},
		Trace:    TimeoutClass{Default: 10 * time.Second, Max: 30 * time.Second},
	}
	return cfg
}

func defaultArtifactDir() string {
	base := os.TempDir()
	return base + "/perf-mcp"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
