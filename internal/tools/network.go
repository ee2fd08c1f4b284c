package tools

import (
	"context"
	"time"

	"github.com/perfmcp/perf-mcp/internal/ebpfnative"
	"github.com/perfmcp/perf-mcp/internal/findings"
	"github.com/perfmcp/perf-mcp/internal/parsers"
	"github.com/perfmcp/perf-mcp/internal/sandbox"
)

// NetworkConnections is perf_network_connections: `ss -s` summary plus
// `ss -tnap` connection table.
func NetworkConnections(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_network_connections", ToolVersion, d.Hostname, start)

	summaryRes := d.Exec.Run(ctx, sandbox.Request{
		Key: "ss", Argv: []string{"-s"}, Timeout: 5 * time.Second, MaxOutputBytes: d.Cfg.Output.Default,
	})
	if summaryRes.Error != nil {
		env.Error = summaryRes.Error
		return env
	}
	connRes := d.Exec.Run(ctx, sandbox.Request{
		Key: "ss", Argv: []string{"-t", "-n", "-a", "-p"}, Timeout: 5 * time.Second, MaxOutputBytes: d.Cfg.Output.Default,
	})

	summary := parsers.ParseSSSummary(summaryRes.Stdout)
	var conns []parsers.SSConnection
	if connRes.Error == nil {
		conns = parsers.ParseSSConnections(connRes.Stdout)
	}

	env.Data = map[string]interface{}{"summary": summary, "connections": conns}
	env.Truncated = summaryRes.Truncated || connRes.Truncated

	var findingsList []findings.Finding
	if summary.TCPTimeWait > 1000 {
		f := findings.MakeFinding("tcp_timewait_high", findings.SeverityWarning,
			"large number of TIME_WAIT sockets", "many sockets are lingering in TIME_WAIT", findings.CategoryNetwork)
		f.Metrics = map[string]float64{"timewait_count": float64(summary.TCPTimeWait)}
		findingsList = append(findingsList, f)
	}
	env.Findings = findingsList
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// NetworkLatency is perf_network_latency: BCC tcpconnlat (connection setup
// latency) or tcplife (flow duration), selected by the "mode" param.
func NetworkLatency(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_network_latency", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, 5*time.Second)
	if errv != nil {
		env.Error = errv
		return env
	}

	tool := "tcpconnlat"
	if stringParam(params, "mode", "connect") == "lifetime" {
		tool = "tcplife"
	}

	outcome := d.BCC.Run(ctx, tool, duration, d.Caps(), d.Cfg.Output.Default)
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	var events []findings.Event
	var truncated bool
	if tool == "tcplife" {
		events, truncated = parsers.ParseTcplife(outcome.Stdout, 100)
	} else {
		events, truncated = parsers.ParseTcpconnlat(outcome.Stdout, 100)
	}

	env.Data = map[string]interface{}{"method": outcome.Method, "tool": tool, "events": events}
	env.Truncated = outcome.Truncated || truncated
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

// NetworkRetransmits is perf_network_retransmits: the native CO-RE
// tcp_retransmit_skb kprobe tracer when BTF+CORE are available, otherwise
// BCC's tcpretrans.
func NetworkRetransmits(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_network_retransmits", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, 5*time.Second)
	if errv != nil {
		env.Error = errv
		return env
	}

	if d.NativeRetrans != nil && ebpfnative.Available(d.Caps()) {
		events, err := d.NativeRetrans.Trace(ctx, duration)
		if err == nil {
			env.Data = map[string]interface{}{"method": "native_ebpf", "events": events}
			env.Findings = retransFindings(len(events))
			env.DurationMs = time.Since(start).Milliseconds()
			return env
		}
		// native path failed to attach/load; fall through to BCC.
	}

	outcome := d.BCC.Run(ctx, "tcpretrans", duration, d.Caps(), d.Cfg.Output.Default)
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}
	events, truncated := parsers.ParseTcpretrans(outcome.Stdout, 100)
	env.Data = map[string]interface{}{"method": outcome.Method, "events": events}
	env.Truncated = outcome.Truncated || truncated
	env.Findings = retransFindings(len(events))
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}

func retransFindings(count int) []findings.Finding {
	if count == 0 {
		return nil
	}
	sev := findings.SeverityInfo
	if count >= 20 {
		sev = findings.SeverityCritical
	} else if count >= 5 {
		sev = findings.SeverityWarning
	}
	f := findings.MakeFinding("tcp_retransmits_observed", sev,
		"TCP retransmits observed", "one or more TCP segments were retransmitted during the sample window", findings.CategoryNetwork)
	f.Metrics = map[string]float64{"retransmit_count": float64(count)}
	return []findings.Finding{f}
}

// NetworkDNSLatency is perf_network_dns_latency: BCC gethostlatency's
// per-resolution event table.
func NetworkDNSLatency(ctx context.Context, d *Deps, params map[string]interface{}) findings.Envelope {
	start := time.Now()
	env := findings.NewEnvelope("perf_network_dns_latency", ToolVersion, d.Hostname, start)

	duration, errv := durationParam(params, 10*time.Second)
	if errv != nil {
		env.Error = errv
		return env
	}

	outcome := d.BCC.Run(ctx, "gethostlatency", duration, d.Caps(), d.Cfg.Output.Default)
	if outcome.Error != nil {
		env.Error = outcome.Error
		return env
	}

	events, truncated := parsers.ParseGethostlatency(outcome.Stdout, 100)
	env.Data = map[string]interface{}{"method": outcome.Method, "resolutions": events}
	env.Truncated = outcome.Truncated || truncated
	env.DurationMs = time.Since(start).Milliseconds()
	return env
}
