// perf-mcp — Model Context Protocol server exposing Linux performance
// diagnostics (procfs/sysfs, BCC/eBPF, ss, iostat) as a closed set of tools
// for an AI agent to call directly.
//
// cmd/perf-mcp mirrors melisai's cmd/melisai split: a cobra root command in
// main.go plus one file per subcommand (serve.go, detect.go, selftest.go)
// instead of melisai's collect/install/capabilities/diff set, since the
// MCP server replaces the one-shot report as the primary interface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "perf-mcp",
		Short: "Linux performance diagnosis over the Model Context Protocol",
		Long: `perf-mcp — single Go binary exposing Linux performance diagnostics
as an MCP tool surface.

Tools read /proc, /sys and run allow-listed utilities (ss, iostat) with no
root required, escalate to BCC/eBPF tracing when root and the bcc-tools
package are present, and fall back to bpftrace scripts when a BCC tool
fails to compile. A meta-tool, perf_triage_diagnose, fans out to the rest
of the surface and returns ranked root-cause hypotheses instead of raw
metrics.`,
		Version: version,
	}

	rootCmd.AddCommand(serveCmd(), detectCmd(), selftestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
