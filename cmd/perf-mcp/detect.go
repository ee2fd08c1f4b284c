package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/perfmcp/perf-mcp/internal/capability"
)

// detectCmd replaces melisai's "capabilities" subcommand: instead of two
// separate ebpf.DetectBPFCapabilities/DetectBTF text reports, it prints the
// single capability.Snapshot as JSON, the same value the MCP server's
// meta-tool consults to decide which BCC tools to fan out to.
func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Print a one-shot host capability snapshot as JSON",
		Long:  "Probes kernel version, BTF/CO-RE, PSI, cgroup version, containerization and allow-listed tool availability, then exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := capability.Detect()
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(snap); err != nil {
				return fmt.Errorf("encode snapshot: %w", err)
			}
			return nil
		},
	}
}
