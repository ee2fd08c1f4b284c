package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perfmcp/perf-mcp/internal/allowlist"
	"github.com/perfmcp/perf-mcp/internal/artifact"
	"github.com/perfmcp/perf-mcp/internal/bcc"
	"github.com/perfmcp/perf-mcp/internal/capability"
	"github.com/perfmcp/perf-mcp/internal/config"
	"github.com/perfmcp/perf-mcp/internal/ebpfnative"
	"github.com/perfmcp/perf-mcp/internal/logging"
	"github.com/perfmcp/perf-mcp/internal/mcpserver"
	"github.com/perfmcp/perf-mcp/internal/reader"
	"github.com/perfmcp/perf-mcp/internal/sandbox"
	"github.com/perfmcp/perf-mcp/internal/tools"
)

// serveCmd mirrors melisai's "mcp" subcommand (cmd/melisai/mcp.go): a
// signal.NotifyContext-bound server started over stdio. perf-mcp adds an
// --http flag for the streamable-HTTP transport, which melisai never had.
func serveCmd() *cobra.Command {
	var (
		httpMode bool
		debug    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Starts the MCP server over stdio by default, or over streamable
HTTP with --http. AI agents (Claude Desktop, Cursor, or any MCP client)
connect to this process to run perf_* tools against the local host.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := config.Load()
			if httpMode {
				cfg.Transport = config.TransportHTTP
			}

			logger := logging.New(debug)
			defer logger.Sync()

			d, err := buildDeps(cfg, logger)
			if err != nil {
				return fmt.Errorf("build dependencies: %w", err)
			}
			defer d.Artifacts.Stop()

			srv := mcpserver.New(d, version)

			if cfg.Transport == config.TransportHTTP {
				return srv.ServeHTTP(ctx, cfg.HTTPAddr, cfg.BearerToken)
			}
			return srv.ServeStdio(ctx)
		},
	}

	cmd.Flags().BoolVar(&httpMode, "http", false, "serve over streamable HTTP instead of stdio")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug-level logging")
	return cmd
}

// buildDeps assembles the shared tools.Deps value every handler and the
// triage orchestrator run against, wiring each C2/C3/C5/C7 component the
// way melisai's orchestrator.RegisterCollectors wires its collectors.
func buildDeps(cfg config.Config, logger *zap.SugaredLogger) (*tools.Deps, error) {
	caps := capability.Detect()

	store, err := artifact.New(cfg.ArtifactDir, cfg.ArtifactTTL)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}
	store.StartSweeper(5 * time.Minute)

	exec := sandbox.New(logger, 2*time.Second)
	hints := bcc.NewHintStore(cfg.ArtifactDir)
	runtime := bcc.New(exec, hints, logger)
	rd := reader.New(allowlist.PathReadable, cfg.Output.Max)

	var retrans *ebpfnative.Tracer
	if ebpfnative.Available(caps) {
		retrans = ebpfnative.NewTracer("")
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &tools.Deps{
		Exec:          exec,
		BCC:           runtime,
		Reader:        rd,
		NativeRetrans: retrans,
		Artifacts:     store,
		Caps:          capability.Detect,
		Cfg:           cfg,
		Logger:        logger,
		Hostname:      hostname,
	}, nil
}
