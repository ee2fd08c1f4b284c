// Package mcpserver wires the internal/tools registry and the triage
// orchestrator onto mark3labs/mcp-go's server, mirroring melisai's
// internal/mcp/server.go (NewMCPServer + NewStdioServer, a flat
// registerTools function adding one mcp.Tool per handler). Generalized
// from melisai's four hand-written tools onto the full closed 23-tool
// surface driven by a schema table instead of one literal call per tool.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/perfmcp/perf-mcp/internal/findings"
	"github.com/perfmcp/perf-mcp/internal/tools"
	"github.com/perfmcp/perf-mcp/internal/triage"

	"go.uber.org/zap"
)

// Server wraps the mcp-go server instance bound to a Deps value.
type Server struct {
	mcpServer *server.MCPServer
	logger    *zap.SugaredLogger
}

// New builds a Server with every tool in tools.Registry plus the triage
// meta-tool registered against d.
func New(d *tools.Deps, version string) *Server {
	s := server.NewMCPServer("perf-mcp", version, server.WithLogging())
	registerTools(s, d)
	return &Server{mcpServer: s, logger: d.Logger}
}

// ServeStdio runs the server over stdio (blocking), the default transport.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// ServeHTTP runs the server over mcp-go's streamable-HTTP transport on
// addr, gating every request behind a bearer token when one is configured.
// melisai never needed a network transport; this is grounded on mcp-go's
// own server.NewStreamableHTTPServer plus a small stdlib auth wrapper in
// the style of priuatus-fence's net/http proxy server construction.
func (s *Server) ServeHTTP(ctx context.Context, addr, bearerToken string) error {
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	handler := http.Handler(httpServer)
	if bearerToken != "" {
		handler = bearerAuth(bearerToken, handler)
	}

	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if s.logger != nil {
		s.logger.Infow("mcp http transport listening", "addr", addr)
	}
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func bearerAuth(token string, next http.Handler) http.Handler {
	want := "Bearer " + token
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("Authorization")
		if !constantTimeEqual(got, want) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// constantTimeEqual avoids leaking token length/content through timing,
// without pulling in crypto/subtle for a single string comparison.
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

// registerTools builds one mcp.Tool per registry entry (spec's schema
// table, §6) plus the triage meta-tool, wiring each to a dispatcher that
// marshals the handler's findings.Envelope into the tool's text result.
func registerTools(s *server.MCPServer, d *tools.Deps) {
	for _, def := range toolSchemas {
		name := def.name
		s.AddTool(def.build(), func(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			args := requestArgs(req)
			env := tools.Dispatch(ctx, d, name, args)
			return envelopeResult(env), nil
		})
	}

	s.AddTool(triageSchema.build(), func(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := requestArgs(req)
		env := triage.Diagnose(ctx, d, args)
		return envelopeResult(env), nil
	})
}

func requestArgs(req mcpsdk.CallToolRequest) map[string]interface{} {
	if req.Params.Arguments == nil {
		return map[string]interface{}{}
	}
	args, ok := req.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

// envelopeResult marshals an envelope to JSON and wraps it as the tool's
// text content. A handler error still produces success=false JSON, not an
// MCP-level IsError result, since the envelope already carries the closed
// error taxonomy the client is expected to branch on.
func envelopeResult(env findings.Envelope) *mcpsdk.CallToolResult {
	data, err := json.Marshal(env)
	if err != nil {
		return &mcpsdk.CallToolResult{
			IsError: true,
			Content: []mcpsdk.Content{mcpsdk.TextContent{Type: "text", Text: fmt.Sprintf("failed to marshal result: %v", err)}},
		}
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{mcpsdk.TextContent{Type: "text", Text: string(data)}},
	}
}
