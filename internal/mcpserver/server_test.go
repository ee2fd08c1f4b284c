package mcpserver

import (
	"encoding/json"
	"testing"
	"time"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"

	"github.com/perfmcp/perf-mcp/internal/findings"
	"github.com/perfmcp/perf-mcp/internal/tools"
)

func TestToolSchemasCoverEveryRegistryEntry(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range toolSchemas {
		seen[def.name] = true
	}
	for name := range tools.Registry {
		if !seen[name] {
			t.Errorf("tools.Registry entry %q has no mcpserver schema", name)
		}
	}
	for name := range seen {
		if _, ok := tools.Registry[name]; !ok {
			t.Errorf("schema %q does not correspond to a tools.Registry entry", name)
		}
	}
}

func TestToolSchemasBuildWithoutPanicking(t *testing.T) {
	for _, def := range toolSchemas {
		tool := def.build()
		if tool.Name != def.name {
			t.Errorf("schema for %q built a tool named %q", def.name, tool.Name)
		}
	}
	if triageSchema.build().Name != triageSchema.name {
		t.Errorf("triage schema name mismatch")
	}
}

func TestRequestArgsNilArguments(t *testing.T) {
	var req mcpsdk.CallToolRequest
	args := requestArgs(req)
	if args == nil || len(args) != 0 {
		t.Fatalf("expected empty non-nil map, got %+v", args)
	}
}

func TestEnvelopeResultMarshalsSuccessEnvelope(t *testing.T) {
	env := findings.NewEnvelope("perf_system_snapshot", tools.ToolVersion, "host", time.Now())
	env.Success = true
	env.Data = map[string]interface{}{"ok": true}

	result := envelopeResult(env)
	if result.IsError {
		t.Fatalf("expected non-error result")
	}
	if len(result.Content) != 1 {
		t.Fatalf("expected single content block, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcpsdk.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	var decoded findings.Envelope
	if err := json.Unmarshal([]byte(text.Text), &decoded); err != nil {
		t.Fatalf("expected valid JSON envelope, got error: %v", err)
	}
	if !decoded.Success || decoded.ToolName != "perf_system_snapshot" {
		t.Fatalf("unexpected decoded envelope: %+v", decoded)
	}
}

func TestConstantTimeEqual(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Bearer abc", "Bearer abc", true},
		{"Bearer abc", "Bearer abd", false},
		{"Bearer abc", "Bearer ab", false},
		{"", "", true},
	}
	for _, c := range cases {
		if got := constantTimeEqual(c.a, c.b); got != c.want {
			t.Errorf("constantTimeEqual(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
