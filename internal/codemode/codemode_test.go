package codemode

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stencila/attractor/internal/mcppool"
)

type stubServer struct {
	id           string
	name         string
	description  string
	instructions string
	tools        []mcp.Tool
	callResult   *mcp.CallToolResult
	callErr      error
	listChanged  bool
}

func (s *stubServer) ServerID() string      { return s.id }
func (s *stubServer) ServerName() string    { return s.name }
func (s *stubServer) Description() string   { return s.description }
func (s *stubServer) Instructions() string  { return s.instructions }
func (s *stubServer) SupportsListChanged() bool { return s.listChanged }
func (s *stubServer) RefreshTools(ctx context.Context) error { return nil }

func (s *stubServer) Tools(ctx context.Context) ([]mcp.Tool, error) {
	return s.tools, nil
}

func (s *stubServer) CallTool(ctx context.Context, toolName string, args map[string]any) (*mcp.CallToolResult, error) {
	if s.callErr != nil {
		return nil, s.callErr
	}
	return s.callResult, nil
}

func poolWith(servers ...*stubServer) *mcppool.Pool {
	p := mcppool.NewPool()
	for _, s := range servers {
		p.Register(s)
	}
	return p
}

func TestBuildPromptSection_EmptyWhenNoServers(t *testing.T) {
	p := mcppool.NewPool()
	assert.Equal(t, "", BuildPromptSection(context.Background(), p, nil))
}

func TestBuildPromptSection_ListsServersAndDeclarations(t *testing.T) {
	p := poolWith(&stubServer{
		id: "fs-server", name: "Filesystem", description: "reads and writes files",
		tools: []mcp.Tool{{Name: "read_file", Description: "reads a file"}},
	})

	section := BuildPromptSection(context.Background(), p, nil)
	assert.Contains(t, section, "# MCP Codemode")
	assert.Contains(t, section, ToolName)
	assert.Contains(t, section, "Filesystem")
	assert.Contains(t, section, "fs-server")
	assert.Contains(t, section, "1 tools")
	assert.Contains(t, section, "reads and writes files")
	assert.Contains(t, section, "TypeScript declarations")
	assert.Contains(t, section, "read_file")
}

func TestBuildPromptSection_RespectsAllowList(t *testing.T) {
	p := poolWith(
		&stubServer{id: "s1", name: "one"},
		&stubServer{id: "s2", name: "two"},
	)

	section := BuildPromptSection(context.Background(), p, []string{"s2"})
	assert.Contains(t, section, "two")
	assert.NotContains(t, section, "**one**")
}

func TestBuildPromptSection_FallsBackWhenDeclarationsTooLarge(t *testing.T) {
	tools := make([]mcp.Tool, 0, 500)
	for i := 0; i < 500; i++ {
		tools = append(tools, mcp.Tool{Name: "tool", Description: "a rather long description repeated to pad out the declaration size past the configured budget threshold"})
	}
	p := poolWith(&stubServer{id: "big", name: "big", tools: tools})

	section := BuildPromptSection(context.Background(), p, nil)
	assert.Contains(t, section, "too large for the system prompt")
	assert.NotContains(t, section, "## TypeScript declarations")
}

func TestSandbox_ExecuteReturnsResult(t *testing.T) {
	p := mcppool.NewPool()
	sb := NewSandbox(context.Background(), p, nil)

	resp := sb.Execute(context.Background(), RunRequest{
		Code: "globalThis.__codemode_result__ = 2 + 2;",
	})
	require.Empty(t, resp.Diagnostics)
	assert.Equal(t, float64(4), resp.Result)
}

func TestSandbox_ExecuteCapturesConsoleLogs(t *testing.T) {
	p := mcppool.NewPool()
	sb := NewSandbox(context.Background(), p, nil)

	resp := sb.Execute(context.Background(), RunRequest{
		Code: "console.log('fetching data...');",
	})
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "fetching data...", resp.Logs[0].Message)
}

func TestSandbox_ExecuteReportsUncaughtException(t *testing.T) {
	p := mcppool.NewPool()
	sb := NewSandbox(context.Background(), p, nil)

	resp := sb.Execute(context.Background(), RunRequest{Code: "throw new Error('boom');"})
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, SeverityError, resp.Diagnostics[0].Severity)
	assert.Contains(t, resp.Diagnostics[0].Message, "boom")
}

func TestSandbox_ExecuteTimesOut(t *testing.T) {
	p := mcppool.NewPool()
	sb := NewSandbox(context.Background(), p, nil)

	resp := sb.Execute(context.Background(), RunRequest{
		Code:   "while (true) {}",
		Limits: &Limits{TimeoutMS: 50},
	})
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, CodeTimeout, resp.Diagnostics[0].Code)
}

func TestSandbox_ExecuteCallsTool(t *testing.T) {
	server := &stubServer{
		id: "fs-server", name: "Filesystem",
		callResult: &mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "file contents"}}},
	}
	p := poolWith(server)
	sb := NewSandbox(context.Background(), p, nil)

	resp := sb.Execute(context.Background(), RunRequest{
		Code: "globalThis.__codemode_result__ = callTool('fs-server', 'read_file', {path: '/tmp/x'});",
	})
	require.Empty(t, resp.Diagnostics)
	assert.Equal(t, "file contents", resp.Result)
	require.Len(t, resp.ToolTrace, 1)
	assert.Equal(t, "fs-server", resp.ToolTrace[0].ServerID)
	assert.True(t, resp.ToolTrace[0].OK)
}

func TestSandbox_ExecuteEnforcesToolCallBudget(t *testing.T) {
	server := &stubServer{
		id:         "fs-server",
		callResult: &mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "ok"}}},
	}
	p := poolWith(server)
	sb := NewSandbox(context.Background(), p, nil)

	resp := sb.Execute(context.Background(), RunRequest{
		Code: "for (var i = 0; i < 3; i++) { callTool('fs-server', 'noop', {}); }",
		Limits: &Limits{MaxToolCalls: 2},
	})
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, CodeUncaughtException, resp.Diagnostics[0].Code)
	assert.Len(t, resp.ToolTrace, 2)
}

func TestSandbox_FrozenSnapshotIgnoresLaterRefresh(t *testing.T) {
	server := &stubServer{
		id: "s1", name: "one", listChanged: true,
		tools: []mcp.Tool{{Name: "read_file", Description: "reads a file"}},
	}
	p := poolWith(server)
	tracker := mcppool.NewDirtyTracker()

	sb := NewSandboxWithDirty(context.Background(), p, nil, tracker)

	// Mutate the server's live tool list after the snapshot was taken: a
	// real refresh (outside this Sandbox's lifetime) would do the same.
	server.tools = []mcp.Tool{{Name: "write_file", Description: "writes a file"}}
	tracker.MarkChanged("s1")

	resp := sb.Execute(context.Background(), RunRequest{
		Code: "globalThis.__codemode_result__ = listTools('s1').map(function(t) { return t.name; });",
	})
	require.Empty(t, resp.Diagnostics)
	assert.Equal(t, []any{"read_file"}, resp.Result)
	assert.True(t, tracker.HasDirty())
}

func TestNewSandboxWithDirty_DrainsTrackerBeforeSnapshot(t *testing.T) {
	server := &stubServer{id: "s1", name: "one", listChanged: true}
	p := poolWith(server)
	tracker := mcppool.NewDirtyTracker()
	tracker.MarkChanged("s1")

	_ = NewSandboxWithDirty(context.Background(), p, nil, tracker)
	assert.False(t, tracker.HasDirty())
}
