// Package mcppool tracks connected MCP servers and which of them have
// announced a tool-list change, so the CodeMode tool (spec §4.11) can
// refresh only the servers that need it before freezing a sandbox's tool
// snapshot.
//
// Grounded on `_examples/original_source/rust/codemode/tests/spec_8_tool_changes.rs`'s
// DynamicMockServer/DirtyServerTracker contract and on
// `_examples/original_source/rust/agents/src/codemode.rs`'s
// `crate::mcp::filter_servers` call. Server/tool shapes use
// `github.com/mark3labs/mcp-go`'s `mcp` package types directly (mcp.Tool,
// mcp.CallToolResult) rather than a hand-rolled parallel model, per the
// corpus's own MCP client usage (`kadirpekel-hector`'s mcptoolset package).
package mcppool

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

// Server is one connected MCP server as CodeMode sees it: enough to list
// its tools, call one, and (if it advertises support) refresh its tool
// list on demand.
type Server interface {
	ServerID() string
	ServerName() string
	Description() string
	Instructions() string
	Tools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, toolName string, args map[string]any) (*mcp.CallToolResult, error)
	SupportsListChanged() bool
	RefreshTools(ctx context.Context) error
}

// DirtyTracker records which servers have announced a tools/list_changed
// notification since the last refresh, mirroring DirtyServerTracker's
// mark_changed/has_dirty/take_dirty/dirty/clear contract exactly.
type DirtyTracker struct {
	mu    sync.Mutex
	dirty map[string]struct{}
}

// NewDirtyTracker returns an empty tracker.
func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{dirty: map[string]struct{}{}}
}

// MarkChanged flags serverID as dirty. Repeated marks are idempotent.
func (t *DirtyTracker) MarkChanged(serverID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty[serverID] = struct{}{}
}

// HasDirty reports whether any server is currently marked dirty.
func (t *DirtyTracker) HasDirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.dirty) > 0
}

// TakeDirty returns the current dirty set and clears it.
func (t *DirtyTracker) TakeDirty() map[string]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.dirty
	t.dirty = map[string]struct{}{}
	return out
}

// Dirty borrows a snapshot copy of the dirty set without clearing it —
// used when the caller needs to retry sandbox creation without losing the
// marks on failure (mirrors the Rust integration test's dirty()-then-clear()
// pattern).
func (t *DirtyTracker) Dirty() map[string]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]struct{}, len(t.dirty))
	for k := range t.dirty {
		out[k] = struct{}{}
	}
	return out
}

// Clear empties the dirty set.
func (t *DirtyTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = map[string]struct{}{}
}

// Pool holds every MCP server connected to the current session, keyed by
// server ID.
type Pool struct {
	mu      sync.RWMutex
	servers map[string]Server
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{servers: map[string]Server{}}
}

// Register adds or replaces a connected server.
func (p *Pool) Register(server Server) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.servers[server.ServerID()] = server
}

// Unregister removes a server, e.g. on disconnect.
func (p *Pool) Unregister(serverID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.servers, serverID)
}

// FilterServers returns every connected server when allowed is nil
// (no allow-list configured), or only those whose ID appears in allowed
// otherwise — mirrors `crate::mcp::filter_servers`'s allow-list semantics
// (spec §4.11 step 1: "filtered by the agent's allowed_mcp_servers").
// Order is not significant to callers but is kept stable (sorted by ID
// when allowed is nil, allow-list order otherwise) so prompts and
// declarations render deterministically.
func (p *Pool) FilterServers(allowed []string) []Server {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if allowed == nil {
		out := make([]Server, 0, len(p.servers))
		for _, s := range sortedIDs(p.servers) {
			out = append(out, p.servers[s])
		}
		return out
	}

	out := make([]Server, 0, len(allowed))
	for _, id := range allowed {
		if s, ok := p.servers[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func sortedIDs(servers map[string]Server) []string {
	ids := make([]string, 0, len(servers))
	for id := range servers {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// RefreshDirty calls RefreshTools on every server in servers that is both
// present in dirty and reports SupportsListChanged, mirroring
// spec_8_tool_changes.rs's "dirty servers that support listChanged are
// refreshed before snapshot build; servers without listChanged support are
// never refreshed, even if dirty" rule. Refresh errors are collected but do
// not stop refreshing the remaining servers, since one unreachable server
// shouldn't block CodeMode for everyone else.
func RefreshDirty(ctx context.Context, servers []Server, dirty map[string]struct{}) []error {
	var errs []error
	for _, s := range servers {
		if _, ok := dirty[s.ServerID()]; !ok {
			continue
		}
		if !s.SupportsListChanged() {
			continue
		}
		if err := s.RefreshTools(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
