package mcppool

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	id                 string
	name               string
	supportsListChange bool
	refreshCalls       int
	refreshErr         error
	tools              []mcp.Tool
}

func (f *fakeServer) ServerID() string      { return f.id }
func (f *fakeServer) ServerName() string    { return f.name }
func (f *fakeServer) Description() string   { return "" }
func (f *fakeServer) Instructions() string  { return "" }
func (f *fakeServer) SupportsListChanged() bool { return f.supportsListChange }

func (f *fakeServer) Tools(ctx context.Context) ([]mcp.Tool, error) {
	return f.tools, nil
}

func (f *fakeServer) CallTool(ctx context.Context, toolName string, args map[string]any) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "ok"}}}, nil
}

func (f *fakeServer) RefreshTools(ctx context.Context) error {
	f.refreshCalls++
	return f.refreshErr
}

func TestDirtyTracker_MarkChangedIsIdempotent(t *testing.T) {
	tr := NewDirtyTracker()
	tr.MarkChanged("a")
	tr.MarkChanged("a")
	tr.MarkChanged("a")

	assert.True(t, tr.HasDirty())
	dirty := tr.Dirty()
	assert.Len(t, dirty, 1)
	_, ok := dirty["a"]
	assert.True(t, ok)
}

func TestDirtyTracker_TakeDirtyClears(t *testing.T) {
	tr := NewDirtyTracker()
	tr.MarkChanged("a")
	tr.MarkChanged("b")

	taken := tr.TakeDirty()
	assert.Len(t, taken, 2)
	assert.False(t, tr.HasDirty())
	assert.Empty(t, tr.TakeDirty())
}

func TestDirtyTracker_DirtyDoesNotClear(t *testing.T) {
	tr := NewDirtyTracker()
	tr.MarkChanged("a")

	first := tr.Dirty()
	second := tr.Dirty()
	assert.Equal(t, first, second)
	assert.True(t, tr.HasDirty())
}

func TestDirtyTracker_Clear(t *testing.T) {
	tr := NewDirtyTracker()
	tr.MarkChanged("a")
	tr.Clear()
	assert.False(t, tr.HasDirty())
	assert.Empty(t, tr.Dirty())
}

func TestPool_FilterServers_NilAllowedReturnsAll(t *testing.T) {
	p := NewPool()
	p.Register(&fakeServer{id: "s1", name: "one"})
	p.Register(&fakeServer{id: "s2", name: "two"})

	servers := p.FilterServers(nil)
	require.Len(t, servers, 2)
}

func TestPool_FilterServers_RestrictsToAllowList(t *testing.T) {
	p := NewPool()
	p.Register(&fakeServer{id: "s1", name: "one"})
	p.Register(&fakeServer{id: "s2", name: "two"})

	servers := p.FilterServers([]string{"s2"})
	require.Len(t, servers, 1)
	assert.Equal(t, "s2", servers[0].ServerID())
}

func TestPool_FilterServers_UnknownAllowedIDsIgnored(t *testing.T) {
	p := NewPool()
	p.Register(&fakeServer{id: "s1", name: "one"})

	servers := p.FilterServers([]string{"s1", "ghost"})
	require.Len(t, servers, 1)
}

func TestPool_Unregister(t *testing.T) {
	p := NewPool()
	p.Register(&fakeServer{id: "s1", name: "one"})
	p.Unregister("s1")
	assert.Empty(t, p.FilterServers(nil))
}

func TestRefreshDirty_CleanServerNotRefreshed(t *testing.T) {
	s := &fakeServer{id: "s1", supportsListChange: true}
	errs := RefreshDirty(context.Background(), []Server{s}, map[string]struct{}{})
	assert.Empty(t, errs)
	assert.Equal(t, 0, s.refreshCalls)
}

func TestRefreshDirty_ServerWithoutListChangedNotRefreshed(t *testing.T) {
	s := &fakeServer{id: "s1", supportsListChange: false}
	dirty := map[string]struct{}{"s1": {}}

	errs := RefreshDirty(context.Background(), []Server{s}, dirty)
	assert.Empty(t, errs)
	assert.Equal(t, 0, s.refreshCalls)
}

func TestRefreshDirty_DirtyServerWithListChangedRefreshedBeforeSnapshot(t *testing.T) {
	s := &fakeServer{id: "s1", supportsListChange: true}
	dirty := map[string]struct{}{"s1": {}}

	errs := RefreshDirty(context.Background(), []Server{s}, dirty)
	assert.Empty(t, errs)
	assert.Equal(t, 1, s.refreshCalls)
}

func TestRefreshDirty_OnlyDirtyServersAreRefreshed(t *testing.T) {
	clean := &fakeServer{id: "s1", supportsListChange: true}
	dirtyServer := &fakeServer{id: "s2", supportsListChange: true}
	dirty := map[string]struct{}{"s2": {}}

	errs := RefreshDirty(context.Background(), []Server{clean, dirtyServer}, dirty)
	assert.Empty(t, errs)
	assert.Equal(t, 0, clean.refreshCalls)
	assert.Equal(t, 1, dirtyServer.refreshCalls)
}

func TestRefreshDirty_CollectsErrorsButContinues(t *testing.T) {
	failing := &fakeServer{id: "s1", supportsListChange: true, refreshErr: errors.New("boom")}
	ok := &fakeServer{id: "s2", supportsListChange: true}
	dirty := map[string]struct{}{"s1": {}, "s2": {}}

	errs := RefreshDirty(context.Background(), []Server{failing, ok}, dirty)
	require.Len(t, errs, 1)
	assert.Equal(t, 1, failing.refreshCalls)
	assert.Equal(t, 1, ok.refreshCalls)
}
