package provider

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stencila/attractor/internal/core"
	"github.com/stencila/attractor/internal/session"
)

type recordingSink struct {
	events []session.Event
}

func (s *recordingSink) Emit(e session.Event) { s.events = append(s.events, e) }

func (s *recordingSink) kinds() []session.EventKind {
	out := make([]session.EventKind, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

// installFakeBinary writes an executable shell script named `name` into a
// temp dir and prepends that dir to PATH for the duration of the test.
func installFakeBinary(t *testing.T, name, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake binary harness is unix-only")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestGemini_PlainTextOutput(t *testing.T) {
	installFakeBinary(t, "gemini", `cat > /dev/null; echo "Hello from Gemini"`)

	g := NewGemini(Config{Model: "gemini-2.5-pro"})
	sink := &recordingSink{}
	err := g.Submit(context.Background(), "hi", sink, nil)
	require.NoError(t, err)

	assert.Contains(t, sink.kinds(), session.AssistantTextStart)
	assert.Contains(t, sink.kinds(), session.AssistantTextDelta)
	assert.Contains(t, sink.kinds(), session.AssistantTextEnd)
}

func TestGemini_StructuredModelOutput(t *testing.T) {
	installFakeBinary(t, "gemini", `cat > /dev/null; echo '{"type":"model-output","textDelta":"Structured response"}'`)

	g := NewGemini(Config{})
	sink := &recordingSink{}
	err := g.Submit(context.Background(), "hi", sink, nil)
	require.NoError(t, err)

	var found bool
	for _, e := range sink.events {
		if e.Kind == session.AssistantTextDelta && e.Text == "Structured response" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGemini_ToolCallEvent(t *testing.T) {
	installFakeBinary(t, "gemini", `cat > /dev/null; echo '{"type":"tool-call","toolName":"read_file","callId":"tc-1","args":{"path":"test.txt"}}'`)

	g := NewGemini(Config{})
	sink := &recordingSink{}
	err := g.Submit(context.Background(), "hi", sink, nil)
	require.NoError(t, err)

	require.NotEmpty(t, sink.events)
	assert.Equal(t, session.ToolCallStart, sink.events[0].Kind)
	assert.Equal(t, "read_file", sink.events[0].ToolName)
}

func TestGemini_StatusErrorEvent(t *testing.T) {
	installFakeBinary(t, "gemini", `cat > /dev/null; echo '{"type":"status","status":"error","detail":"boom"}'`)

	g := NewGemini(Config{})
	sink := &recordingSink{}
	err := g.Submit(context.Background(), "hi", sink, nil)
	require.NoError(t, err)

	require.NotEmpty(t, sink.events)
	assert.Equal(t, session.ErrorEvent, sink.events[0].Kind)
	assert.Equal(t, "boom", sink.events[0].Message)
}

func TestGemini_NonZeroExitFails(t *testing.T) {
	installFakeBinary(t, "gemini", `cat > /dev/null; echo "bad things" >&2; exit 3`)

	g := NewGemini(Config{})
	sink := &recordingSink{}
	err := g.Submit(context.Background(), "hi", sink, nil)
	require.Error(t, err)
	appErr, ok := err.(*core.Error)
	require.True(t, ok)
	assert.Equal(t, core.CodeCLIProcessFailed, appErr.Code)
}

func TestGemini_CliNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	g := NewGemini(Config{})
	sink := &recordingSink{}
	err := g.Submit(context.Background(), "hi", sink, nil)
	require.Error(t, err)
	appErr, ok := err.(*core.Error)
	require.True(t, ok)
	assert.Equal(t, core.CodeCLINotFound, appErr.Code)
}

func TestGemini_AbortKillsChildWithoutError(t *testing.T) {
	installFakeBinary(t, "gemini", `cat > /dev/null; sleep 5; echo "too late"`)

	g := NewGemini(Config{})
	sink := &recordingSink{}
	abort := session.NewAbortSignal()
	abort.RequestHard()

	err := g.Submit(context.Background(), "hi", sink, abort)
	require.NoError(t, err)
}

func TestClaude_StreamJSONFlagsIncludeModelAndInstructions(t *testing.T) {
	installFakeBinary(t, "claude", `cat > /dev/null; echo '{"type":"model-output","textDelta":"ok"}'`)

	c := NewClaude(Config{Model: "sonnet", Instructions: "be terse"})
	sink := &recordingSink{}
	err := c.Submit(context.Background(), "hi", sink, nil)
	require.NoError(t, err)
	assert.Contains(t, sink.kinds(), session.AssistantTextDelta)
}

func TestCodex_ExecJSONMode(t *testing.T) {
	installFakeBinary(t, "codex", `cat > /dev/null; echo '{"type":"model-output","textDelta":"ok"}'`)

	c := NewCodex(Config{Model: "gpt-5-codex"})
	sink := &recordingSink{}
	err := c.Submit(context.Background(), "hi", sink, nil)
	require.NoError(t, err)
	assert.Contains(t, sink.kinds(), session.AssistantTextDelta)
}

func TestParseExtraArgs(t *testing.T) {
	args, err := ParseExtraArgs(`--foo bar --baz "q w"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"--foo", "bar", "--baz", "q w"}, args)
}

func TestParseExtraArgs_Empty(t *testing.T) {
	args, err := ParseExtraArgs("   ")
	require.NoError(t, err)
	assert.Nil(t, args)
}

func TestGemini_MergesDotenvFromWorkingDir(t *testing.T) {
	installFakeBinary(t, "gemini", `cat > /dev/null; echo "$STENCILA_TEST_VAR"`)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STENCILA_TEST_VAR=from-dotenv\n"), 0o644))

	g := NewGemini(Config{WorkingDir: dir})
	sink := &recordingSink{}
	err := g.Submit(context.Background(), "hi", sink, nil)
	require.NoError(t, err)

	var gotDelta bool
	for _, e := range sink.events {
		if e.Kind == session.AssistantTextDelta && e.Text == "from-dotenv\n" {
			gotDelta = true
		}
	}
	assert.True(t, gotDelta)
}

func TestIsRetryableCLIError(t *testing.T) {
	parseErr := core.NewError(nil, core.CodeCLIParseError, nil)
	assert.True(t, isRetryableCLIError(parseErr))

	spawnErr := core.NewError(nil, core.CodeCLIProcessFailed, map[string]any{"code": -1})
	assert.True(t, isRetryableCLIError(spawnErr))

	exitErr := core.NewError(nil, core.CodeCLIProcessFailed, map[string]any{"code": 1})
	assert.False(t, isRetryableCLIError(exitErr))

	notFound := core.NewError(nil, core.CodeCLINotFound, nil)
	assert.False(t, isRetryableCLIError(notFound))
}
