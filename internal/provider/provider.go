// Package provider implements the CLI provider adapters (spec §4.9):
// thin subprocess wrappers around the claude/codex/gemini CLI tools that
// delegate the entire tool-execution loop to the external binary and
// stream its output back through an internal/session.EventSink.
//
// Grounded directly on
// _examples/original_source/rust/agents/src/cli_providers/{mod.rs,gemini.rs}:
// the shared spawn/stdin-write/line-read/kill-reap skeleton here mirrors
// that module's kill_child/wait_for_child/read_lines_until_eof_or_abort
// helpers, translated to Go's os/exec and goroutine/channel idioms in
// place of tokio tasks and select!.
package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"github.com/joho/godotenv"

	"github.com/stencila/attractor/internal/core"
	"github.com/stencila/attractor/internal/session"
)

// Config mirrors CliProviderConfig from the original source: per-session
// settings derived from SessionConfig plus agent metadata.
type Config struct {
	Model        string
	Instructions string
	WorkingDir   string
	ExtraArgs    []string // additional raw CLI flags, shlex-split if a single string is supplied
}

// ParseExtraArgs splits a raw flag string (e.g. "--foo bar --baz") the way
// a user-supplied extra-args field would arrive from agent frontmatter.
func ParseExtraArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	args, err := shlex.Split(raw)
	if err != nil {
		return nil, core.NewError(err, core.CodeCLIParseError, map[string]any{"raw": raw})
	}
	return args, nil
}

// cliBase is embedded by each concrete provider; it owns the running
// child process handle and implements the shared helpers.
type cliBase struct {
	name   string
	cfg    Config
	binary string
	cmd    *exec.Cmd
}

// requireBinary fails CliNotFound if binary isn't resolvable on PATH.
func requireBinary(binary string) error {
	if _, err := exec.LookPath(binary); err != nil {
		return core.NewError(err, core.CodeCLINotFound, map[string]any{"binary": binary})
	}
	return nil
}

// fullPrompt prepends instructions when the tool has no dedicated system
// prompt flag, per spec §4.9.c.
func fullPrompt(instructions, input string) string {
	if instructions == "" {
		return input
	}
	return instructions + "\n\n" + input
}

// spawn starts the child with piped stdio and writes+closes stdin.
func (b *cliBase) spawn(ctx context.Context, args []string, prompt string) (io.ReadCloser, io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, b.binary, args...)
	if b.cfg.WorkingDir != "" {
		cmd.Dir = b.cfg.WorkingDir
		cmd.Env = mergeDotenv(b.cfg.WorkingDir)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, core.NewError(err, core.CodeCLIProcessFailed, map[string]any{"binary": b.binary})
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, core.NewError(err, core.CodeCLIProcessFailed, map[string]any{"binary": b.binary})
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, core.NewError(err, core.CodeCLIProcessFailed, map[string]any{"binary": b.binary})
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, core.NewError(err, core.CodeCLIProcessFailed, map[string]any{"binary": b.binary, "spawn": true, "code": -1})
	}
	b.cmd = cmd

	go func() {
		defer stdin.Close()
		_, _ = io.WriteString(stdin, prompt)
	}()

	return stdout, stderr, nil
}

// mergeDotenv overlays an optional .env file from the working directory
// onto the current process environment for the child, grounded on
// engine/core/env.go's NewEnvFromFile (a missing .env is not an error,
// it just yields no overrides).
func mergeDotenv(workingDir string) []string {
	base := os.Environ()
	overrides, err := godotenv.Read(filepath.Join(workingDir, ".env"))
	if err != nil || len(overrides) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(overrides))
	merged = append(merged, base...)
	for k, v := range overrides {
		merged = append(merged, k+"="+v)
	}
	return merged
}

// collectStderr drains stderr into a bounded buffer in the background so
// the pipe can never block the child, per spec §4.9.d.
func collectStderr(r io.Reader) <-chan string {
	out := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, io.LimitReader(r, 64*1024))
		_, _ = io.Copy(io.Discard, r)
		out <- buf.String()
	}()
	return out
}

// readLinesUntilEOFOrAbort is the canonical abort-aware read loop shared
// by all three providers, mirroring read_lines_until_eof_or_abort.
// Returns aborted=true if the abort signal fired before EOF.
func readLinesUntilEOFOrAbort(stdout io.Reader, abort *session.AbortSignal, onLine func(string)) (aborted bool, err error) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	var done <-chan struct{}
	if abort != nil {
		done = abort.Done()
	}

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return false, core.NewError(err, core.CodeCLIParseError, nil)
				}
				return false, nil
			}
			if strings.TrimSpace(line) != "" {
				onLine(line)
			}
		case <-done:
			return true, nil
		}
	}
}

// killChild force-kills and reaps the running child, if any.
func (b *cliBase) killChild() {
	if b.cmd == nil || b.cmd.Process == nil {
		return
	}
	_ = b.cmd.Process.Kill()
	_ = b.cmd.Wait()
}

// closeChild fires a best-effort kill without waiting, for close().
func (b *cliBase) closeChild() {
	if b.cmd == nil || b.cmd.Process == nil {
		return
	}
	_ = b.cmd.Process.Kill()
}

// waitChild waits for natural completion and maps a non-zero exit to
// CliProcessFailed, folding in collected stderr as the detail.
func (b *cliBase) waitChild(stderrCollected string) error {
	if b.cmd == nil {
		return nil
	}
	err := b.cmd.Wait()
	if err == nil {
		return nil
	}
	code := -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	}
	detail := strings.TrimSpace(stderrCollected)
	if detail == "" {
		detail = err.Error()
	}
	return core.NewError(err, core.CodeCLIProcessFailed, map[string]any{"code": code, "stderr": detail})
}

// outputAccumulator tracks per-submit text-delta emission, shared across
// providers.
type outputAccumulator struct {
	started bool
	text    strings.Builder
}

func (a *outputAccumulator) emitDelta(sink session.EventSink, sessionID, delta string) {
	if !a.started {
		sink.Emit(session.Event{Kind: session.AssistantTextStart, SessionID: sessionID})
		a.started = true
	}
	sink.Emit(session.Event{Kind: session.AssistantTextDelta, SessionID: sessionID, Text: delta})
	a.text.WriteString(delta)
}

func (a *outputAccumulator) finish(sink session.EventSink, sessionID string) {
	if a.started {
		sink.Emit(session.Event{Kind: session.AssistantTextEnd, SessionID: sessionID, Text: a.text.String()})
	}
}

// parseJSONLine attempts to decode line as a structured envelope; ok is
// false for plain-text output, which callers fall back to emitting as a
// raw text delta.
func parseJSONLine(line string) (m map[string]any, ok bool) {
	var v map[string]any
	if err := json.Unmarshal([]byte(line), &v); err != nil {
		return nil, false
	}
	return v, true
}

func fieldString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// dispatchStructuredLine is the generic per-line JSON envelope dispatch
// shared by Claude and Codex (spec §4.9.e): model-output/tool-call/
// tool-result/event(thinking)/status(error), falling back to a raw text
// delta for plain lines or unrecognized JSON. Gemini keeps its own
// variant (geminiProcessLine) since it is directly grounded on
// cli_providers/gemini.rs, but the shape is identical.
func dispatchStructuredLine(line string, sink session.EventSink, acc *outputAccumulator, errCode string) {
	m, ok := parseJSONLine(line)
	if !ok {
		acc.emitDelta(sink, "", line+"\n")
		return
	}

	switch fieldString(m, "type") {
	case "model-output":
		if delta := fieldString(m, "textDelta"); delta != "" {
			acc.emitDelta(sink, "", delta)
		}
	case "tool-call":
		sink.Emit(session.Event{
			Kind:     session.ToolCallStart,
			ToolName: fieldString(m, "toolName"),
			Data:     map[string]any{"call_id": fieldString(m, "callId"), "args": m["args"]},
		})
	case "tool-result":
		sink.Emit(session.Event{
			Kind: session.ToolCallEnd,
			Data: map[string]any{"call_id": fieldString(m, "callId"), "result": m["result"]},
		})
	case "event":
		if fieldString(m, "name") == "thinking" {
			if payload, ok := m["payload"].(map[string]any); ok {
				if text := fieldString(payload, "text"); text != "" {
					sink.Emit(session.Event{Kind: session.AssistantReasoning, Text: text})
				}
			}
		}
	case "status":
		if fieldString(m, "status") == "error" {
			detail := fieldString(m, "detail")
			if detail == "" {
				detail = "unknown error"
			}
			sink.Emit(session.Event{Kind: session.ErrorEvent, Code: errCode, Message: detail})
		}
	default:
		if text := fieldString(m, "text"); text != "" {
			acc.emitDelta(sink, "", text)
		}
	}
}

// isRetryableCLIError implements should_retry_submit_error's shared rule
// (spec §4.9): only CliParseError, or a spawn failure reported with
// code -1, is worth retrying.
func isRetryableCLIError(err error) bool {
	appErr, ok := err.(*core.Error)
	if !ok {
		return false
	}
	switch appErr.Code {
	case core.CodeCLIParseError:
		return true
	case core.CodeCLIProcessFailed:
		code, _ := appErr.Details["code"].(int)
		return code == -1
	default:
		return false
	}
}
