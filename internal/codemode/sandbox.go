package codemode

import (
	"context"
	"fmt"
	"time"

	"github.com/robertkrimen/otto"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stencila/attractor/internal/mcppool"
)

// resultGlobal is the global variable sandboxed code sets to return a
// value, matching the Rust sandbox's `globalThis.__codemode_result__`
// convention (kept identical so prompts describing it stay accurate).
const resultGlobal = "__codemode_result__"

// Sandbox is one frozen view of the MCP servers visible to an agent: both
// the server set and each server's tool list are captured at construction
// time (via NewSandbox / NewSandboxWithDirty) and do not change even if a
// server is later marked dirty or refreshed — a new Sandbox must be
// created to see updated tools. This matches spec_8_tool_changes.rs's
// frozen-tool-snapshot-per-sandbox expectation.
type Sandbox struct {
	servers []mcppool.Server
	tools   map[string][]mcp.Tool
}

// NewSandbox builds a Sandbox over every server pool.FilterServers(allowed)
// returns, with no dirty-triggered refresh. Use NewSandboxWithDirty when a
// DirtyTracker is available so servers that announced a tool-list change
// get a chance to refresh before the snapshot is taken.
func NewSandbox(ctx context.Context, pool *mcppool.Pool, allowed []string) *Sandbox {
	servers := pool.FilterServers(allowed)
	return &Sandbox{servers: servers, tools: snapshotTools(ctx, servers)}
}

// NewSandboxWithDirty refreshes every dirty, listChanged-capable server
// (spec §4.11 step: "refresh dirty+listChanged servers before freezing
// snapshot") and drains the tracker, then builds a Sandbox over the
// resulting server set. Refresh errors are swallowed into a best-effort
// snapshot — a server that fails to refresh simply keeps its previous
// tool list rather than failing the whole request.
func NewSandboxWithDirty(ctx context.Context, pool *mcppool.Pool, allowed []string, tracker *mcppool.DirtyTracker) *Sandbox {
	servers := pool.FilterServers(allowed)
	if tracker != nil {
		dirty := tracker.TakeDirty()
		mcppool.RefreshDirty(ctx, servers, dirty)
	}
	return &Sandbox{servers: servers, tools: snapshotTools(ctx, servers)}
}

// snapshotTools captures each server's current tool list once, at Sandbox
// construction time, so a later refresh of the underlying server (outside
// this Sandbox's lifetime) can never change what a running sandbox sees.
// A server that fails to list tools gets an empty, not missing, entry.
func snapshotTools(ctx context.Context, servers []mcppool.Server) map[string][]mcp.Tool {
	out := make(map[string][]mcp.Tool, len(servers))
	for _, s := range servers {
		tools, err := s.Tools(ctx)
		if err != nil {
			out[s.ServerID()] = nil
			continue
		}
		out[s.ServerID()] = tools
	}
	return out
}

// Execute runs req.Code against the sandbox's frozen server snapshot,
// enforcing a wall-clock timeout and a tool-call budget (both overridable
// via req.Limits, defaulting to DefaultTimeoutMS/DefaultMaxToolCalls), and
// returns a RunResponse describing the result, any console output, any
// diagnostics, and a trace of every tool call made.
func (s *Sandbox) Execute(ctx context.Context, req RunRequest) *RunResponse {
	timeoutMS := int64(DefaultTimeoutMS)
	maxToolCalls := DefaultMaxToolCalls
	if req.Limits != nil {
		if req.Limits.TimeoutMS > 0 {
			timeoutMS = req.Limits.TimeoutMS
		}
		if req.Limits.MaxToolCalls > 0 {
			maxToolCalls = req.Limits.MaxToolCalls
		}
	}

	run := &execution{
		sandbox:      s,
		ctx:          ctx,
		maxToolCalls: maxToolCalls,
	}
	return run.run(req.Code, time.Duration(timeoutMS)*time.Millisecond)
}

// execution holds the mutable state of a single Execute call: the VM,
// accumulated logs/trace/diagnostics, and the tool-call counter.
type execution struct {
	sandbox      *Sandbox
	ctx          context.Context
	maxToolCalls int

	logs        []LogEntry
	diagnostics []Diagnostic
	toolTrace   []ToolTraceEntry
	toolCalls   int
	start       time.Time
}

func (e *execution) run(code string, timeout time.Duration) *RunResponse {
	e.start = time.Now()
	vm := otto.New()
	e.bind(vm)

	halt := fmt.Errorf("codemode: execution timed out")
	vm.Interrupt = make(chan func(), 1)

	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt <- func() {
			panic(halt)
		}
	})
	defer timer.Stop()

	runErr := e.safeRun(vm, code, halt)

	response := &RunResponse{
		Logs:      e.logs,
		ToolTrace: e.toolTrace,
	}

	if runErr == halt {
		e.diagnostics = append(e.diagnostics, Diagnostic{
			Severity: SeverityError,
			Code:     CodeTimeout,
			Message:  "execution exceeded the configured timeout",
		})
	} else if runErr != nil {
		e.diagnostics = append(e.diagnostics, Diagnostic{
			Severity: SeverityError,
			Code:     CodeUncaughtException,
			Message:  runErr.Error(),
		})
	} else if value, getErr := vm.Get(resultGlobal); getErr == nil && !value.IsUndefined() {
		if exported, exportErr := value.Export(); exportErr == nil {
			response.Result = exported
		}
	}

	response.Diagnostics = e.diagnostics
	return response
}

// safeRun executes code, recovering the panic otto's documented interrupt
// pattern relies on (panic(halt) from the Interrupt channel callback) and
// converting any other panic or JS-thrown error into a plain error.
func (e *execution) safeRun(vm *otto.Otto, code string, halt error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if asErr, ok := r.(error); ok && asErr == halt {
				err = halt
				return
			}
			err = fmt.Errorf("codemode: %v", r)
		}
	}()

	_, runErr := vm.Run(code)
	return runErr
}

func (e *execution) bind(vm *otto.Otto) {
	console, _ := vm.Object("({})")
	console.Set("log", e.logFn(LogLevelLog))
	console.Set("info", e.logFn(LogLevelInfo))
	console.Set("warn", e.logFn(LogLevelWarn))
	console.Set("error", e.logFn(LogLevelError))
	vm.Set("console", console)

	vm.Set("listServers", func(call otto.FunctionCall) otto.Value {
		ids := make([]string, 0, len(e.sandbox.servers))
		for _, s := range e.sandbox.servers {
			ids = append(ids, s.ServerID())
		}
		v, _ := vm.ToValue(ids)
		return v
	})

	vm.Set("listTools", func(call otto.FunctionCall) otto.Value {
		serverID, _ := call.Argument(0).ToString()
		tools := e.sandbox.tools[serverID]
		out := make([]map[string]any, 0, len(tools))
		for _, t := range tools {
			out = append(out, map[string]any{"name": t.Name, "description": t.Description})
		}
		v, _ := vm.ToValue(out)
		return v
	})

	vm.Set("callTool", func(call otto.FunctionCall) otto.Value {
		serverID, _ := call.Argument(0).ToString()
		toolName, _ := call.Argument(1).ToString()

		if e.toolCalls >= e.maxToolCalls {
			panic(vm.MakeCustomError("ToolCallLimitExceeded",
				fmt.Sprintf("exceeded the configured limit of %d tool calls", e.maxToolCalls)))
		}
		e.toolCalls++

		var args map[string]any
		if raw, err := call.Argument(2).Export(); err == nil {
			if m, ok := raw.(map[string]any); ok {
				args = m
			}
		}

		server := e.findServer(serverID)
		if server == nil {
			e.toolTrace = append(e.toolTrace, ToolTraceEntry{
				ServerID: serverID, ToolName: toolName, OK: false,
				Error: "server not found",
			})
			panic(vm.MakeCustomError("ToolError", fmt.Sprintf("unknown MCP server %q", serverID)))
		}

		callStart := time.Now()
		result, err := server.CallTool(e.ctx, toolName, args)
		duration := time.Since(callStart).Milliseconds()

		if err != nil {
			e.toolTrace = append(e.toolTrace, ToolTraceEntry{
				ServerID: serverID, ToolName: toolName, DurationMS: duration,
				OK: false, Error: err.Error(),
			})
			panic(vm.MakeCustomError("ToolError", err.Error()))
		}

		ok := result == nil || !result.IsError
		e.toolTrace = append(e.toolTrace, ToolTraceEntry{
			ServerID: serverID, ToolName: toolName, DurationMS: duration, OK: ok,
		})

		v, _ := vm.ToValue(extractText(result))
		return v
	})
}

func (e *execution) logFn(level LogLevel) func(otto.FunctionCall) otto.Value {
	return func(call otto.FunctionCall) otto.Value {
		parts := make([]string, 0, len(call.ArgumentList))
		for _, arg := range call.ArgumentList {
			s, _ := arg.ToString()
			parts = append(parts, s)
		}
		message := ""
		for i, p := range parts {
			if i > 0 {
				message += " "
			}
			message += p
		}
		e.logs = append(e.logs, LogEntry{
			Level:   level,
			Message: message,
			TimeMS:  time.Since(e.start).Milliseconds(),
		})
		return otto.UndefinedValue()
	}
}

func (e *execution) findServer(serverID string) mcppool.Server {
	for _, s := range e.sandbox.servers {
		if s.ServerID() == serverID {
			return s
		}
	}
	return nil
}

// extractText joins every text content block in an MCP tool result into a
// single string, which covers the overwhelming majority of MCP tools
// (structured content is rare in the pack's reference servers). A tool
// returning only non-text content surfaces as an empty string rather than
// failing the call.
func extractText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	text := ""
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			text += tc.Text
		}
	}
	return text
}
