// Package codemode implements the `mcp_codemode` tool (spec §4.11): the LLM
// writes JavaScript that is evaluated in a sandboxed VM with synchronous
// bindings to the MCP servers visible to the current agent, instead of
// emitting one tool call per MCP operation.
//
// Grounded on `_examples/original_source/rust/agents/src/codemode.rs` (tool
// definition, prompt building, response formatting) and
// `_examples/original_source/rust/codemode/tests/spec_8_tool_changes.rs`
// (dirty-server refresh gating, frozen-snapshot semantics). The Rust
// implementation runs QuickJS with ES-module `import`/`async`/`await`
// syntax; this package instead targets `github.com/robertkrimen/otto`, a
// synchronous ES5 VM, since nothing in the corpus carries a Go JS engine
// with module or async support. Rather than silently drop the capability,
// the ES-module tool imports (`import { readFile } from
// '@codemode/servers/fs-server'`) are replaced with plain synchronous
// global functions (`listServers()`, `listTools(serverId)`,
// `callTool(serverId, toolName, args)`) — documented here and in
// DESIGN.md as a deliberate library-constrained adaptation, not a
// behavior change: the same orchestration is still possible, just spelled
// without module syntax.
package codemode

// ToolName is the name under which the sandboxed-execution tool is
// registered with an agent's tool registry.
const ToolName = "mcp_codemode"

// DeclarationBudget caps how many characters of generated TypeScript
// declarations may be inlined into the system prompt before falling back
// to a runtime-discovery hint.
const DeclarationBudget = 4000

// DefaultTimeoutMS is the execution timeout applied when a RunRequest
// doesn't set one.
const DefaultTimeoutMS = 30000

// DefaultMaxToolCalls is the tool-call budget applied when a RunRequest
// doesn't set one.
const DefaultMaxToolCalls = 50

// Limits bounds one execution.
type Limits struct {
	TimeoutMS     int64
	MaxToolCalls  int
	MaxLogBytes   int
}

// RunRequest is one codemode invocation: the JavaScript source plus
// optional overrides of the default limits.
type RunRequest struct {
	Code   string
	Limits *Limits
}

// DiagnosticSeverity classifies a Diagnostic.
type DiagnosticSeverity string

const (
	SeverityError   DiagnosticSeverity = "Error"
	SeverityWarning DiagnosticSeverity = "Warning"
)

// DiagnosticCode identifies why a Diagnostic was emitted.
type DiagnosticCode string

const (
	CodeUncaughtException   DiagnosticCode = "UncaughtException"
	CodeTimeout              DiagnosticCode = "Timeout"
	CodeToolCallLimitExceeded DiagnosticCode = "ToolCallLimitExceeded"
	CodeToolError            DiagnosticCode = "ToolError"
	CodeInvalidResult        DiagnosticCode = "InvalidResult"
)

// Diagnostic reports a problem surfaced during execution — an uncaught
// exception, a timeout, or a tool-call budget overrun.
type Diagnostic struct {
	Severity   DiagnosticSeverity
	Code       DiagnosticCode
	Message    string
	Hint       string
	Path       string
	ErrorClass string
}

// LogLevel classifies a console.* call made from sandboxed code.
type LogLevel string

const (
	LogLevelLog   LogLevel = "Log"
	LogLevelInfo  LogLevel = "Info"
	LogLevelWarn  LogLevel = "Warn"
	LogLevelError LogLevel = "Error"
)

// LogEntry is one console.* call captured during execution.
type LogEntry struct {
	Level   LogLevel
	Message string
	TimeMS  int64
}

// ToolTraceEntry records one MCP tool call made from sandboxed code.
type ToolTraceEntry struct {
	ServerID   string
	ToolName   string
	DurationMS int64
	OK         bool
	Error      string
}

// RunResponse is the outcome of one codemode execution.
type RunResponse struct {
	Result     any
	Logs       []LogEntry
	Diagnostics []Diagnostic
	ToolTrace  []ToolTraceEntry
}
