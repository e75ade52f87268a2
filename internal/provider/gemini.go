package provider

import (
	"context"

	"github.com/stencila/attractor/internal/core"
	"github.com/stencila/attractor/internal/session"
)

// Gemini delegates to the `gemini` CLI tool. Grounded on
// cli_providers/gemini.rs: model via --model, prompt piped over stdin
// (instructions prepended, since gemini has no system-instruction flag),
// structured JSON line dispatch with a plain-text fallback.
type Gemini struct {
	cliBase
}

// NewGemini constructs a Gemini adapter with the given config. An
// optional binary override lets callers point at a differently-named or
// differently-pathed executable (e.g. runconfig.Providers.GeminiBinary)
// instead of the default `gemini` lookup.
func NewGemini(cfg Config, binary ...string) *Gemini {
	bin := "gemini"
	if len(binary) > 0 && binary[0] != "" {
		bin = binary[0]
	}
	return &Gemini{cliBase{name: "gemini-cli", binary: bin, cfg: cfg}}
}

func (g *Gemini) ID() string { return g.name }

func (g *Gemini) Submit(ctx context.Context, input string, sink session.EventSink, abort *session.AbortSignal) error {
	if err := requireBinary(g.binary); err != nil {
		return err
	}

	args := []string{}
	if g.cfg.Model != "" {
		args = append(args, "--model", g.cfg.Model)
	}
	args = append(args, g.cfg.ExtraArgs...)

	stdout, stderr, err := g.spawn(ctx, args, fullPrompt(g.cfg.Instructions, input))
	if err != nil {
		return err
	}
	defer stdout.Close()
	defer stderr.Close()

	stderrCh := collectStderr(stderr)

	acc := &outputAccumulator{}
	aborted, err := readLinesUntilEOFOrAbort(stdout, abort, func(line string) {
		geminiProcessLine(line, sink, acc)
	})
	if err != nil {
		g.killChild()
		return err
	}
	acc.finish(sink, "")

	if aborted {
		g.killChild()
		return nil
	}

	stderrCollected := <-stderrCh
	return g.waitChild(stderrCollected)
}

func (g *Gemini) Close() { g.closeChild() }

// geminiProcessLine dispatches one line of gemini CLI output, mirroring
// gemini.rs's process_output_line: structured JSON types model-output,
// tool-call, tool-result, event/thinking, status/error; anything else
// (or invalid JSON) is emitted as a raw text delta.
func geminiProcessLine(line string, sink session.EventSink, acc *outputAccumulator) {
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
			sink.Emit(session.Event{Kind: session.ErrorEvent, Code: core.CodeGeminiCLIError, Message: detail})
		}
	default:
		if text := fieldString(m, "text"); text != "" {
			acc.emitDelta(sink, "", text)
		}
	}
}

// ShouldRetrySubmitError marks CLI parse errors and spawn failures (code
// -1) as transient, per spec §4.9's should_retry_submit_error.
func (g *Gemini) ShouldRetrySubmitError(err error) bool {
	return isRetryableCLIError(err)
}
