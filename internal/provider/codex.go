package provider

import (
	"context"

	"github.com/stencila/attractor/internal/core"
	"github.com/stencila/attractor/internal/session"
)

// Codex delegates to the `codex exec` CLI subcommand. Shares the
// spawn/read/kill skeleton with Gemini and Claude (spec §4.9).
type Codex struct {
	cliBase
}

// NewCodex constructs a Codex adapter with the given config. An optional
// binary override lets callers point at a differently-named or
// differently-pathed executable (e.g. runconfig.Providers.CodexBinary)
// instead of the default `codex` lookup.
func NewCodex(cfg Config, binary ...string) *Codex {
	bin := "codex"
	if len(binary) > 0 && binary[0] != "" {
		bin = binary[0]
	}
	return &Codex{cliBase{name: "codex-cli", binary: bin, cfg: cfg}}
}

func (c *Codex) ID() string { return c.name }

func (c *Codex) Submit(ctx context.Context, input string, sink session.EventSink, abort *session.AbortSignal) error {
	if err := requireBinary(c.binary); err != nil {
		return err
	}

	args := []string{"exec", "--json"}
	if c.cfg.Model != "" {
		args = append(args, "--model", c.cfg.Model)
	}
	args = append(args, c.cfg.ExtraArgs...)

	stdout, stderr, err := c.spawn(ctx, args, fullPrompt(c.cfg.Instructions, input))
	if err != nil {
		return err
	}
	defer stdout.Close()
	defer stderr.Close()

	stderrCh := collectStderr(stderr)

	acc := &outputAccumulator{}
	aborted, err := readLinesUntilEOFOrAbort(stdout, abort, func(line string) {
		dispatchStructuredLine(line, sink, acc, core.CodeCodexCLIError)
	})
	if err != nil {
		c.killChild()
		return err
	}
	acc.finish(sink, "")

	if aborted {
		c.killChild()
		return nil
	}

	return c.waitChild(<-stderrCh)
}

func (c *Codex) Close() { c.closeChild() }

func (c *Codex) ShouldRetrySubmitError(err error) bool { return isRetryableCLIError(err) }
