package provider

import (
	"context"

	"github.com/stencila/attractor/internal/core"
	"github.com/stencila/attractor/internal/session"
)

// Claude delegates to the `claude` CLI tool in non-interactive,
// streaming-JSON mode. Shares the spawn/read/kill skeleton with Gemini
// (spec §4.9); differs only in flags and error code.
type Claude struct {
	cliBase
}

// NewClaude constructs a Claude adapter with the given config. An
// optional binary override lets callers point at a differently-named or
// differently-pathed executable (e.g. runconfig.Providers.ClaudeBinary)
// instead of the default `claude` lookup.
func NewClaude(cfg Config, binary ...string) *Claude {
	bin := "claude"
	if len(binary) > 0 && binary[0] != "" {
		bin = binary[0]
	}
	return &Claude{cliBase{name: "claude-cli", binary: bin, cfg: cfg}}
}

func (c *Claude) ID() string { return c.name }

func (c *Claude) Submit(ctx context.Context, input string, sink session.EventSink, abort *session.AbortSignal) error {
	if err := requireBinary(c.binary); err != nil {
		return err
	}

	args := []string{"--print", "--output-format", "stream-json", "--verbose"}
	if c.cfg.Model != "" {
		args = append(args, "--model", c.cfg.Model)
	}
	if c.cfg.Instructions != "" {
		args = append(args, "--append-system-prompt", c.cfg.Instructions)
	}
	args = append(args, c.cfg.ExtraArgs...)

	stdout, stderr, err := c.spawn(ctx, args, input)
	if err != nil {
		return err
	}
	defer stdout.Close()
	defer stderr.Close()

	stderrCh := collectStderr(stderr)

	acc := &outputAccumulator{}
	aborted, err := readLinesUntilEOFOrAbort(stdout, abort, func(line string) {
		dispatchStructuredLine(line, sink, acc, core.CodeClaudeCLIError)
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

func (c *Claude) Close() { c.closeChild() }

func (c *Claude) ShouldRetrySubmitError(err error) bool { return isRetryableCLIError(err) }
