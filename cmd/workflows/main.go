// Command workflows is the entry point for the workflow front end (spec
// §6), assembling the `workflows` cobra command group and mapping its
// result onto a process exit code.
//
// Grounded on cmd/compozy.go's RootCmd()-plus-os.Exit pattern, narrowed to
// this repository's single command group (no auth/build/deploy surface).
package main

import (
	"context"
	"fmt"
	"os"

	workflowscmd "github.com/stencila/attractor/cli/cmd/workflows"
	"github.com/stencila/attractor/internal/cliui"
	"github.com/stencila/attractor/internal/logger"
)

func main() {
	log := logger.NewLogger(nil)
	ctx := logger.ContextWithLogger(context.Background(), log)

	root := workflowscmd.Cmd()
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(cliui.ExitCode(err))
}
