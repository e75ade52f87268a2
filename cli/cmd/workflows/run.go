package workflows

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stencila/attractor/internal/cliui"
	"github.com/stencila/attractor/internal/graph"
	"github.com/stencila/attractor/internal/outcome"
	"github.com/stencila/attractor/internal/workflow"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a workflow to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := resolveCWD(cmd)
			if err != nil {
				return err
			}
			name := args[0]
			goal, _ := cmd.Flags().GetString("goal")
			logsDir, _ := cmd.Flags().GetString("logs-dir")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			if dryRun {
				return runDryRun(cmd, cwd, name)
			}

			result, err := workflow.Run(cmd.Context(), cwd, name, workflow.Options{
				Goal:    goal,
				LogsDir: logsDir,
			})
			if err != nil {
				return cliui.NewRunError(name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, result.Outcome.Status)
			if result.Outcome.Status == outcome.Fail {
				return cliui.NewRunError(name, fmt.Errorf("%s", result.Outcome.FailureReason))
			}
			return nil
		},
	}
	cmd.Flags().String("goal", "", "overrides the workflow's own goal")
	cmd.Flags().String("logs-dir", "", "overrides the default /tmp/stencila-workflow-<name> logs directory")
	cmd.Flags().Bool("dry-run", false, "parse, validate, and verify agent references without executing")
	return cmd
}

// runDryRun performs the same checks `run` would before handing off to
// internal/engine, without ever constructing a registry or spawning a
// provider subprocess.
func runDryRun(cmd *cobra.Command, cwd, name string) error {
	wf := findWorkflow(cwd, name)
	if wf == nil {
		return cliui.NewValidationError(name, fmt.Errorf("workflow not found"))
	}
	g, err := graph.ParseDOT(wf.Pipeline)
	if err != nil {
		return cliui.NewValidationError(name, err)
	}
	if err := g.Validate(); err != nil {
		return cliui.NewValidationError(name, err)
	}
	if err := verifyAgentReferences(cwd, g); err != nil {
		return cliui.NewValidationError(name, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: dry run ok\n", name)
	return nil
}
