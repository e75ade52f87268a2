package workflows

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stencila/attractor/internal/agentdef"
	"github.com/stencila/attractor/internal/cliui"
	"github.com/stencila/attractor/internal/discovery"
	"github.com/stencila/attractor/internal/graph"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <name|dir|path>",
		Short: "Validate a workflow's frontmatter, pipeline, and agent references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := resolveCWD(cmd)
			if err != nil {
				return err
			}
			target := args[0]

			wf, loadErr := loadWorkflowArg(cwd, target)
			if loadErr != nil {
				return cliui.NewValidationError(target, loadErr)
			}

			g, err := graph.ParseDOT(wf.Pipeline)
			if err != nil {
				return cliui.NewValidationError(target, fmt.Errorf("pipeline: %w", err))
			}
			if err := g.Validate(); err != nil {
				return cliui.NewValidationError(target, fmt.Errorf("pipeline: %w", err))
			}
			if err := verifyAgentReferences(cwd, g); err != nil {
				return cliui.NewValidationError(target, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", wf.Name)
			return nil
		},
	}
	return cmd
}

// loadWorkflowArg resolves target as (in order) a discoverable workflow
// name, a directory containing a WORKFLOW.md, or a direct path to one.
func loadWorkflowArg(cwd, target string) (*agentdef.WorkflowInstance, error) {
	if wf := findWorkflow(cwd, target); wf != nil {
		return wf, nil
	}

	path := target
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		path = filepath.Join(target, "WORKFLOW.md")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	def, err := agentdef.ParseWorkflow(string(raw))
	if err != nil {
		return nil, err
	}
	return agentdef.NewWorkflowInstance(def, path), nil
}

// verifyAgentReferences mirrors internal/workflow's fail-fast agent
// reference check (kept as a small duplicate here rather than exported,
// since `validate` needs it standalone without building a full registry).
func verifyAgentReferences(cwd string, g *graph.Graph) error {
	for _, id := range g.NodeOrder {
		n := g.Nodes[id]
		agentName := n.AttrString("agent", "")
		if agentName == "" {
			continue
		}
		if _, err := discovery.AgentByName(cwd, agentName); err != nil {
			return fmt.Errorf("node %q references unresolved agent %q: %w", id, agentName, err)
		}
	}
	return nil
}
