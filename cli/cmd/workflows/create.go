package workflows

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stencila/attractor/internal/agentdef"
	"github.com/stencila/attractor/internal/cliui"
)

// scaffoldPipeline is the minimal two-node pipeline a freshly created
// workflow starts with: one command node straight to exit.
const scaffoldPipeline = `digraph { start [type=command, command="true"]; done [type=exit]; start -> done; }`

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name> <description>",
		Short: "Scaffold a new workflow under .stencila/workflows",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := resolveCWD(cmd)
			if err != nil {
				return err
			}
			name, description := args[0], args[1]

			if !agentdef.IsValidName(name) {
				return cliui.NewValidationError(name, fmt.Errorf("name must be kebab-case, 1-64 chars"))
			}

			dir := filepath.Join(cwd, ".stencila", "workflows", name)
			if _, err := os.Stat(dir); err == nil {
				return cliui.NewValidationError(name, fmt.Errorf("workflow %q already exists", name))
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create %q: %w", dir, err)
			}

			raw := fmt.Sprintf(
				"---\nname: %s\ndescription: %s\npipeline: %q\n---\n\nDescribe what this workflow does.\n",
				name, description, scaffoldPipeline,
			)
			path := filepath.Join(dir, "WORKFLOW.md")
			if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
				return fmt.Errorf("failed to write %q: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
			return nil
		},
	}
	return cmd
}
