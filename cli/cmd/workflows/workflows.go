// Package workflows implements the `workflows` cobra command group (spec
// §6's five subcommands: list/show/validate/create/run), grounded on
// cmd/compozy.go's RootCmd()/registerRootSubcommands() assembly pattern
// and cli/workflow/list.go's discover-then-format command shape, narrowed
// from an API-client-backed CLI down to one that talks directly to
// internal/discovery (there is no server process in this core).
package workflows

import (
	"os"

	"github.com/spf13/cobra"
)

// Cmd builds the `workflows` command group and its five subcommands.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Discover, inspect, validate, scaffold, and run workflows",
	}
	cmd.PersistentFlags().String("cwd", "", "working directory to discover workflows/agents from (defaults to the process cwd)")
	cmd.AddCommand(
		listCmd(),
		showCmd(),
		validateCmd(),
		createCmd(),
		runCmd(),
	)
	return cmd
}

// resolveCWD reads the --cwd flag, falling back to the process's actual
// working directory, mirroring compozy.go's ensureDefaultCWD fallback.
func resolveCWD(cmd *cobra.Command) (string, error) {
	if dir, err := cmd.Flags().GetString("cwd"); err == nil && dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
