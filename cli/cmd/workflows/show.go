package workflows

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stencila/attractor/internal/cliui"
	"github.com/stencila/attractor/internal/core"
)

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a single workflow's definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := resolveCWD(cmd)
			if err != nil {
				return err
			}
			name := args[0]
			as, _ := cmd.Flags().GetString("as")
			if as == "" {
				as = "md"
			}

			wf := findWorkflow(cwd, name)
			if wf == nil {
				return core.NewError(nil, core.CodeWorkflowNotFound, map[string]any{"name": name})
			}

			if as == "md" {
				fmt.Fprint(cmd.OutOrStdout(), cliui.RenderWorkflowMarkdown(wf))
				return nil
			}

			data := map[string]any{
				"name":             wf.Name,
				"description":      wf.Description,
				"goal":             wf.Goal,
				"pipeline":         wf.Pipeline,
				"model_stylesheet": wf.ModelStylesheet,
				"source":           wf.Source.String(),
				"path":             wf.Path,
			}
			out, err := cliui.NewFormatter(cliui.As(as)).Success(data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().String("as", "", "output encoding: md|json|yaml (default: md)")
	return cmd
}
