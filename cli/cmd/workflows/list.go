package workflows

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stencila/attractor/internal/cliui"
	"github.com/stencila/attractor/internal/discovery"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discoverable workflows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := resolveCWD(cmd)
			if err != nil {
				return err
			}
			as, _ := cmd.Flags().GetString("as")

			wfs := discovery.Workflows(cwd)
			if as == "" {
				rows := make([]cliui.WorkflowRow, 0, len(wfs))
				for _, wf := range wfs {
					rows = append(rows, cliui.WorkflowRow{
						Name:        wf.Name,
						Description: wf.Description,
						Source:      wf.Source.String(),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), cliui.RenderWorkflowTable(rows))
				return nil
			}

			data := make([]map[string]any, 0, len(wfs))
			for _, wf := range wfs {
				data = append(data, map[string]any{
					"name":        wf.Name,
					"description": wf.Description,
					"source":      wf.Source.String(),
					"path":        wf.Path,
				})
			}
			out, err := cliui.NewFormatter(cliui.As(as)).Success(map[string]any{"workflows": data, "total": len(data)})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().String("as", "", "output encoding: json|yaml (default: human-readable table)")
	return cmd
}
