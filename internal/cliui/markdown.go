package cliui

import (
	"fmt"
	"strings"

	"github.com/stencila/attractor/internal/agentdef"
)

// RenderWorkflowMarkdown reconstructs the WORKFLOW.md-shaped view `workflows
// show --as md` prints: the same frontmatter/body split discovery parsed,
// rendered back out so a user sees the source form regardless of which
// directory (workspace or user config) it was loaded from.
func RenderWorkflowMarkdown(wf *agentdef.WorkflowInstance) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "name: %s\n", wf.Name)
	if wf.Description != "" {
		fmt.Fprintf(&b, "description: %s\n", wf.Description)
	}
	if wf.Goal != "" {
		fmt.Fprintf(&b, "goal: %s\n", wf.Goal)
	}
	fmt.Fprintf(&b, "pipeline: %q\n", wf.Pipeline)
	if wf.ModelStylesheet != "" {
		fmt.Fprintf(&b, "modelStylesheet: %q\n", wf.ModelStylesheet)
	}
	b.WriteString("---\n")
	if wf.Content != "" {
		b.WriteString("\n")
		b.WriteString(wf.Content)
		b.WriteString("\n")
	}
	return b.String()
}
