package workflows

import (
	"github.com/stencila/attractor/internal/agentdef"
	"github.com/stencila/attractor/internal/discovery"
)

// findWorkflow locates name among the workflows discoverable from cwd, nil
// if absent — mirroring internal/workflow.resolveWorkflow's linear scan,
// kept separate here since the CLI's show/validate commands need the full
// WorkflowInstance (path, source) that workflow.Run's callers don't.
func findWorkflow(cwd, name string) *agentdef.WorkflowInstance {
	for _, wf := range discovery.Workflows(cwd) {
		if wf.Name == name {
			return wf
		}
	}
	return nil
}
