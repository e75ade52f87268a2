package agentdef

import "path/filepath"

// Instance wraps a parsed AgentDefinition with the file it was loaded
// from, grounded on agent_def.rs's AgentInstance (path/home/source plus
// Deref-to-inner access, modeled here as an embedded struct field).
type Instance struct {
	AgentDefinition
	Path   string
	Home   string
	Source Source
}

// NewInstance builds an Instance from a parsed definition and its
// canonical file path; Home is the path's parent directory.
func NewInstance(def *AgentDefinition, path string) *Instance {
	return &Instance{
		AgentDefinition: *def,
		Path:            path,
		Home:            filepath.Dir(path),
	}
}

// WithSource returns a copy tagged with the given source.
func (i Instance) WithSource(src Source) *Instance {
	i.Source = src
	return &i
}

// WorkflowInstance is Instance's counterpart for WORKFLOW.md files.
type WorkflowInstance struct {
	WorkflowDefinition
	Path   string
	Home   string
	Source Source
}

func NewWorkflowInstance(def *WorkflowDefinition, path string) *WorkflowInstance {
	return &WorkflowInstance{
		WorkflowDefinition: *def,
		Path:               path,
		Home:               filepath.Dir(path),
	}
}

func (i WorkflowInstance) WithSource(src Source) *WorkflowInstance {
	i.Source = src
	return &i
}
