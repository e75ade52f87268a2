// Package agentdef implements the Agent/Workflow definition model (spec
// §3/§4.10): frontmatter-wrapped Markdown records plus the
// path/home/source metadata wrapper (AgentInstance/WorkflowInstance)
// that discovery attaches to each parsed definition.
//
// Grounded on
// _examples/original_source/rust/agents/src/agent_def.rs: the
// frontmatter/body split in ParseFrontmatter mirrors `instructions()`'s
// `---`-fence stripping, and Source/Instance mirror AgentSource/
// AgentInstance.
package agentdef

import (
	"fmt"
	"strings"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/mohae/deepcopy"
	"gopkg.in/yaml.v3"

	"github.com/stencila/attractor/internal/core"
)

// Source records which search path an instance was discovered from;
// Workspace outranks User when both define the same name.
type Source int

const (
	SourceUnknown Source = iota
	SourceWorkspace
	SourceUser
)

func (s Source) String() string {
	switch s {
	case SourceWorkspace:
		return "workspace"
	case SourceUser:
		return "user"
	default:
		return ""
	}
}

// AgentDefinition is the frontmatter-parsed record for an AGENT.md file.
type AgentDefinition struct {
	Name             string   `yaml:"name"              validate:"required,agentname"`
	Description      string   `yaml:"description"`
	Model            string   `yaml:"model,omitempty"`
	Provider         string   `yaml:"provider,omitempty"`
	ReasoningEffort  string   `yaml:"reasoningEffort,omitempty" validate:"omitempty,oneof=low medium high"`
	AllowedMCPServers []string `yaml:"allowedMcpServers,omitempty"`
	AllowedTools     []string `yaml:"allowedTools,omitempty"`
	MaxTurns         int      `yaml:"maxTurns,omitempty"`
	Content          string   `yaml:"-"` // Markdown body, set by ParseFrontmatter
}

// WorkflowDefinition is the frontmatter-parsed record for a WORKFLOW.md
// file (spec §4.12): a named pipeline plus optional goal and stylesheet.
type WorkflowDefinition struct {
	Name            string `yaml:"name" validate:"required,workflowname"`
	Description     string `yaml:"description"`
	Goal            string `yaml:"goal,omitempty"`
	Pipeline        string `yaml:"pipeline"`
	ModelStylesheet string `yaml:"modelStylesheet,omitempty"`
	Content         string `yaml:"-"`
}

// Clone returns a deep, independent copy, grounded on
// engine/agent/config.go's Clone()/Merge() pattern — a workflow that
// attaches a model-stylesheet override or a goal interpolation to an
// agent needs its own copy, not a shared pointer into the discovery
// cache.
func (d *AgentDefinition) Clone() *AgentDefinition {
	if d == nil {
		return nil
	}
	return deepcopy.Copy(d).(*AgentDefinition)
}

// Merge overlays other's non-zero fields onto d, with other taking
// precedence — used to apply a workflow's per-agent override block on
// top of the discovered base definition.
func (d *AgentDefinition) Merge(other *AgentDefinition) error {
	if other == nil {
		return nil
	}
	if err := mergo.Merge(d, other, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge agent definitions: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("agentname", validKebabName)
	_ = v.RegisterValidation("workflowname", validKebabName)
	return v
}

// validKebabName implements spec §4.10's name rule: kebab-case,
// 1-64 chars, [a-z0-9] plus single hyphens, no leading/trailing or
// consecutive hyphens.
func validKebabName(fl validator.FieldLevel) bool {
	return IsValidName(fl.Field().String())
}

// IsValidName reports whether name satisfies the kebab-case rule
// directly (exported so discovery can check a directory name against it
// without going through the full struct validator).
func IsValidName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	prevHyphen := false
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			prevHyphen = false
		case r == '-':
			if i == 0 || i == len(name)-1 || prevHyphen {
				return false
			}
			prevHyphen = true
		default:
			return false
		}
	}
	return true
}

// splitFrontmatter separates a `---`-fenced YAML block from the trailing
// Markdown body, mirroring agent_def.rs's instructions() stripping
// logic. Returns an empty body (not an error) when there's no closing
// fence or nothing follows it.
func splitFrontmatter(raw string) (frontmatter, body string) {
	trimmed := strings.TrimSpace(raw)
	rest, ok := strings.CutPrefix(trimmed, "---")
	if !ok {
		return "", trimmed
	}
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return rest, ""
	}
	fm := rest[:idx]
	after := rest[idx+len("\n---"):]
	// Skip a trailing line terminator right after the closing fence.
	after = strings.TrimPrefix(after, "\n")
	return fm, strings.TrimSpace(after)
}

// ParseAgent parses the full contents of an AGENT.md file.
func ParseAgent(raw string) (*AgentDefinition, error) {
	fm, body := splitFrontmatter(raw)
	var def AgentDefinition
	if err := yaml.Unmarshal([]byte(fm), &def); err != nil {
		return nil, core.NewError(err, core.CodeWorkflowNameInvalid, map[string]any{"reason": "frontmatter parse"})
	}
	def.Content = body
	if err := validate.Struct(&def); err != nil {
		return nil, core.NewError(err, core.CodeWorkflowNameInvalid, map[string]any{"name": def.Name})
	}
	return &def, nil
}

// ParseWorkflow parses the full contents of a WORKFLOW.md file.
func ParseWorkflow(raw string) (*WorkflowDefinition, error) {
	fm, body := splitFrontmatter(raw)
	var def WorkflowDefinition
	if err := yaml.Unmarshal([]byte(fm), &def); err != nil {
		return nil, core.NewError(err, core.CodeWorkflowNameInvalid, map[string]any{"reason": "frontmatter parse"})
	}
	def.Content = body
	if err := validate.Struct(&def); err != nil {
		return nil, core.NewError(err, core.CodeWorkflowNameInvalid, map[string]any{"name": def.Name})
	}
	return &def, nil
}
