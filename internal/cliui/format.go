// Package cliui provides the workflow front end's output formatting
// (spec §6's "--as json|yaml" and the default human-readable table/markdown
// views), generalized from cli/helpers/formatter.go's JSONFormatter and
// cli/helpers/errors.go's sentinel error wrappers.
package cliui

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"

	"github.com/stencila/attractor/internal/core"
)

// As names an output encoding a command can be asked to render with.
type As string

const (
	AsJSON  As = "json"
	AsYAML  As = "yaml"
	AsTable As = "table"
	AsMD    As = "md"
)

// Envelope is the standardized response shape wrapping command output,
// mirroring helpers.JSONResponse but generalized to also marshal as YAML.
type Envelope struct {
	Success  bool           `json:"success" yaml:"success"`
	Data     any            `json:"data,omitempty" yaml:"data,omitempty"`
	Error    *ErrorEnvelope `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata *Metadata      `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ErrorEnvelope carries a stable machine code and human message, mirroring
// helpers.JSONError but sourced from internal/core.Error's Code/Details.
type ErrorEnvelope struct {
	Code    string         `json:"code" yaml:"code"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// Metadata carries a response timestamp, matching helpers.FormatterMetadata
// narrowed to what a CLI run actually reports (no pagination surface here;
// workflow lists are small enough not to need it).
type Metadata struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Formatter renders a Envelope as JSON or YAML text.
type Formatter struct {
	As     As
	Pretty bool
}

// NewFormatter builds a Formatter for the named encoding, defaulting to
// pretty-printed JSON when as is empty or unrecognized.
func NewFormatter(as As) *Formatter {
	if as == "" {
		as = AsJSON
	}
	return &Formatter{As: as, Pretty: true}
}

// Success formats a successful result.
func (f *Formatter) Success(data any) (string, error) {
	return f.marshal(Envelope{
		Success:  true,
		Data:     data,
		Metadata: &Metadata{Timestamp: time.Now()},
	})
}

// Failure formats a failed result, pulling the machine code and details
// out of err when it's an *core.Error.
func (f *Formatter) Failure(err error) (string, error) {
	env := ErrorEnvelope{Message: err.Error()}
	var appErr *core.Error
	if errors.As(err, &appErr) {
		env.Code = appErr.Code
		env.Details = appErr.Details
	}
	return f.marshal(Envelope{
		Success:  false,
		Error:    &env,
		Metadata: &Metadata{Timestamp: time.Now()},
	})
}

func (f *Formatter) marshal(env Envelope) (string, error) {
	switch f.As {
	case AsYAML:
		out, err := yaml.Marshal(env)
		if err != nil {
			return "", fmt.Errorf("failed to marshal yaml: %w", err)
		}
		return string(out), nil
	default:
		out, err := json.Marshal(env)
		if err != nil {
			return "", fmt.Errorf("failed to marshal json: %w", err)
		}
		if f.Pretty {
			out = pretty.Pretty(out)
		}
		return string(out), nil
	}
}
