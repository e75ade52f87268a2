package codemode

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatResponse renders a RunResponse as text for the LLM: a Result
// section (raw if it's a string, pretty-printed JSON otherwise), a
// Diagnostics section, a Logs section, and a Tool calls section — each
// included only when non-empty, joined by blank lines. Ported section for
// section from `build_codemode_prompt`'s sibling `format_codemode_response`
// so every case it covers (plain result, JSON result, diagnostics, logs,
// tool trace, empty response, failed tool call) behaves identically.
func FormatResponse(response *RunResponse) string {
	var sections []string

	if response.Result != nil {
		var resultStr string
		if s, ok := response.Result.(string); ok {
			resultStr = s
		} else {
			b, err := json.MarshalIndent(response.Result, "", "  ")
			if err != nil {
				resultStr = ""
			} else {
				resultStr = string(b)
			}
		}
		sections = append(sections, fmt.Sprintf("Result:\n%s", resultStr))
	}

	if len(response.Diagnostics) > 0 {
		lines := make([]string, 0, len(response.Diagnostics))
		for _, d := range response.Diagnostics {
			lines = append(lines, fmt.Sprintf("[%s] %s: %s", d.Severity, d.Code, d.Message))
		}
		sections = append(sections, fmt.Sprintf("Diagnostics:\n%s", strings.Join(lines, "\n")))
	}

	if len(response.Logs) > 0 {
		lines := make([]string, 0, len(response.Logs))
		for _, l := range response.Logs {
			lines = append(lines, fmt.Sprintf("[%s] %s", l.Level, l.Message))
		}
		sections = append(sections, fmt.Sprintf("Logs:\n%s", strings.Join(lines, "\n")))
	}

	if len(response.ToolTrace) > 0 {
		lines := make([]string, 0, len(response.ToolTrace))
		for _, t := range response.ToolTrace {
			status := "ok"
			if !t.OK {
				status = "error"
			}
			lines = append(lines, fmt.Sprintf("  %s.%s (%dms) -> %s", t.ServerID, t.ToolName, t.DurationMS, status))
		}
		sections = append(sections, fmt.Sprintf("Tool calls:\n%s", strings.Join(lines, "\n")))
	}

	if len(sections) == 0 {
		return "(no output)"
	}
	return strings.Join(sections, "\n\n")
}
