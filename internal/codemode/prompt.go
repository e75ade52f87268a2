package codemode

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/stencila/attractor/internal/mcppool"
)

// BuildPromptSection renders the codemode section of an agent's system
// prompt: a listing of every allowed MCP server with its tool count and
// instructions/description, followed by either inlined TypeScript
// declarations (when they fit DeclarationBudget) or a runtime-discovery
// hint. Returns "" when no servers are visible, since there is nothing
// useful to tell the model about a codemode tool with no servers behind
// it — mirrors `build_codemode_prompt`'s empty-servers short-circuit.
func BuildPromptSection(ctx context.Context, pool *mcppool.Pool, allowed []string) string {
	servers := pool.FilterServers(allowed)
	if len(servers) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# MCP Codemode\n\nUse the `%s` tool to execute JavaScript with access to MCP servers.\n\n", ToolName)

	b.WriteString("## Available MCP servers\n\n")
	for _, server := range servers {
		tools, err := server.Tools(ctx)
		toolCount := 0
		if err == nil {
			toolCount = len(tools)
		}
		fmt.Fprintf(&b, "- **%s** (`%s`): %d tools\n", server.ServerName(), server.ServerID(), toolCount)

		if instructions := server.Instructions(); instructions != "" {
			for _, line := range strings.Split(instructions, "\n") {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		} else if description := server.Description(); description != "" {
			fmt.Fprintf(&b, "  %s\n", description)
		}
	}

	declarations, err := GenerateDeclarations(ctx, servers)
	if err == nil && len(declarations) <= DeclarationBudget {
		fmt.Fprintf(&b, "\n## TypeScript declarations\n\n```typescript\n%s\n```\n", declarations)
	} else {
		b.WriteString("\nThe full TypeScript declarations are too large for the system prompt. " +
			"Call `listServers()` and `listTools(serverId)` from the sandbox to explore available " +
			"tools at runtime.\n")
	}

	return b.String()
}

// GenerateDeclarations renders TypeScript-flavored declarations describing
// every tool on every server, so the model can see call shapes without a
// runtime round trip. Declarations describe the synchronous global
// bindings a sandbox actually exposes (see types.go's package doc on why
// these replace ES-module imports), not a literal mapping of the Rust
// module-per-server scheme.
func GenerateDeclarations(ctx context.Context, servers []mcppool.Server) (string, error) {
	var b strings.Builder
	b.WriteString("declare function listServers(): string[];\n")
	b.WriteString("declare function listTools(serverId: string): Array<{ name: string; description?: string }>;\n")
	b.WriteString("declare function callTool(serverId: string, toolName: string, args: object): any;\n")

	for _, server := range servers {
		tools, err := server.Tools(ctx)
		if err != nil {
			continue
		}
		if len(tools) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n// %s (%s)\n", server.ServerName(), server.ServerID())
		names := make([]string, 0, len(tools))
		byName := make(map[string]string, len(tools))
		for _, tool := range tools {
			names = append(names, tool.Name)
			byName[tool.Name] = tool.Description
		}
		sort.Strings(names)
		for _, name := range names {
			desc := byName[name]
			if desc != "" {
				fmt.Fprintf(&b, "// %s\n", desc)
			}
			fmt.Fprintf(&b, "// callTool(%q, %q, args)\n", server.ServerID(), name)
		}
	}

	return b.String(), nil
}

func jsSafeName(serverID, toolName string) string {
	replacer := strings.NewReplacer("-", "_", ".", "_", "/", "_", " ", "_")
	return replacer.Replace(serverID) + "__" + replacer.Replace(toolName)
}
