// Package condition compiles and evaluates the minimal comparator
// expression an edge's `when` attribute carries: dotted context keys
// combined with ==, !=, <, >, <=, >=, && and ||. Expressions are compiled
// once with cel-go and evaluated repeatedly against a context snapshot.
package condition

import (
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/stencila/attractor/internal/core"
)

// Expr is a compiled condition ready for repeated evaluation.
type Expr struct {
	source   string
	program  cel.Program
	mangled  map[string]string // mangled identifier -> original dotted key
}

// Compile parses and type-checks source, returning a reusable Expr.
// Dotted context keys (e.g. "parallel.success_count") are referenced
// verbatim in source; CEL itself only allows dots as field-selection, so
// Compile rewrites each dotted identifier to a flat CEL variable name
// before handing the expression to cel-go.
func Compile(source string) (*Expr, error) {
	rewritten, mangled := rewriteIdentifiers(source)

	opts := make([]cel.EnvOption, 0, len(mangled))
	for name := range mangled {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, core.NewError(err, core.CodeConditionSyntax, map[string]any{"source": source})
	}

	ast, iss := env.Compile(rewritten)
	if iss != nil && iss.Err() != nil {
		return nil, core.NewError(iss.Err(), core.CodeConditionSyntax, map[string]any{"source": source})
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, core.NewError(err, core.CodeConditionSyntax, map[string]any{"source": source})
	}

	return &Expr{source: source, program: prg, mangled: mangled}, nil
}

// Eval evaluates the compiled expression against a context snapshot. A
// context key the expression references but the snapshot lacks is treated
// as CEL null, so comparisons involving it simply evaluate to false rather
// than erroring the whole condition out. Eval reports an error only when
// the expression does not reduce to a boolean.
func (e *Expr) Eval(snapshot map[string]any) (bool, error) {
	activation := make(map[string]any, len(e.mangled))
	for mangledName, original := range e.mangled {
		if v, ok := snapshot[original]; ok {
			activation[mangledName] = v
		} else {
			activation[mangledName] = types.NullValue
		}
	}

	out, _, err := e.program.Eval(activation)
	if err != nil {
		return false, nil
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, core.NewError(nil, core.CodeConditionSyntax, map[string]any{
			"source": e.source,
			"reason": "condition did not evaluate to a boolean",
		})
	}
	return b, nil
}

// Evaluate is a convenience one-shot Compile+Eval for callers that don't
// need to reuse a compiled expression across many invocations.
func Evaluate(source string, snapshot map[string]any) (bool, error) {
	expr, err := Compile(source)
	if err != nil {
		return false, err
	}
	return expr.Eval(snapshot)
}

// rewriteIdentifiers walks source outside of quoted string literals,
// collecting every dotted identifier (letters/digits/underscore/dot,
// starting with a letter or underscore) and replacing each occurrence with
// a flat mangled name CEL can parse as a single variable.
func rewriteIdentifiers(source string) (string, map[string]string) {
	var out strings.Builder
	mangled := make(map[string]string)
	runes := []rune(source)
	n := len(runes)
	inString := false

	isIdentStart := func(r rune) bool {
		return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}
	isIdentRune := func(r rune) bool {
		return isIdentStart(r) || (r >= '0' && r <= '9') || r == '.'
	}

	for i := 0; i < n; {
		r := runes[i]
		if inString {
			out.WriteRune(r)
			if r == '\\' && i+1 < n {
				i++
				out.WriteRune(runes[i])
				i++
				continue
			}
			if r == '"' {
				inString = false
			}
			i++
			continue
		}
		if r == '"' {
			inString = true
			out.WriteRune(r)
			i++
			continue
		}
		if isIdentStart(r) {
			start := i
			for i < n && isIdentRune(runes[i]) {
				i++
			}
			ident := string(runes[start:i])
			if strings.Contains(ident, ".") {
				name := "ctx_" + strings.ReplaceAll(ident, ".", "_")
				mangled[name] = ident
				out.WriteString(name)
			} else if ident == "true" || ident == "false" || ident == "null" {
				out.WriteString(ident)
			} else {
				mangled[ident] = ident
				out.WriteString(ident)
			}
			continue
		}
		out.WriteRune(r)
		i++
	}
	return out.String(), mangled
}
