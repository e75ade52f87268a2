// Package stylesheet implements the tiny CSS-like language that decorates
// pipeline nodes with per-node LLM configuration:
//
//	Rule := Selector '{' (Decl ';'?)* '}'
//	Selector := '*' | '#' Ident | '.' ClassName
package stylesheet

import (
	"fmt"
	"sort"
	"strings"
)

// SelectorKind discriminates the three selector forms.
type SelectorKind int

const (
	Universal SelectorKind = iota
	Class
	ID
)

// Selector is a parsed selector: Universal, a class name, or an id.
type Selector struct {
	Kind SelectorKind
	Name string
}

// Specificity returns the selector's priority: Id > Class > Universal.
func (s Selector) Specificity() int {
	switch s.Kind {
	case ID:
		return 2
	case Class:
		return 1
	default:
		return 0
	}
}

// Declaration is a single `property: value` pair inside a rule body.
type Declaration struct {
	Property string
	Value    string
}

// Rule is a selector plus its declarations, with Order recording source
// position for stable tie-breaking.
type Rule struct {
	Selector     Selector
	Declarations []Declaration
	Order        int
}

// KnownProperties enumerates the recognized declaration properties.
var KnownProperties = map[string]bool{
	"llm_model":        true,
	"llm_provider":     true,
	"reasoning_effort": true,
}

// KnownReasoningEfforts enumerates the allowed values for reasoning_effort.
var KnownReasoningEfforts = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}

// ParseError carries the rune offset of the failure alongside the message.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("stylesheet: %s (at offset %d)", e.Message, e.Pos)
}

// Parse parses a full stylesheet source into an ordered list of rules.
func Parse(source string) ([]Rule, error) {
	p := &parser{lex: newLexer(source)}
	return p.parseRules()
}

type parser struct {
	lex    *lexer
	order  int
	peeked *token
}

func (p *parser) next() token {
	if p.peeked != nil {
		t := *p.peeked
		p.peeked = nil
		return t
	}
	return p.lex.next()
}

func (p *parser) peek() token {
	if p.peeked == nil {
		t := p.lex.next()
		p.peeked = &t
	}
	return *p.peeked
}

func (p *parser) parseRules() ([]Rule, error) {
	var rules []Rule
	for {
		tok := p.peek()
		if tok.kind == tokEOF {
			return rules, nil
		}
		rule, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
}

func (p *parser) parseRule() (Rule, error) {
	sel, err := p.parseSelector()
	if err != nil {
		return Rule{}, err
	}
	open := p.next()
	if open.kind != tokLBrace {
		return Rule{}, &ParseError{Pos: open.pos, Message: "expected '{' after selector"}
	}
	var decls []Declaration
	for {
		tok := p.peek()
		if tok.kind == tokRBrace {
			p.next()
			break
		}
		if tok.kind == tokEOF {
			return Rule{}, &ParseError{Pos: tok.pos, Message: "unexpected end of input inside rule body"}
		}
		decl, err := p.parseDeclaration()
		if err != nil {
			return Rule{}, err
		}
		decls = append(decls, decl)
	}
	rule := Rule{Selector: sel, Declarations: decls, Order: p.order}
	p.order++
	return rule, nil
}

func (p *parser) parseSelector() (Selector, error) {
	tok := p.next()
	switch tok.kind {
	case tokStar:
		return Selector{Kind: Universal}, nil
	case tokHash:
		name := p.next()
		if name.kind != tokIdent {
			return Selector{}, &ParseError{Pos: name.pos, Message: "expected identifier after '#'"}
		}
		return Selector{Kind: ID, Name: name.text}, nil
	case tokDot:
		name := p.next()
		if name.kind != tokIdent {
			return Selector{}, &ParseError{Pos: name.pos, Message: "expected identifier after '.'"}
		}
		return Selector{Kind: Class, Name: name.text}, nil
	default:
		return Selector{}, &ParseError{Pos: tok.pos, Message: fmt.Sprintf("unexpected token %q in selector position", tok.text)}
	}
}

func (p *parser) parseDeclaration() (Declaration, error) {
	prop := p.next()
	if prop.kind != tokIdent {
		return Declaration{}, &ParseError{Pos: prop.pos, Message: "expected property name"}
	}
	if !KnownProperties[prop.text] {
		return Declaration{}, &ParseError{Pos: prop.pos, Message: fmt.Sprintf("unknown property %q", prop.text)}
	}
	colon := p.next()
	if colon.kind != tokColon {
		return Declaration{}, &ParseError{Pos: colon.pos, Message: "expected ':' after property name"}
	}
	val := p.next()
	if val.kind != tokIdent && val.kind != tokString {
		return Declaration{}, &ParseError{Pos: val.pos, Message: "expected a value"}
	}
	if prop.text == "reasoning_effort" && !KnownReasoningEfforts[val.text] {
		return Declaration{}, &ParseError{Pos: val.pos, Message: fmt.Sprintf("invalid reasoning_effort value %q", val.text)}
	}
	// optional trailing semicolon
	if p.peek().kind == tokSemi {
		p.next()
	}
	return Declaration{Property: prop.text, Value: val.text}, nil
}

// Matches reports whether a selector applies to a node with the given
// classes and id.
func (s Selector) Matches(classes []string, id string) bool {
	switch s.Kind {
	case Universal:
		return true
	case ID:
		return s.Name == id
	case Class:
		for _, c := range classes {
			if c == s.Name {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Resolve collects every rule matching (classes, id), merges their
// declarations, and resolves conflicts by specificity (Id > Class >
// Universal) with source-order as the tiebreaker. The result maps each
// property to its winning value.
func Resolve(rules []Rule, classes []string, id string) map[string]string {
	type win struct {
		specificity int
		order       int
		value       string
	}
	winners := map[string]win{}
	for _, rule := range rules {
		if !rule.Selector.Matches(classes, id) {
			continue
		}
		spec := rule.Selector.Specificity()
		for _, d := range rule.Declarations {
			cur, ok := winners[d.Property]
			if !ok || spec > cur.specificity || (spec == cur.specificity && rule.Order > cur.order) {
				winners[d.Property] = win{specificity: spec, order: rule.Order, value: d.Value}
			}
		}
	}
	result := make(map[string]string, len(winners))
	for prop, w := range winners {
		result[prop] = w.value
	}
	return result
}

// Emit renders rules back into stylesheet source, in declaration order
// within each rule and rule order as given. Used for round-trip tests
// (parse(emit(parsed)) yields an equivalent AST modulo whitespace/quoting).
func Emit(rules []Rule) string {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Order < rules[j].Order })
	var b strings.Builder
	for _, r := range rules {
		switch r.Selector.Kind {
		case Universal:
			b.WriteString("*")
		case ID:
			b.WriteString("#" + r.Selector.Name)
		case Class:
			b.WriteString("." + r.Selector.Name)
		}
		b.WriteString(" {")
		for _, d := range r.Declarations {
			value := d.Value
			plain := value != "" && value[0] != '.'
			for _, c := range value {
				if !isIdentRune(c) {
					plain = false
					break
				}
			}
			if !plain {
				value = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`).Replace(value) + `"`
			}
			b.WriteString(fmt.Sprintf(" %s: %s;", d.Property, value))
		}
		b.WriteString(" }\n")
	}
	return b.String()
}
