package graph

import (
	"fmt"
	"strings"
)

// ParseError reports a DOT syntax error with the offending rune offset.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dot: %s (at offset %d)", e.Message, e.Pos)
}

// ParseDOT parses a DOT-like pipeline description into a Graph. It supports
// the subset of DOT the pipeline front end needs: a `digraph` header, node
// statements with bracketed attribute lists, edge statements (including
// chains `a -> b -> c`), and a `graph [...]` statement or top-level
// `key=value` statement for graph-level defaults such as default_max_retry.
func ParseDOT(source string) (*Graph, error) {
	p := &dotParser{lex: newDotLexer(source), g: NewGraph()}
	if err := p.parseGraph(); err != nil {
		return nil, err
	}
	if err := p.g.Validate(); err != nil {
		return nil, err
	}
	return p.g, nil
}

type dotParser struct {
	lex        *dotLexer
	peeked     *dotToken
	g          *Graph
	edgeOrders map[string]int
}

func (p *dotParser) next() dotToken {
	if p.peeked != nil {
		t := *p.peeked
		p.peeked = nil
		return t
	}
	return p.lex.next()
}

func (p *dotParser) peek() dotToken {
	if p.peeked == nil {
		t := p.lex.next()
		p.peeked = &t
	}
	return *p.peeked
}

func (p *dotParser) parseGraph() error {
	tok := p.next()
	if tok.kind != dotTokIdent || !(strings.EqualFold(tok.text, "digraph") || strings.EqualFold(tok.text, "graph")) {
		return &ParseError{Pos: tok.pos, Message: "expected 'digraph' or 'graph' keyword"}
	}
	if p.peek().kind == dotTokIdent || p.peek().kind == dotTokString {
		p.next() // optional graph name
	}
	open := p.next()
	if open.kind != dotTokLBrace {
		return &ParseError{Pos: open.pos, Message: "expected '{' to open graph body"}
	}
	p.edgeOrders = make(map[string]int)
	for {
		tok := p.peek()
		if tok.kind == dotTokRBrace {
			p.next()
			return nil
		}
		if tok.kind == dotTokEOF {
			return &ParseError{Pos: tok.pos, Message: "unexpected end of input inside graph body"}
		}
		if err := p.parseStmt(); err != nil {
			return err
		}
		if p.peek().kind == dotTokSemi {
			p.next()
		}
	}
}

func (p *dotParser) parseStmt() error {
	first := p.next()
	if first.kind != dotTokIdent && first.kind != dotTokString {
		return &ParseError{Pos: first.pos, Message: fmt.Sprintf("unexpected token %q in statement", first.text)}
	}
	lower := strings.ToLower(first.text)
	if (lower == "graph" || lower == "node" || lower == "edge") && p.peek().kind == dotTokLBracket {
		attrs, err := p.parseAttrList()
		if err != nil {
			return err
		}
		if lower == "graph" {
			for k, v := range attrs {
				p.g.Attrs[k] = v
			}
		}
		return nil
	}
	if p.peek().kind == dotTokEq {
		p.next()        // '='
		val := p.next() // value; top-level key=value graph attribute
		p.g.Attrs[first.text] = ParseAttrValue(val.text, val.kind == dotTokString)
		return nil
	}
	// node_id ( '->' node_id )*
	ids := []string{first.text}
	for p.peek().kind == dotTokArrow {
		p.next()
		idTok := p.next()
		if idTok.kind != dotTokIdent && idTok.kind != dotTokString {
			return &ParseError{Pos: idTok.pos, Message: "expected node id after '->'"}
		}
		ids = append(ids, idTok.text)
	}
	var attrs map[string]AttrValue
	if p.peek().kind == dotTokLBracket {
		parsed, err := p.parseAttrList()
		if err != nil {
			return err
		}
		attrs = parsed
	}
	if len(ids) == 1 {
		typ := ""
		if attrs != nil {
			if v, ok := attrs["type"]; ok {
				typ = v.AsString()
			}
		}
		p.g.AddNode(ids[0], typ, attrs)
		return nil
	}
	for i := 0; i < len(ids)-1; i++ {
		from, to := ids[i], ids[i+1]
		p.g.AddNode(from, "", nil)
		p.g.AddNode(to, "", nil)
		edge := &Edge{From: from, To: to, Weight: 1}
		if attrs != nil {
			if v, ok := attrs["label"]; ok {
				edge.Label = v.AsString()
			}
			if v, ok := attrs["when"]; ok {
				edge.Condition = v.AsString()
			}
			if v, ok := attrs["weight"]; ok {
				if f, ok := v.AsFloat(); ok {
					edge.Weight = f
				}
			}
			if v, ok := attrs["on_failure"]; ok {
				if b, ok := v.AsBool(); ok {
					edge.OnFailure = b
				}
			}
		}
		edge.Order = p.edgeOrders[from]
		p.edgeOrders[from]++
		p.g.AddEdge(edge)
	}
	return nil
}

func (p *dotParser) parseAttrList() (map[string]AttrValue, error) {
	attrs := make(map[string]AttrValue)
	for p.peek().kind == dotTokLBracket {
		p.next() // '['
		for {
			tok := p.peek()
			if tok.kind == dotTokRBracket {
				p.next()
				break
			}
			if tok.kind == dotTokEOF {
				return nil, &ParseError{Pos: tok.pos, Message: "unexpected end of input inside attribute list"}
			}
			key := p.next()
			if key.kind != dotTokIdent && key.kind != dotTokString {
				return nil, &ParseError{Pos: key.pos, Message: "expected attribute name"}
			}
			eq := p.next()
			if eq.kind != dotTokEq {
				return nil, &ParseError{Pos: eq.pos, Message: "expected '=' after attribute name"}
			}
			val := p.next()
			if val.kind != dotTokIdent && val.kind != dotTokString {
				return nil, &ParseError{Pos: val.pos, Message: "expected attribute value"}
			}
			attrs[key.text] = ParseAttrValue(val.text, val.kind == dotTokString)
			if p.peek().kind == dotTokComma {
				p.next()
			}
		}
	}
	return attrs, nil
}
