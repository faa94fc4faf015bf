package harness

import (
	"fmt"
	"unicode"

	"github.com/roach88/tickr/internal/trigger"
)

// exprNode is a parsed trigger expression.
type exprNode interface {
	build(input func(name string) *trigger.Trigger) *trigger.Trigger
}

type nameExpr struct{ name string }

func (e nameExpr) build(input func(string) *trigger.Trigger) *trigger.Trigger {
	return input(e.name)
}

type notExpr struct{ x exprNode }

func (e notExpr) build(input func(string) *trigger.Trigger) *trigger.Trigger {
	return e.x.build(input).Negate()
}

type binaryExpr struct {
	op   byte
	l, r exprNode
}

func (e binaryExpr) build(input func(string) *trigger.Trigger) *trigger.Trigger {
	l, r := e.l.build(input), e.r.build(input)
	if e.op == '&' {
		return l.And(r)
	}
	return l.Or(r)
}

// parseExpr parses a trigger expression:
//
//	or      = and { "|" and }
//	and     = unary { "&" unary }
//	unary   = "!" unary | primary
//	primary = name | "(" or ")"
//
// Every name must be a declared input.
func parseExpr(src string, inputs map[string][][]int64) (exprNode, error) {
	p := &exprParser{src: []rune(src), inputs: inputs}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("trigger %q: unexpected %q at %d", src, string(p.src[p.pos]), p.pos)
	}
	return node, nil
}

type exprParser struct {
	src    []rune
	pos    int
	inputs map[string][][]int64
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *exprParser) accept(r rune) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == r {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) parseOr() (exprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept('|') {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: '|', l: left, r: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.accept('&') {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: '&', l: left, r: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (exprNode, error) {
	if p.accept('!') {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notExpr{x: x}, nil
	}
	if p.accept('(') {
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(')') {
			return nil, fmt.Errorf("trigger %q: missing ')'", string(p.src))
		}
		return x, nil
	}
	return p.parseName()
}

func (p *exprParser) parseName() (exprNode, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			break
		}
		p.pos++
	}
	if start == p.pos {
		return nil, fmt.Errorf("trigger %q: expected input name at %d", string(p.src), start)
	}
	name := string(p.src[start:p.pos])
	if _, ok := p.inputs[name]; !ok {
		return nil, fmt.Errorf("trigger %q: unknown input %q", string(p.src), name)
	}
	return nameExpr{name: name}, nil
}
