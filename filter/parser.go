package filter

import (
	"fmt"
	"strconv"

	"github.com/viant/multivec/errs"
)

const opParse = "filter: parse"

// Parse parses src. When fields is non-empty, references to any other field
// are rejected.
func Parse(src string, fields ...string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	if p.peek().kind == tokEOF {
		return nil, errs.InvalidArgument(opParse, "empty filter expression")
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, syntaxError(src, t.pos, "unexpected %q", t.text)
	}
	if len(fields) > 0 {
		allowed := make(map[string]bool, len(fields))
		for _, f := range fields {
			allowed[f] = true
		}
		for _, f := range e.Fields(nil) {
			if !allowed[f] {
				return nil, errs.InvalidArgument(opParse, "unknown field %q in %q", f, src)
			}
		}
	}
	return e, nil
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNot:
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{X: x}, nil
	case tokLParen:
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, syntaxError(p.src, closing.pos, "expected ')'")
		}
		return e, nil
	case tokIdent:
		op := p.next()
		if op.kind != tokOp {
			return nil, syntaxError(p.src, op.pos, "expected comparison operator after %q", t.text)
		}
		lit := p.next()
		if lit.kind != tokInt {
			return nil, syntaxError(p.src, lit.pos, "expected integer literal after %q", op.text)
		}
		v, err := strconv.ParseInt(lit.text, 10, 64)
		if err != nil {
			return nil, syntaxError(p.src, lit.pos, "integer %q out of range", lit.text)
		}
		return &Compare{Field: t.text, Op: Op(op.text), Value: v}, nil
	case tokEOF:
		return nil, syntaxError(p.src, t.pos, "unexpected end of expression")
	}
	return nil, syntaxError(p.src, t.pos, "unexpected %q", t.text)
}

func syntaxError(src string, pos int, format string, args ...any) error {
	return errs.InvalidArgument(opParse, "%s at offset %d in %q", fmt.Sprintf(format, args...), pos, src)
}
