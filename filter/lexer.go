package filter

import "strings"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokOp
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits src into tokens. Symbolic forms of the boolean keywords
// (&&, ||, !) are accepted as aliases.
func lex(src string) ([]token, error) {
	var out []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			out = append(out, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			out = append(out, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == '&' || c == '|':
			if i+1 >= len(src) || src[i+1] != src[i] {
				return nil, syntaxError(src, i, "unexpected %q", string(c))
			}
			kind := tokAnd
			if c == '|' {
				kind = tokOr
			}
			out = append(out, token{kind: kind, text: src[i : i+2], pos: i})
			i += 2
		case c == '=' || c == '!' || c == '<' || c == '>':
			if i+1 < len(src) && src[i+1] == '=' {
				out = append(out, token{kind: tokOp, text: src[i : i+2], pos: i})
				i += 2
				continue
			}
			switch c {
			case '<', '>':
				out = append(out, token{kind: tokOp, text: string(c), pos: i})
			case '!':
				out = append(out, token{kind: tokNot, text: "!", pos: i})
			default:
				return nil, syntaxError(src, i, "single '=' is not an operator, use '=='")
			}
			i++
		case c == '-' || c == '+' || isDigit(c):
			start := i
			i++
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i-start == 1 && (c == '-' || c == '+') {
				return nil, syntaxError(src, start, "sign without digits")
			}
			out = append(out, token{kind: tokInt, text: src[start:i], pos: start})
		case c == '_' || isAlpha(c):
			start := i
			for i < len(src) && (src[i] == '_' || isAlnum(src[i])) {
				i++
			}
			word := src[start:i]
			kind := tokIdent
			switch strings.ToLower(word) {
			case "and":
				kind = tokAnd
			case "or":
				kind = tokOr
			case "not":
				kind = tokNot
			}
			out = append(out, token{kind: kind, text: word, pos: start})
		default:
			return nil, syntaxError(src, i, "unexpected character %q", string(c))
		}
	}
	out = append(out, token{kind: tokEOF, pos: len(src)})
	return out, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAlpha(b byte) bool { return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' }

func isAlnum(b byte) bool { return isDigit(b) || isAlpha(b) }
