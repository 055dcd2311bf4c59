package filter

import (
	"strconv"
	"strings"

	"github.com/viant/multivec/errs"
)

const opEval = "filter: eval"

// Op is a comparison operator.
type Op string

const (
	Eq Op = "=="
	Ne Op = "!="
	Lt Op = "<"
	Le Op = "<="
	Gt Op = ">"
	Ge Op = ">="
)

// Row resolves a field to its value. ok is false for unknown fields.
type Row func(field string) (value int64, ok bool)

// Expr is a parsed filter expression.
type Expr interface {
	// Eval reports whether row satisfies the expression.
	Eval(row Row) (bool, error)
	// String renders the expression in canonical form.
	String() string
	// Fields appends the field names referenced by the expression.
	Fields(dst []string) []string
}

// Compare is `field op value`.
type Compare struct {
	Field string
	Op    Op
	Value int64
}

// And is a conjunction.
type And struct{ Left, Right Expr }

// Or is a disjunction.
type Or struct{ Left, Right Expr }

// Not negates X.
type Not struct{ X Expr }

func (c *Compare) Eval(row Row) (bool, error) {
	v, ok := row(c.Field)
	if !ok {
		return false, errs.InvalidArgument(opEval, "unknown field %q", c.Field)
	}
	switch c.Op {
	case Eq:
		return v == c.Value, nil
	case Ne:
		return v != c.Value, nil
	case Lt:
		return v < c.Value, nil
	case Le:
		return v <= c.Value, nil
	case Gt:
		return v > c.Value, nil
	case Ge:
		return v >= c.Value, nil
	}
	return false, errs.InvalidArgument(opEval, "unsupported operator %q", c.Op)
}

func (c *Compare) String() string {
	return c.Field + " " + string(c.Op) + " " + strconv.FormatInt(c.Value, 10)
}

func (c *Compare) Fields(dst []string) []string { return append(dst, c.Field) }

func (a *And) Eval(row Row) (bool, error) {
	l, err := a.Left.Eval(row)
	if err != nil || !l {
		return false, err
	}
	return a.Right.Eval(row)
}

func (a *And) String() string { return group(a.Left, a) + " and " + group(a.Right, a) }

func (a *And) Fields(dst []string) []string { return a.Right.Fields(a.Left.Fields(dst)) }

func (o *Or) Eval(row Row) (bool, error) {
	l, err := o.Left.Eval(row)
	if err != nil || l {
		return l, err
	}
	return o.Right.Eval(row)
}

func (o *Or) String() string { return group(o.Left, o) + " or " + group(o.Right, o) }

func (o *Or) Fields(dst []string) []string { return o.Right.Fields(o.Left.Fields(dst)) }

func (n *Not) Eval(row Row) (bool, error) {
	v, err := n.X.Eval(row)
	return !v && err == nil, err
}

func (n *Not) String() string {
	if _, ok := n.X.(*Compare); ok {
		return "not (" + n.X.String() + ")"
	}
	return "not " + group(n.X, n)
}

func (n *Not) Fields(dst []string) []string { return n.X.Fields(dst) }

// group parenthesizes child when it binds looser than parent.
func group(child, parent Expr) string {
	if precedence(child) < precedence(parent) {
		return "(" + child.String() + ")"
	}
	return child.String()
}

func precedence(e Expr) int {
	switch e.(type) {
	case *Or:
		return 1
	case *And:
		return 2
	case *Not:
		return 3
	}
	return 4
}

// DocEquals reports whether e is exactly `field == value` and returns value.
func DocEquals(e Expr, field string) (int64, bool) {
	c, ok := e.(*Compare)
	if !ok || c.Op != Eq || !strings.EqualFold(c.Field, field) {
		return 0, false
	}
	return c.Value, true
}

// Equals builds `field == value`.
func Equals(field string, value int64) Expr {
	return &Compare{Field: field, Op: Eq, Value: value}
}
