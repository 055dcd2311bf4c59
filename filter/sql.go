package filter

import (
	"strings"

	"github.com/viant/multivec/errs"
)

// SQL renders e as a parameterized SQL predicate. columns maps field names
// to column names; a field missing from columns is an error.
func SQL(e Expr, columns map[string]string) (string, []any, error) {
	var b strings.Builder
	var args []any
	if err := writeSQL(&b, &args, e, columns); err != nil {
		return "", nil, err
	}
	return b.String(), args, nil
}

func writeSQL(b *strings.Builder, args *[]any, e Expr, columns map[string]string) error {
	switch n := e.(type) {
	case *Compare:
		col, ok := columns[n.Field]
		if !ok {
			return errs.InvalidArgument("filter: sql", "unknown field %q", n.Field)
		}
		op := string(n.Op)
		if n.Op == Eq {
			op = "="
		} else if n.Op == Ne {
			op = "<>"
		}
		b.WriteString(col + " " + op + " ?")
		*args = append(*args, n.Value)
	case *And:
		return binarySQL(b, args, n.Left, n.Right, " AND ", columns)
	case *Or:
		return binarySQL(b, args, n.Left, n.Right, " OR ", columns)
	case *Not:
		b.WriteString("NOT (")
		if err := writeSQL(b, args, n.X, columns); err != nil {
			return err
		}
		b.WriteString(")")
	default:
		return errs.InvalidArgument("filter: sql", "unsupported node %T", e)
	}
	return nil
}

func binarySQL(b *strings.Builder, args *[]any, left, right Expr, sep string, columns map[string]string) error {
	b.WriteString("(")
	if err := writeSQL(b, args, left, columns); err != nil {
		return err
	}
	b.WriteString(sep)
	if err := writeSQL(b, args, right, columns); err != nil {
		return err
	}
	b.WriteString(")")
	return nil
}
