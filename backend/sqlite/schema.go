package sqlite

import (
	"fmt"
	"regexp"

	"github.com/viant/multivec/errs"
)

const catalogSchema = `
CREATE TABLE IF NOT EXISTS multivec_collections (
    name TEXT PRIMARY KEY,
    dim INTEGER NOT NULL
);
`

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkIdentifier(op, kind, name string) error {
	if !identifier.MatchString(name) {
		return errs.InvalidArgument(op, "invalid %s name %q", kind, name)
	}
	return nil
}

func (b *Backend) createTableSQL(collection string) string {
	s := b.config.Schema
	return fmt.Sprintf(`CREATE TABLE %q (
    %q INTEGER PRIMARY KEY,
    %q BLOB NOT NULL,
    %q INTEGER NOT NULL
)`, collection, s.IDField, s.VectorField, s.DocField)
}

func (b *Backend) docIndexSQL(collection string) string {
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (%q)`,
		collection+"_"+b.config.Schema.DocField, collection, b.config.Schema.DocField)
}
