// Package pgutil holds the small Postgres helpers shared by the stores.
package pgutil

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultSchema is the schema the stores use unless configured otherwise.
const DefaultSchema = "public"

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// IdentIsValid checks if s is a safe, unquoted Postgres identifier.
func IdentIsValid(s string) bool { return identRe.MatchString(s) }

// Ident safely quotes a schema-qualified identifier: "schema"."name".
func Ident(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

// CheckSchema trims and validates a schema name for a store option.
func CheckSchema(pkg, schema string) (string, error) {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return "", fmt.Errorf("%s: empty schema", pkg)
	}
	if !IdentIsValid(schema) {
		return "", fmt.Errorf("%s: invalid schema identifier", pkg)
	}
	return schema, nil
}

// UniqueViolation reports the violated constraint name when err is a unique_violation.
func UniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(pgErr.ConstraintName)), true
}

// IsForeignKeyViolation reports whether err is a foreign_key_violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
