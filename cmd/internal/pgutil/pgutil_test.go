package pgutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdent(t *testing.T) {
	assert.Equal(t, `"public"."users"`, Ident("public", "users"))
	assert.Equal(t, `"we""ird"."cars"`, Ident(`we"ird`, "cars"))
}

func TestCheckSchema(t *testing.T) {
	s, err := CheckSchema("cars", "  carapi ")
	require.NoError(t, err)
	assert.Equal(t, "carapi", s)

	for _, bad := range []string{"", "   ", "1abc", "a-b", `x"; DROP`} {
		_, err := CheckSchema("cars", bad)
		assert.Error(t, err, "schema %q", bad)
	}
}

func TestClassifiers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "UQ_Users_Username_Norm"})
	c, ok := UniqueViolation(unique)
	assert.True(t, ok)
	assert.Equal(t, "uq_users_username_norm", c)

	_, ok = UniqueViolation(errors.New("plain"))
	assert.False(t, ok)

	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	assert.False(t, IsForeignKeyViolation(unique))
}
