package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carapi/cmd/identity/ids"
	"carapi/cmd/internal/pgutil"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// Design notes:
// - The Querier is owned by the caller (normally the request-scoped connection).
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Errors are mapped to identity sentinel kinds.
type PostgresStore struct {
	q      Querier
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the Postgres schema used by the identity store (default "public").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		v, err := pgutil.CheckSchema("identity", schema)
		if err != nil {
			return err
		}
		s.schema = v
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore over q.
func NewPostgresStore(q Querier, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		q:      q,
		schema: pgutil.DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.q == nil {
		return nil, fmt.Errorf("identity: nil querier")
	}
	return st, nil
}

// CreateUser inserts a new user with an already-hashed password.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	username := strings.TrimSpace(in.Username)
	if err := ValidateUsername(username); err != nil {
		return User{}, invalid(op, "invalid username")
	}
	if in.PasswordHash == "" {
		return User{}, invalid(op, "password hash is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	userID, err := ids.NewULID(now)
	if err != nil {
		return User{}, storageErr(op, err)
	}
	norm := NormalizeUsername(username)

	users := pgutil.Ident(s.schema, "users")
	_, err = s.q.Exec(ctx,
		`INSERT INTO `+users+` (id, username, username_norm, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, username, norm, in.PasswordHash, now,
	)
	if err != nil {
		if c, ok := pgutil.UniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: conflictField(c)}
		}
		return User{}, storageErr(op, err)
	}

	return User{
		ID:           userID,
		Username:     username,
		UsernameNorm: norm,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
	}, nil
}

// FindByUsername looks a user up by normalized username.
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (User, error) {
	const op = "identity.FindByUsername"

	norm := NormalizeUsername(username)
	if norm == "" {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	users := pgutil.Ident(s.schema, "users")
	rows, err := s.q.Query(ctx,
		`SELECT id, username, username_norm, password_hash, created_at
		   FROM `+users+`
		  WHERE username_norm = $1
		  LIMIT 2`,
		norm,
	)
	if err != nil {
		return User{}, storageErr(op, err)
	}
	defer rows.Close()

	var (
		found []User
		u     User
	)
	for rows.Next() {
		if err := rows.Scan(&u.ID, &u.Username, &u.UsernameNorm, &u.PasswordHash, &u.CreatedAt); err != nil {
			return User{}, storageErr(op, err)
		}
		found = append(found, u)
	}
	if err := rows.Err(); err != nil {
		return User{}, storageErr(op, err)
	}

	switch len(found) {
	case 0:
		return User{}, NotFoundError{Op: op, Resource: "user"}
	case 1:
		return found[0], nil
	default:
		return User{}, OpError{Op: op, Kind: ErrIntegrity, Msg: "multiple users share a username"}
	}
}

// UpdatePasswordHash swaps in a fresh hash, e.g. after a cost change.
func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	const op = "identity.UpdatePasswordHash"

	if !ids.Valid(userID) {
		return NotFoundError{Op: op, Resource: "user"}
	}
	if passwordHash == "" {
		return invalid(op, "password hash is required")
	}

	users := pgutil.Ident(s.schema, "users")
	tag, err := s.q.Exec(ctx,
		`UPDATE `+users+` SET password_hash = $2 WHERE id = $1`,
		userID, passwordHash,
	)
	if err != nil {
		return storageErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

func conflictField(constraint string) string {
	switch {
	case constraint == "uq_users_username_norm", strings.Contains(constraint, "username"):
		return "username"
	case strings.Contains(constraint, "pkey"):
		return "id"
	default:
		return "unique"
	}
}
