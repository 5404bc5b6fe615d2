package identity

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// User is a registered account.
// PasswordHash is a bcrypt string and must never leave the service.
type User struct {
	ID           string
	Username     string
	UsernameNorm string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUserInput describes a registration. PasswordHash is already hashed.
type CreateUserInput struct {
	Username     string
	PasswordHash string
	Now          time.Time
}

// Querier is the subset of a pgx connection the store needs.
// The request-scoped connection satisfies it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the credential persistence boundary.
type Store interface {
	// CreateUser returns a ConflictError when the normalized username is taken.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// FindByUsername returns ErrNotFound when no user matches and ErrIntegrity when more than one does.
	FindByUsername(ctx context.Context, username string) (User, error)

	// UpdatePasswordHash replaces the stored hash; ErrNotFound when the user is gone.
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}
