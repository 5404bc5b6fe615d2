package dbsession

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Conn is the query surface handed to request handlers and stores.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Lease is a pooled connection that must be returned with Release.
type Lease interface {
	Conn
	Release()
}

// Pool hands out leases. Implementations must be safe for concurrent use.
type Pool interface {
	Acquire(ctx context.Context) (Lease, error)
}

type pgxPool struct {
	pool *pgxpool.Pool
}

// FromPgxPool adapts a pgx pool to Pool. The caller keeps ownership of the pool.
func FromPgxPool(p *pgxpool.Pool) Pool {
	return pgxPool{pool: p}
}

func (p pgxPool) Acquire(ctx context.Context) (Lease, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}
