package cars

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"carapi/cmd/identity/ids"
	"carapi/cmd/internal/dbsession"
	"carapi/cmd/internal/pgutil"
)

// Store is the car persistence boundary.
type Store interface {
	List(ctx context.Context) ([]Car, error)
	Create(ctx context.Context, in CarInput) (Car, error)
	Update(ctx context.Context, id string, in CarInput) (Car, error)
	SoftDelete(ctx context.Context, id string) error
}

// PostgresStore runs car queries on one scoped connection.
type PostgresStore struct {
	q      dbsession.Conn
	schema string
	now    func() time.Time
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the Postgres schema holding the cars table (default "public").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		v, err := pgutil.CheckSchema("cars", schema)
		if err != nil {
			return err
		}
		s.schema = v
		return nil
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) PostgresOption {
	return func(s *PostgresStore) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

func NewPostgresStore(q dbsession.Conn, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		q:      q,
		schema: pgutil.DefaultSchema,
		now:    func() time.Time { return time.Now().UTC() },
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
		return nil, fmt.Errorf("cars: nil querier")
	}
	return st, nil
}

const carColumns = `id, make, model, year, deleted_flag, created_at, updated_at`

func scanCar(row pgx.CollectableRow) (Car, error) {
	var c Car
	err := row.Scan(&c.ID, &c.Make, &c.Model, &c.Year, &c.DeletedFlag, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// List returns every car whose deleted_flag is false, oldest first.
func (s *PostgresStore) List(ctx context.Context) ([]Car, error) {
	const op = "cars.List"

	rows, err := s.q.Query(ctx,
		`SELECT `+carColumns+`
		   FROM `+pgutil.Ident(s.schema, "cars")+`
		  WHERE deleted_flag = false
		  ORDER BY id`,
	)
	if err != nil {
		return nil, opErr(op, ErrStorage, err)
	}
	out, err := pgx.CollectRows(rows, scanCar)
	if err != nil {
		return nil, opErr(op, ErrStorage, err)
	}
	if out == nil {
		out = []Car{}
	}
	return out, nil
}

// Create inserts a live car.
func (s *PostgresStore) Create(ctx context.Context, in CarInput) (Car, error) {
	const op = "cars.Create"

	now := s.now()
	id, err := ids.NewULID(now)
	if err != nil {
		return Car{}, opErr(op, ErrStorage, err)
	}

	rows, err := s.q.Query(ctx,
		`INSERT INTO `+pgutil.Ident(s.schema, "cars")+` (id, make, model, year, deleted_flag, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, false, $5, $5)
		 RETURNING `+carColumns,
		id, in.Make, in.Model, in.Year, now,
	)
	if err != nil {
		return Car{}, opErr(op, ErrStorage, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCar)
	if err != nil {
		return Car{}, opErr(op, ErrStorage, err)
	}
	return c, nil
}

// Update replaces make, model and year. Soft-deleted cars are updated too and stay deleted.
func (s *PostgresStore) Update(ctx context.Context, id string, in CarInput) (Car, error) {
	const op = "cars.Update"

	rows, err := s.q.Query(ctx,
		`UPDATE `+pgutil.Ident(s.schema, "cars")+`
		    SET make = $2, model = $3, year = $4, updated_at = $5
		  WHERE id = $1
		 RETURNING `+carColumns,
		id, in.Make, in.Model, in.Year, s.now(),
	)
	if err != nil {
		return Car{}, opErr(op, ErrStorage, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCar)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Car{}, opErr(op, ErrNotFound, nil)
		}
		return Car{}, opErr(op, ErrStorage, err)
	}
	return c, nil
}

// SoftDelete sets deleted_flag. Repeating it is a no-op that still succeeds.
func (s *PostgresStore) SoftDelete(ctx context.Context, id string) error {
	const op = "cars.SoftDelete"

	tag, err := s.q.Exec(ctx,
		`UPDATE `+pgutil.Ident(s.schema, "cars")+`
		    SET deleted_flag = true,
		        updated_at = CASE WHEN deleted_flag THEN updated_at ELSE $2 END
		  WHERE id = $1`,
		id, s.now(),
	)
	if err != nil {
		return opErr(op, ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return opErr(op, ErrNotFound, nil)
	}
	return nil
}
