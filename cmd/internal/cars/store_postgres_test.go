package cars

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	carCols  = []string{"id", "make", "model", "year", "deleted_flag", "created_at", "updated_at"}
)

const civicID = "01JNQ0000000000000000HC1VC"

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxConnIface) {
	t.Helper()
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mock.Close(context.Background()) })

	st, err := NewPostgresStore(mock, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return st, mock
}

func TestList(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxConnIface)
		check     func(t *testing.T, got []Car, err error)
	}{
		{
			name: "only live cars in id order",
			setupMock: func(mock pgxmock.PgxConnIface) {
				mock.ExpectQuery(`FROM "public"."cars"\s+WHERE deleted_flag = false\s+ORDER BY id`).
					WillReturnRows(pgxmock.NewRows(carCols).
						AddRow(civicID, "Honda", "Civic", 2020, false, fixedNow, fixedNow).
						AddRow("01JNQ0000000000000000T0Y0T", "Toyota", "Corolla", 2018, false, fixedNow, fixedNow))
			},
			check: func(t *testing.T, got []Car, err error) {
				require.NoError(t, err)
				require.Len(t, got, 2)
				assert.Equal(t, "Civic", got[0].Model)
				assert.Equal(t, 2018, got[1].Year)
			},
		},
		{
			name: "empty table returns an empty slice",
			setupMock: func(mock pgxmock.PgxConnIface) {
				mock.ExpectQuery(`SELECT id, make, model`).WillReturnRows(pgxmock.NewRows(carCols))
			},
			check: func(t *testing.T, got []Car, err error) {
				require.NoError(t, err)
				assert.NotNil(t, got)
				assert.Empty(t, got)
			},
		},
		{
			name: "query failure",
			setupMock: func(mock pgxmock.PgxConnIface) {
				mock.ExpectQuery(`SELECT id, make, model`).WillReturnError(errors.New("connection lost"))
			},
			check: func(t *testing.T, _ []Car, err error) {
				require.ErrorIs(t, err, ErrStorage)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, mock := newMockStore(t)
			tt.setupMock(mock)

			got, err := st.List(context.Background())
			tt.check(t, got, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreate(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO "public"."cars"`).
		WithArgs(pgxmock.AnyArg(), "Honda", "Civic", 2020, fixedNow).
		WillReturnRows(pgxmock.NewRows(carCols).
			AddRow(civicID, "Honda", "Civic", 2020, false, fixedNow, fixedNow))

	c, err := st.Create(context.Background(), CarInput{Make: "Honda", Model: "Civic", Year: 2020})
	require.NoError(t, err)
	assert.Equal(t, civicID, c.ID)
	assert.False(t, c.DeletedFlag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	t.Run("updates a soft-deleted car without reviving it", func(t *testing.T) {
		st, mock := newMockStore(t)

		mock.ExpectQuery(`UPDATE "public"."cars"\s+SET make = \$2, model = \$3, year = \$4, updated_at = \$5\s+WHERE id = \$1`).
			WithArgs(civicID, "Honda", "Civic", 2021, fixedNow).
			WillReturnRows(pgxmock.NewRows(carCols).
				AddRow(civicID, "Honda", "Civic", 2021, true, fixedNow, fixedNow))

		c, err := st.Update(context.Background(), civicID, CarInput{Make: "Honda", Model: "Civic", Year: 2021})
		require.NoError(t, err)
		assert.Equal(t, 2021, c.Year)
		assert.True(t, c.DeletedFlag)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id", func(t *testing.T) {
		st, mock := newMockStore(t)

		mock.ExpectQuery(`UPDATE "public"."cars"`).
			WithArgs("missing", "A", "B", 2000, fixedNow).
			WillReturnRows(pgxmock.NewRows(carCols))

		_, err := st.Update(context.Background(), "missing", CarInput{Make: "A", Model: "B", Year: 2000})
		require.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSoftDelete(t *testing.T) {
	tests := []struct {
		name    string
		result  func(e *pgxmock.ExpectedExec)
		wantErr error
	}{
		{
			name:   "flags the row",
			result: func(e *pgxmock.ExpectedExec) { e.WillReturnResult(pgxmock.NewResult("UPDATE", 1)) },
		},
		{
			name:    "unknown id",
			result:  func(e *pgxmock.ExpectedExec) { e.WillReturnResult(pgxmock.NewResult("UPDATE", 0)) },
			wantErr: ErrNotFound,
		},
		{
			name:    "driver failure",
			result:  func(e *pgxmock.ExpectedExec) { e.WillReturnError(errors.New("deadlock")) },
			wantErr: ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, mock := newMockStore(t)
			tt.result(mock.ExpectExec(`SET deleted_flag = true`).WithArgs(civicID, fixedNow))

			err := st.SoftDelete(context.Background(), civicID)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNewPostgresStore_Validation(t *testing.T) {
	_, err := NewPostgresStore(nil)
	require.Error(t, err)

	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	_, err = NewPostgresStore(mock, WithSchema("no spaces"))
	require.Error(t, err)
}

func TestCarRequestValidate(t *testing.T) {
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }

	tests := []struct {
		name    string
		req     carRequest
		wantMsg string
		want    CarInput
	}{
		{name: "valid", req: carRequest{Make: str(" Honda "), Model: str("Civic"), Year: num(2020)}, want: CarInput{Make: "Honda", Model: "Civic", Year: 2020}},
		{name: "next model year", req: carRequest{Make: str("Honda"), Model: str("Civic"), Year: num(2027)}, want: CarInput{Make: "Honda", Model: "Civic", Year: 2027}},
		{name: "missing make", req: carRequest{Model: str("Civic"), Year: num(2020)}, wantMsg: "make is required"},
		{name: "blank model", req: carRequest{Make: str("Honda"), Model: str("  "), Year: num(2020)}, wantMsg: "model must not be empty"},
		{name: "missing year", req: carRequest{Make: str("Honda"), Model: str("Civic")}, wantMsg: "year is required"},
		{name: "too old", req: carRequest{Make: str("Benz"), Model: str("Wagen"), Year: num(1885)}, wantMsg: "year must be between 1886 and 2027"},
		{name: "too new", req: carRequest{Make: str("Honda"), Model: str("Civic"), Year: num(2028)}, wantMsg: "year must be between 1886 and 2027"},
		{name: "make too long", req: carRequest{Make: str(string(make([]rune, 65))), Model: str("x"), Year: num(2020)}, wantMsg: "make must be at most 64 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := tt.req.validate(fixedNow)
			assert.Equal(t, tt.wantMsg, msg)
			if tt.wantMsg == "" {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
