package cars

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carapi/cmd/internal/dbsession"
)

type envelopeBody struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func newTestMux(t *testing.T, mock pgxmock.PgxConnIface) *http.ServeMux {
	t.Helper()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), 0,
		WithHandlerClock(func() time.Time { return fixedNow }))

	mux := http.NewServeMux()
	h.Register(mux, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(dbsession.WithConn(r.Context(), mock)))
		})
	})
	return mux
}

func do(t *testing.T, mux http.Handler, method, target, body string) (int, envelopeBody) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(method, target, rdr))

	var env envelopeBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), "body: %s", rr.Body.String())
	return rr.Code, env
}

func TestHandler_CivicLifecycle(t *testing.T) {
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	defer func() { _ = mock.Close(context.Background()) }()
	mux := newTestMux(t, mock)

	// Create.
	mock.ExpectQuery(`INSERT INTO "public"."cars"`).
		WithArgs(pgxmock.AnyArg(), "Honda", "Civic", 2020, fixedNow).
		WillReturnRows(pgxmock.NewRows(carCols).AddRow(civicID, "Honda", "Civic", 2020, false, fixedNow, fixedNow))
	code, env := do(t, mux, http.MethodPost, "/cars", `{"make":"Honda","model":"Civic","year":2020}`)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)
	var created Car
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, civicID, created.ID)

	// Listed while live.
	mock.ExpectQuery(`WHERE deleted_flag = false`).
		WillReturnRows(pgxmock.NewRows(carCols).AddRow(civicID, "Honda", "Civic", 2020, false, fixedNow, fixedNow))
	code, env = do(t, mux, http.MethodGet, "/cars", "")
	require.Equal(t, http.StatusOK, code)
	var listed []Car
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)

	// Soft delete.
	mock.ExpectExec(`SET deleted_flag = true`).WithArgs(civicID, fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	code, env = do(t, mux, http.MethodDelete, "/cars/"+civicID, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":"`+civicID+`","deleted":true}`, string(env.Data))

	// Hidden from the list.
	mock.ExpectQuery(`WHERE deleted_flag = false`).WillReturnRows(pgxmock.NewRows(carCols))
	code, env = do(t, mux, http.MethodGet, "/cars", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))

	// Still addressable for update, and stays deleted.
	mock.ExpectQuery(`UPDATE "public"."cars"`).
		WithArgs(civicID, "Honda", "Civic", 2021, fixedNow).
		WillReturnRows(pgxmock.NewRows(carCols).AddRow(civicID, "Honda", "Civic", 2021, true, fixedNow, fixedNow))
	code, env = do(t, mux, http.MethodPut, "/cars/"+civicID, `{"make":"Honda","model":"Civic","year":2021}`)
	require.Equal(t, http.StatusOK, code)
	var updated Car
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, 2021, updated.Year)
	assert.True(t, updated.DeletedFlag)

	// Deleting again succeeds.
	mock.ExpectExec(`SET deleted_flag = true`).WithArgs(civicID, fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	code, _ = do(t, mux, http.MethodDelete, "/cars/"+civicID, "")
	require.Equal(t, http.StatusOK, code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		setup    func(mock pgxmock.PgxConnIface)
		wantCode int
		wantErr  string
	}{
		{name: "invalid json", method: http.MethodPost, target: "/cars", body: `{"make":`, wantCode: 400, wantErr: "invalid_json"},
		{name: "unknown field", method: http.MethodPost, target: "/cars", body: `{"make":"a","model":"b","year":2000,"color":"red"}`, wantCode: 400, wantErr: "invalid_json"},
		{name: "empty body", method: http.MethodPost, target: "/cars", wantCode: 400, wantErr: "invalid_json"},
		{name: "missing year", method: http.MethodPost, target: "/cars", body: `{"make":"a","model":"b"}`, wantCode: 400, wantErr: "invalid_request"},
		{name: "malformed id on update", method: http.MethodPut, target: "/cars/42", body: `{"make":"a","model":"b","year":2000}`, wantCode: 404, wantErr: "not_found"},
		{name: "malformed id on delete", method: http.MethodDelete, target: "/cars/nope", wantCode: 404, wantErr: "not_found"},
		{
			name: "unknown id on update", method: http.MethodPut, target: "/cars/" + civicID, body: `{"make":"a","model":"b","year":2000}`,
			setup: func(mock pgxmock.PgxConnIface) {
				mock.ExpectQuery(`UPDATE "public"."cars"`).WillReturnRows(pgxmock.NewRows(carCols))
			},
			wantCode: 404, wantErr: "not_found",
		},
		{
			name: "unknown id on delete", method: http.MethodDelete, target: "/cars/" + civicID,
			setup: func(mock pgxmock.PgxConnIface) {
				mock.ExpectExec(`SET deleted_flag = true`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantCode: 404, wantErr: "not_found",
		},
		{
			name: "storage failure", method: http.MethodGet, target: "/cars",
			setup: func(mock pgxmock.PgxConnIface) {
				mock.ExpectQuery(`SELECT`).WillReturnError(io.ErrUnexpectedEOF)
			},
			wantCode: 500, wantErr: "storage_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewConn()
			require.NoError(t, err)
			if tt.setup != nil {
				tt.setup(mock)
			}

			code, env := do(t, newTestMux(t, mock), tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantErr, env.Code)
			assert.Equal(t, "null", string(env.Data))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_WithoutSessionFailsClosed(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	mux := http.NewServeMux()
	h.Register(mux, nil)

	code, env := do(t, mux, http.MethodGet, "/cars", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal_error", env.Code)
}
