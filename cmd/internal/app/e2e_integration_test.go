//go:build integration

package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"carapi/cmd/internal/dbsession"
	"carapi/cmd/security/token"
)

type e2eClient struct {
	t    *testing.T
	base string
}

func (c e2eClient) do(method, path, body, bearer string) (int, envBody) {
	c.t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var env envBody
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func startE2E(t *testing.T) (e2eClient, *App) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("carapi"),
		postgres.WithUsername("carapi"),
		postgres.WithPassword("carapi"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, MigrateUp(connStr, log))

	cfg := testConfig()
	cfg.DatabaseURL = connStr
	cfg.DBMaxConns = 4
	pool, err := NewDBPool(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	tokens, err := token.NewService(token.DefaultConfig([]byte("0123456789abcdef0123456789abcdef")))
	require.NoError(t, err)

	a, err := assemble(cfg, log, dbsession.FromPgxPool(pool), tokens)
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return e2eClient{t: t, base: srv.URL}, a
}

func TestE2E_FullScenario(t *testing.T) {
	c, a := startE2E(t)

	// Registration and authentication.
	code, env := c.do(http.MethodPost, "/register", `{"username":"alice","password":"s3cret!"}`, "")
	require.Equal(t, http.StatusCreated, code, env.Message)
	var reg struct {
		JWT  string `json:"jwt"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reg))

	code, env = c.do(http.MethodPost, "/register", `{"username":"ALICE","password":"whatever1"}`, "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "duplicate_identity", env.Code)

	code, env = c.do(http.MethodPost, "/authenticate", `{"username":"alice","password":"s3cret!"}`, "")
	require.Equal(t, http.StatusOK, code)
	var auth struct {
		JWT string `json:"jwt"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &auth))

	code, env = c.do(http.MethodPost, "/authenticate", `{"username":"alice","password":"wrong!!"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid_credentials", env.Code)

	code, _ = c.do(http.MethodPost, "/register", `{"username":"bob","password":"hunter22"}`, "")
	require.Equal(t, http.StatusCreated, code)
	code, env = c.do(http.MethodPost, "/authenticate", `{"username":"bob","password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, code)
	var bobAuth struct {
		JWT string `json:"jwt"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &bobAuth))

	// Soft-delete lifecycle.
	code, env = c.do(http.MethodPost, "/cars", `{"make":"Honda","model":"Civic","year":2020}`, "")
	require.Equal(t, http.StatusCreated, code)
	var car struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &car))

	code, _ = c.do(http.MethodDelete, "/cars/"+car.ID, "", "")
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodDelete, "/cars/"+car.ID, "", "")
	require.Equal(t, http.StatusOK, code)

	_, env = c.do(http.MethodGet, "/cars", "", "")
	assert.JSONEq(t, `[]`, string(env.Data))

	code, env = c.do(http.MethodPut, "/cars/"+car.ID, `{"make":"Honda","model":"Civic","year":2021}`, "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"deleted_flag":true`)

	// Messages: latest per sender.
	for _, body := range []string{"first", "second"} {
		code, _ = c.do(http.MethodPost, "/messages", `{"to_user_id":"`+reg.User.ID+`","body":"`+body+`"}`, bobAuth.JWT)
		require.Equal(t, http.StatusCreated, code)
	}
	code, env = c.do(http.MethodGet, "/last-messages", "", auth.JWT)
	require.Equal(t, http.StatusOK, code)
	var last struct {
		LastMessages []struct {
			Body string `json:"body"`
		} `json:"lastMessages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &last))
	require.Len(t, last.LastMessages, 1)
	assert.Equal(t, "second", last.LastMessages[0].Body)

	code, env = c.do(http.MethodGet, "/last-messages", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "missing_authorization", env.Code)

	assert.Zero(t, a.sessions.InUse())
}

func TestE2E_SessionSettingsApplied(t *testing.T) {
	_, a := startE2E(t)

	err := a.sessions.Do(context.Background(), func(ctx context.Context, c dbsession.Conn) error {
		var tz, scs string
		if err := c.QueryRow(ctx, "SELECT current_setting('TimeZone'), current_setting('standard_conforming_strings')").Scan(&tz, &scs); err != nil {
			return err
		}
		assert.Equal(t, "on", scs)
		assert.Contains(t, tz, "08")
		return nil
	})
	require.NoError(t, err)
}

func TestE2E_ConcurrentRequestsReleaseSessions(t *testing.T) {
	c, a := startE2E(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodGet, c.base+"/cars", nil)
			resp, err := http.DefaultClient.Do(req)
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	acquired, released := a.sessions.Stats()
	assert.Equal(t, int64(32), acquired)
	assert.Equal(t, acquired, released)
	assert.Zero(t, a.sessions.InUse())
}
