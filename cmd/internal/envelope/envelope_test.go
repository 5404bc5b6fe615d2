package envelope

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOK_WritesSuccessEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	OK(rr, http.StatusCreated, "", map[string]string{"id": "x"})

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, true, got["success"])
	assert.Equal(t, "ok", got["message"])
	assert.NotContains(t, got, "code")
	assert.Equal(t, map[string]any{"id": "x"}, got["data"])
}

func TestFail_DataIsNull(t *testing.T) {
	rr := httptest.NewRecorder()
	Fail(rr, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")

	require.Equal(t, http.StatusUnauthorized, rr.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, false, got["success"])
	assert.Equal(t, "invalid_credentials", got["code"])
	assert.Contains(t, got, "data")
	assert.Nil(t, got["data"])
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	cases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "valid", in: `{"name":"a"}`},
		{name: "unknown field", in: `{"name":"a","extra":1}`, wantErr: true},
		{name: "trailing data", in: `{"name":"a"}{"name":"b"}`, wantErr: true},
		{name: "empty", in: ``, wantErr: true},
		{name: "not json", in: `name=a`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.in))
			rr := httptest.NewRecorder()

			var dst body
			err := DecodeJSON(rr, req, 0, &dst)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a", dst.Name)
		})
	}
}

func TestDecodeJSON_BodyLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))
	rr := httptest.NewRecorder()

	var dst struct {
		Name string `json:"name"`
	}
	require.Error(t, DecodeJSON(rr, req, 16, &dst))
}
