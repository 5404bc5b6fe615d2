package authapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"carapi/cmd/internal/envelope"
	"carapi/cmd/security/token"
)

// Verifier checks a raw token and returns its claims.
type Verifier interface {
	Verify(raw string) (token.Claims, error)
}

// Gate rejects requests without a valid bearer token.
type Gate struct {
	tokens Verifier
	log    *slog.Logger
}

func NewGate(tokens Verifier, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{tokens: tokens, log: log}
}

type claimsKey struct{}

// ClaimsFromContext returns the claims attached by Gate.Require.
func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(token.Claims)
	return c, ok
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok || c.UserID == "" {
		return "", false
	}
	return c.UserID, true
}

// Require authorizes the request or answers 401 itself; next only runs for a verified token.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, code := bearerToken(r)
		if code != "" {
			g.reject(w, r, code, nil)
			return
		}

		claims, err := g.tokens.Verify(raw)
		if err != nil {
			g.reject(w, r, token.Code(err), err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

var rejectMessages = map[string]string{
	"missing_authorization": "missing authorization header",
	"invalid_scheme":        "authorization scheme must be Bearer",
	"malformed_token":       "malformed token",
	"invalid_signature":     "invalid token signature",
	"expired_token":         "token expired",
	"invalid_token":         "invalid token",
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, code string, err error) {
	g.log.Info("auth.gate.reject", "path", r.URL.Path, "code", code, "err", err)
	w.Header().Set("WWW-Authenticate", `Bearer realm="carapi"`)
	envelope.Fail(w, http.StatusUnauthorized, code, rejectMessages[code])
}

// bearerToken extracts the token, or returns the rejection code when the header is unusable.
func bearerToken(r *http.Request) (string, string) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", "missing_authorization"
	}
	scheme, rest, found := strings.Cut(raw, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid_scheme"
	}
	tok := strings.TrimSpace(rest)
	if !found || tok == "" {
		return "", "malformed_token"
	}
	return tok, ""
}
