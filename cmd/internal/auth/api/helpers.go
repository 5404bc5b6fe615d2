package authapi

import (
	"strings"

	"carapi/cmd/identity"
	"carapi/cmd/security/token"
)

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

// claimsFor builds token claims from the allow-listed fields only.
func claimsFor(u identity.User, fields []string) token.Claims {
	c := token.Claims{UserID: u.ID, Extra: map[string]any{}}
	for _, f := range fields {
		if f == "username" {
			c.Extra["username"] = u.Username
		}
	}
	return c
}

func normalizeCredentials(req credentialsRequest) (username, password string, ok bool) {
	if req.Username == nil || req.Password == nil {
		return "", "", false
	}
	username = strings.TrimSpace(*req.Username)
	password = *req.Password
	if username == "" || password == "" {
		return "", "", false
	}
	return username, password, true
}
