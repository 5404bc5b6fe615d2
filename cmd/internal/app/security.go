package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"carapi/cmd/security/token"
)

// ValidateSecurityConfig enforces the token policy at startup and returns the signing secret.
// A missing secret always fails. A short one fails only when RequireStrongSecret is set.
func ValidateSecurityConfig(cfg Config, log *slog.Logger) ([]byte, error) {
	minBytes := 0
	if cfg.RequireStrongSecret {
		minBytes = token.MinSecretBytes
	}

	secret, err := token.SecretFromEnv(cfg.JWTKeyEnv, minBytes)
	switch {
	case errors.Is(err, token.ErrSecretMissing):
		return nil, fmt.Errorf("security policy: %s is not set", keyName(cfg))
	case errors.Is(err, token.ErrSecretTooShort):
		return nil, fmt.Errorf("security policy: CARAPI_REQUIRE_STRONG_SECRET=true but %s is shorter than %d bytes",
			keyName(cfg), token.MinSecretBytes)
	case err != nil:
		return nil, err
	}

	if len(secret) < token.MinSecretBytes && log != nil {
		log.Warn("security.jwt_key.short", "bytes", len(secret), "recommended", token.MinSecretBytes)
	}
	if cfg.TokenTTL < 0 {
		return nil, errors.New("security policy: CARAPI_TOKEN_TTL must not be negative")
	}
	if cfg.TokenTTL == 0 && log != nil {
		log.Warn("security.token_ttl.disabled")
	}
	if cfg.TokenLeeway > 5*time.Minute {
		return nil, errors.New("security policy: CARAPI_TOKEN_LEEWAY must be at most 5m")
	}
	return secret, nil
}

func keyName(cfg Config) string {
	if cfg.JWTKeyEnv == "" {
		return token.SecretEnvKey
	}
	return cfg.JWTKeyEnv
}

// newTokenService builds the process-wide token service from config.
func newTokenService(cfg Config, secret []byte) (*token.Service, error) {
	tcfg := token.DefaultConfig(secret)
	tcfg.Issuer = cfg.TokenIssuer
	tcfg.TTL = cfg.TokenTTL
	tcfg.Leeway = cfg.TokenLeeway
	return token.NewService(tcfg)
}
