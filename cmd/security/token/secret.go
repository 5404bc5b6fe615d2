package token

import (
	"os"
	"strings"
)

const (
	// SecretEnvKey is the env var name for the signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SecretEnvKey = "JWT_KEY"

	// MinSecretBytes is the recommended minimum secret size for HS256.
	MinSecretBytes = 32
)

// SecretFromEnv returns the trimmed secret stored under key, enforcing a minimum byte length.
// If the env var is missing/blank -> ErrSecretMissing.
// If too short -> ErrSecretTooShort.
func SecretFromEnv(key string, minBytes int) ([]byte, error) {
	if key == "" {
		key = SecretEnvKey
	}
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil, ErrSecretMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrSecretTooShort
	}
	return b, nil
}
