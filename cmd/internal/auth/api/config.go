package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	MaxBodyBytes int64
	// ClaimFields lists registration fields copied into the token beside userId.
	// The password is never eligible.
	ClaimFields []string
	// Schema holds the users table.
	Schema string

	// MaxFailures failed logins per username within FailureWindow lock that
	// username out until the oldest failure ages out. Zero disables it.
	MaxFailures   int
	FailureWindow time.Duration
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxBodyBytes: envInt64("CARAPI_AUTH_MAX_BODY_BYTES", 64<<10),
		ClaimFields:  envList("CARAPI_AUTH_CLAIM_FIELDS", []string{"username"}),
		Schema:       strings.TrimSpace(os.Getenv("CARAPI_DB_SCHEMA")),

		MaxFailures:   int(envInt64("CARAPI_AUTH_MAX_FAILURES", 10)),
		FailureWindow: envDuration("CARAPI_AUTH_FAILURE_WINDOW", 15*time.Minute),
	}

	filtered := cfg.ClaimFields[:0]
	for _, f := range cfg.ClaimFields {
		if f == "username" {
			filtered = append(filtered, f)
		}
	}
	cfg.ClaimFields = filtered
	return cfg
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
