package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for new hashes.
const DefaultCost = 10

// MaxBytes is the longest input bcrypt can hash.
const MaxBytes = 72

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	// MaxBytes caps input size. Values above 72 are clamped since bcrypt cannot hash more.
	MaxBytes int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Cost   int
	Policy Policy
}

func DefaultConfig() Config {
	return Config{
		Cost: DefaultCost,
		Policy: Policy{
			MinLength:      6,
			MaxBytes:       MaxBytes,
			RejectVeryWeak: false,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - CARAPI_BCRYPT_COST
// - CARAPI_PASSWORD_MIN_LEN
// - CARAPI_PASSWORD_REJECT_VERY_WEAK (true/false)
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("CARAPI_BCRYPT_COST"); ok {
		n, err := atoiRange(v, bcrypt.MinCost, 16)
		if err != nil {
			return Config{}, fmt.Errorf("CARAPI_BCRYPT_COST: %w", err)
		}
		cfg.Cost = n
	}

	if v, ok := os.LookupEnv("CARAPI_PASSWORD_MIN_LEN"); ok {
		n, err := atoiRange(v, 1, MaxBytes)
		if err != nil {
			return Config{}, fmt.Errorf("CARAPI_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("CARAPI_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := parseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("CARAPI_PASSWORD_REJECT_VERY_WEAK: %w", err)
		}
		cfg.Policy.RejectVeryWeak = b
	}

	return cfg, nil
}

func (c Config) cost() (int, error) {
	if c.Cost == 0 {
		return DefaultCost, nil
	}
	if c.Cost < bcrypt.MinCost || c.Cost > bcrypt.MaxCost {
		return 0, ErrInvalidCost
	}
	return c.Cost, nil
}

func (c Config) maxBytes() int {
	if c.Policy.MaxBytes <= 0 || c.Policy.MaxBytes > MaxBytes {
		return MaxBytes
	}
	return c.Policy.MaxBytes
}

func atoiRange(s string, minVal, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	i64, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}

	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean")
	}
}
