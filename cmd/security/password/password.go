package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hash validates password against the policy and returns a salted bcrypt hash.
// Each call draws a fresh salt, so equal inputs produce different hashes.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}
	cost, err := c.cost()
	if err != nil {
		return "", err
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(h), nil
}

// Verify checks whether password matches the given encoded hash.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for malformed/unsupported hashes.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	if encodedHash == "" {
		return false, ErrInvalidHash
	}
	if _, err := bcrypt.Cost([]byte(encodedHash)); err != nil {
		return false, ErrInvalidHash
	}
	// Inputs bcrypt could never have hashed cannot match.
	if len(password) > MaxBytes {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}

// NeedsRehash reports whether encodedHash was produced with a cost other than the configured one.
func (c Config) NeedsRehash(encodedHash string) bool {
	got, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return true
	}
	want, err := c.cost()
	if err != nil {
		return false
	}
	return got != want
}
