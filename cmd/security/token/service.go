package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimUserID is the claim carrying the authenticated user's id.
const ClaimUserID = "userId"

// Registered and service-owned claim names; Extra can never override them.
var reservedClaims = map[string]struct{}{
	ClaimUserID: {},
	"iss":       {},
	"sub":       {},
	"aud":       {},
	"exp":       {},
	"nbf":       {},
	"iat":       {},
	"jti":       {},
}

// Config controls issuance and verification.
type Config struct {
	Secret []byte
	Issuer string
	// TTL sets exp on issued tokens. Zero issues tokens without expiry.
	TTL time.Duration
	// Leeway tolerates clock skew when checking exp and iat.
	Leeway time.Duration
}

func DefaultConfig(secret []byte) Config {
	return Config{
		Secret: secret,
		Issuer: "carapi",
		TTL:    24 * time.Hour,
		Leeway: 30 * time.Second,
	}
}

// Claims is the verified (or to-be-issued) token payload.
type Claims struct {
	UserID string
	// Extra holds additional non-reserved claims, e.g. username.
	Extra map[string]any

	IssuedAt  time.Time
	ExpiresAt time.Time // zero when the token never expires
}

// Service issues and verifies HS256 tokens. It is safe for concurrent use.
type Service struct {
	cfg Config
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrSecretMissing
	}
	if cfg.TTL < 0 {
		return nil, errors.New("token: negative TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 5*time.Minute {
		return nil, errors.New("token: invalid leeway")
	}

	s := &Service{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Issue signs c. UserID is required; reserved names in Extra are ignored.
func (s *Service) Issue(c Claims) (string, error) {
	if c.UserID == "" {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidToken)
	}

	now := s.now().UTC()
	mc := jwt.MapClaims{}
	for k, v := range c.Extra {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		mc[k] = v
	}
	mc[ClaimUserID] = c.UserID
	mc["iat"] = jwt.NewNumericDate(now)
	if s.cfg.Issuer != "" {
		mc["iss"] = s.cfg.Issuer
	}
	if s.cfg.TTL > 0 {
		mc["exp"] = jwt.NewNumericDate(now.Add(s.cfg.TTL))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, then decodes and validates the claims.
func (s *Service) Verify(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrMalformedToken
	}

	popts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
		jwt.WithLeeway(s.cfg.Leeway),
		jwt.WithIssuedAt(),
	}
	if s.cfg.Issuer != "" {
		popts = append(popts, jwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.TTL > 0 {
		popts = append(popts, jwt.WithExpirationRequired())
	}

	mc := jwt.MapClaims{}
	_, err := jwt.NewParser(popts...).ParseWithClaims(raw, mc, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}

	uid, ok := mc[ClaimUserID].(string)
	if !ok || uid == "" {
		return Claims{}, fmt.Errorf("%w: missing %s", ErrInvalidToken, ClaimUserID)
	}

	out := Claims{UserID: uid, Extra: map[string]any{}}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	for k, v := range mc {
		if _, reserved := reservedClaims[k]; !reserved {
			out.Extra[k] = v
		}
	}
	return out, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}
