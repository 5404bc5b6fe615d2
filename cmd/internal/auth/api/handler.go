package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"carapi/cmd/identity"
	"carapi/cmd/internal/dbsession"
	"carapi/cmd/internal/envelope"
	"carapi/cmd/security/password"
	"carapi/cmd/security/token"
)

// Issuer signs session tokens.
type Issuer interface {
	Issue(c token.Claims) (string, error)
}

// Handler wires the credential endpoints to the identity store and token service.
type Handler struct {
	log       *slog.Logger
	cfg       Config
	passwords password.Config
	tokens    Issuer
	now       func() time.Time
	failures  *failureLimiter

	dummyHash string
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithClock overrides the time source for created_at stamps.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, passwords password.Config, tokens Issuer, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if tokens == nil {
		return nil, errors.New("auth: nil token issuer")
	}

	h := &Handler{
		log:       log,
		cfg:       cfg,
		passwords: passwords,
		tokens:    tokens,
		now:       func() time.Time { return time.Now().UTC() },
		failures:  newFailureLimiter(cfg.MaxFailures, cfg.FailureWindow),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}

	// Dummy hash for timing-resistant login checks.
	dummyCfg := passwords
	dummyCfg.Policy = password.Policy{MinLength: 1}
	hash, err := dummyCfg.Hash("dummy-password-for-timing-only")
	if err != nil {
		return nil, err
	}
	h.dummyHash = hash

	return h, nil
}

// Register wires auth routes onto mux. scope must attach a request session.
func (h *Handler) Register(mux *http.ServeMux, scope func(http.Handler) http.Handler) {
	if h == nil || mux == nil {
		return
	}
	mux.Handle("POST /register", scope(http.HandlerFunc(h.handleRegister)))
	mux.Handle("POST /authenticate", scope(http.HandlerFunc(h.handleAuthenticate)))
}

func (h *Handler) store(ctx context.Context) (identity.Store, error) {
	conn, ok := dbsession.ConnFrom(ctx)
	if !ok {
		return nil, dbsession.ErrNoConn
	}
	var opts []identity.PostgresOption
	if h.cfg.Schema != "" {
		opts = append(opts, identity.WithSchema(h.cfg.Schema))
	}
	return identity.NewPostgresStore(conn, opts...)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := envelope.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		envelope.Fail(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username, pw, ok := normalizeCredentials(req)
	if !ok {
		envelope.Fail(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}
	if err := identity.ValidateUsername(username); err != nil {
		envelope.Fail(w, http.StatusBadRequest, "invalid_request", "invalid username")
		return
	}
	if err := h.passwords.Validate(pw); err != nil {
		envelope.Fail(w, http.StatusBadRequest, "invalid_request", passwordMessage(err))
		return
	}

	ctx := r.Context()
	st, err := h.store(ctx)
	if err != nil {
		h.log.Error("auth.register.store.fail", "err", err)
		envelope.Fail(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	hash, err := h.passwords.Hash(pw)
	if err != nil {
		h.log.Error("auth.register.hash.fail", "err", err)
		envelope.Fail(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	user, err := st.CreateUser(ctx, identity.CreateUserInput{
		Username:     username,
		PasswordHash: hash,
		Now:          h.now(),
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			h.audit(ctx, "auth.register.failed", "", username, "duplicate")
			envelope.Fail(w, http.StatusConflict, "duplicate_identity", "username already taken")
		case identity.IsInvalidInput(err):
			envelope.Fail(w, http.StatusBadRequest, "invalid_request", "invalid username")
		default:
			h.log.Error("auth.register.create.fail", "err", err)
			envelope.Fail(w, http.StatusInternalServerError, "storage_error", "storage error")
		}
		return
	}

	jwt, err := h.tokens.Issue(claimsFor(user, h.cfg.ClaimFields))
	if err != nil {
		h.log.Error("auth.register.issue.fail", "err", err)
		envelope.Fail(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	h.audit(ctx, "auth.register.success", user.ID, username, "")
	envelope.OK(w, http.StatusCreated, "registered", registerResponse{JWT: jwt, User: toUserResponse(user)})
}

func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := envelope.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		envelope.Fail(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username, pw, ok := normalizeCredentials(req)
	if !ok {
		envelope.Fail(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	ctx := r.Context()
	key := identity.NormalizeUsername(username)
	if allowed, wait := h.failures.Begin(key, h.now()); !allowed {
		h.audit(ctx, "auth.authenticate.failed", "", username, "throttled")
		w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		envelope.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	st, err := h.store(ctx)
	if err != nil {
		h.log.Error("auth.authenticate.store.fail", "err", err)
		envelope.Fail(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	user, err := st.FindByUsername(ctx, username)
	if err != nil {
		if identity.IsNotFound(err) {
			// Timing resistance: perform a dummy verify when user is missing.
			_, _ = h.passwords.Verify(h.dummyHash, pw)
			h.audit(ctx, "auth.authenticate.failed", "", username, "not_found")
			writeInvalidCredentials(w)
			return
		}
		h.log.Error("auth.authenticate.lookup.fail", "err", err, "integrity", identity.IsIntegrity(err))
		envelope.Fail(w, http.StatusInternalServerError, "storage_error", "storage error")
		return
	}

	okPw, err := h.passwords.Verify(user.PasswordHash, pw)
	if err != nil || !okPw {
		if err != nil {
			h.log.Error("auth.authenticate.stored_hash.invalid", "user_id", user.ID)
		}
		h.audit(ctx, "auth.authenticate.failed", user.ID, username, "bad_password")
		writeInvalidCredentials(w)
		return
	}

	h.rehashIfStale(ctx, st, user, pw)

	jwt, err := h.tokens.Issue(claimsFor(user, h.cfg.ClaimFields))
	if err != nil {
		h.log.Error("auth.authenticate.issue.fail", "err", err)
		envelope.Fail(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	h.failures.Reset(key)
	h.audit(ctx, "auth.authenticate.success", user.ID, username, "")
	envelope.OK(w, http.StatusOK, "authenticated", authenticateResponse{JWT: jwt})
}

// ---- helpers ----

// rehashIfStale upgrades a verified hash made with another cost. Failures only log;
// the login itself already succeeded.
func (h *Handler) rehashIfStale(ctx context.Context, st identity.Store, user identity.User, pw string) {
	if !h.passwords.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := h.passwords.Hash(pw)
	if err != nil {
		h.log.Warn("auth.authenticate.rehash.skip", "user_id", user.ID, "err", err)
		return
	}
	if err := st.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		h.log.Warn("auth.authenticate.rehash.fail", "user_id", user.ID, "err", err)
		return
	}
	h.log.Info("auth.authenticate.rehash.ok", "user_id", user.ID)
}

// writeInvalidCredentials is the single answer for unknown users and wrong passwords.
func writeInvalidCredentials(w http.ResponseWriter) {
	envelope.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
}

func passwordMessage(err error) string {
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return "password too short"
	case errors.Is(err, password.ErrPasswordTooLong):
		return "password too long"
	case errors.Is(err, password.ErrWeakPassword):
		return "password too weak"
	default:
		return "invalid password"
	}
}
