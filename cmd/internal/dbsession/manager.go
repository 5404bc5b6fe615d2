package dbsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"carapi/cmd/internal/envelope"
)

// Manager opens request-scoped sessions over a shared pool.
type Manager struct {
	pool       Pool
	statements []string
	log        *slog.Logger
	metrics    *Metrics

	inUse    atomic.Int64
	acquired atomic.Int64
	released atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager) error

// WithLogger sets the logger used for open failures.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) error {
		if log != nil {
			m.log = log
		}
		return nil
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) error {
		m.metrics = metrics
		return nil
	}
}

// WithTimeZone overrides the fixed session time-zone offset.
func WithTimeZone(offset string) Option {
	return func(m *Manager) error {
		stmts, err := SessionStatements(offset)
		if err != nil {
			return err
		}
		m.statements = stmts
		return nil
	}
}

// NewManager constructs a Manager. The pool is owned by the caller.
func NewManager(pool Pool, opts ...Option) (*Manager, error) {
	if pool == nil {
		return nil, errors.New("dbsession: nil pool")
	}

	stmts, err := SessionStatements(DefaultTimeZone)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		pool:       pool,
		statements: stmts,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Session is one acquired, configured connection.
type Session struct {
	lease    Lease
	m        *Manager
	released atomic.Bool
}

// Conn returns the scoped connection. It must not be used after Release.
func (s *Session) Conn() Conn { return s.lease }

// Release returns the connection to the pool. Only the first call has an effect.
func (s *Session) Release() {
	if s == nil || !s.released.CompareAndSwap(false, true) {
		return
	}
	s.lease.Release()
	s.m.inUse.Add(-1)
	s.m.released.Add(1)
	s.m.metrics.observeRelease()
}

// Open acquires a connection and applies the session settings.
// On a settings failure the connection is released before returning.
func (m *Manager) Open(ctx context.Context) (*Session, error) {
	start := time.Now()
	lease, err := m.pool.Acquire(ctx)
	if err != nil {
		m.metrics.observeFailure(ReasonAcquire)
		return nil, fmt.Errorf("%w: %w", ErrAcquire, err)
	}
	m.inUse.Add(1)
	m.acquired.Add(1)
	m.metrics.observeAcquire(time.Since(start))

	s := &Session{lease: lease, m: m}
	for _, stmt := range m.statements {
		if _, err := lease.Exec(ctx, stmt); err != nil {
			s.Release()
			m.metrics.observeFailure(ReasonSetup)
			return nil, fmt.Errorf("%w: %w", ErrSetup, err)
		}
	}
	return s, nil
}

// Do runs fn inside a scoped session and always releases it.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context, c Conn) error) error {
	s, err := m.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Release()
	return fn(ctx, s.Conn())
}

// Middleware scopes one session to each request passing through next.
// If the session cannot be opened the request is answered with 503 and next is not called.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Open(r.Context())
		if err != nil {
			m.log.Error("dbsession.open.fail", "path", r.URL.Path, "err", err)
			envelope.Fail(w, http.StatusServiceUnavailable, "db_unavailable", "database unavailable")
			return
		}
		// Runs on normal return, on panic, and after client cancellation.
		defer s.Release()

		next.ServeHTTP(w, r.WithContext(WithConn(r.Context(), s.Conn())))
	})
}

// InUse reports sessions currently held.
func (m *Manager) InUse() int64 { return m.inUse.Load() }

// Stats reports lifetime acquire and release counts.
func (m *Manager) Stats() (acquired, released int64) {
	return m.acquired.Load(), m.released.Load()
}

type connKey struct{}

// WithConn attaches a scoped connection to ctx.
func WithConn(ctx context.Context, c Conn) context.Context {
	return context.WithValue(ctx, connKey{}, c)
}

// ConnFrom returns the scoped connection attached by the session middleware.
func ConnFrom(ctx context.Context) (Conn, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(connKey{}).(Conn)
	return c, ok && c != nil
}
