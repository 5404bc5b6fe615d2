// Package app wires the carapi server runtime: config, logging, HTTP routes, and the request session layer.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	authapi "carapi/cmd/internal/auth/api"
	"carapi/cmd/internal/cars"
	"carapi/cmd/internal/dbsession"
	"carapi/cmd/internal/messages"
	"carapi/cmd/internal/schema"
	"carapi/cmd/security/password"
	"carapi/cmd/security/token"
)

// App is the carapi server runtime: it owns the pool, the session manager and the HTTP handler chain.
type App struct {
	cfg Config
	log Logger

	pool     *pgxpool.Pool
	sessions *dbsession.Manager
	handler  http.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	secret, err := ValidateSecurityConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	tokens, err := newTokenService(cfg, secret)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := MigrateUp(cfg.DatabaseURL, log); err != nil {
			return nil, err
		}
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a, err := assemble(cfg, log, dbsession.FromPgxPool(pool), tokens)
	if err != nil {
		pool.Close()
		return nil, err
	}
	a.pool = pool
	return a, nil
}

// assemble builds everything above the pool. Tests pass a fake pool.
func assemble(cfg Config, log Logger, pool dbsession.Pool, tokens *token.Service) (*App, error) {
	reg := newRegistry()

	sessions, err := dbsession.NewManager(pool,
		dbsession.WithLogger(log),
		dbsession.WithMetrics(dbsession.NewMetrics(reg)),
		dbsession.WithTimeZone(cfg.DBTimeZone),
	)
	if err != nil {
		return nil, err
	}

	passwords, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	authCfg := authapi.LoadConfigFromEnv()
	auth, err := authapi.NewHandler(log, authCfg, passwords, tokens)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerHTTP(mux, routeDeps{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		gate:     authapi.NewGate(tokens, log),
		auth:     auth,
		cars:     cars.NewHandler(log, cfg.MaxBodyBytes, cars.WithHandlerSchema(authCfg.Schema)),
		messages: messages.NewHandler(log, authapi.UserIDFromContext, authCfg.Schema, cfg.MaxBodyBytes),
		registry: reg,
	})

	h := withRouteFallback(mux)
	h = WithCORS(h, cfg, log)
	h = WithSecurityHeaders(h)
	h = WithRecover(h, log)
	h = newHTTPMetrics(reg).WithMetrics(h)
	h = WithRequestLogging(h, log)
	h = WithRequestID(h)

	return &App{cfg: cfg, log: log, sessions: sessions, handler: h}, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "protect_cars", a.cfg.ProtectCars)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.close()
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", a.cfg.HTTPAddr).Wrap(err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	// Drain in-flight requests first so every session is released before the pool closes.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		a.close()
		return err
	}
	a.close()

	acquired, released := a.sessions.Stats()
	a.log.Info("server.stopped", "sessions_acquired", acquired, "sessions_released", released)
	return nil
}

func (a *App) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// MigrateUp applies the embedded schema migrations.
func MigrateUp(databaseURL string, log Logger) error {
	m, err := schema.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("migrate.close.fail", "err", err)
		}
	}()

	if err := m.Up(); err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	log.Info("migrate.up.done", "version", version, "dirty", dirty)
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
