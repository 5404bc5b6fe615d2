package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authapi "carapi/cmd/internal/auth/api"
	"carapi/cmd/internal/cars"
	"carapi/cmd/internal/dbsession"
	"carapi/cmd/internal/envelope"
	"carapi/cmd/internal/messages"
)

type routeDeps struct {
	log      Logger
	cfg      Config
	sessions *dbsession.Manager
	gate     *authapi.Gate
	auth     *authapi.Handler
	cars     *cars.Handler
	messages *messages.Handler
	registry *prometheus.Registry
}

func registerHTTP(mux *http.ServeMux, d routeDeps) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		envelope.OK(w, http.StatusOK, "ok", "Hi")
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		envelope.OK(w, http.StatusOK, "ok", nil)
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		err := d.sessions.Do(ctx, func(ctx context.Context, c dbsession.Conn) error {
			_, err := c.Exec(ctx, "SELECT 1")
			return err
		})
		if err != nil {
			d.log.Info("readyz.db.not_ready", "err", err)
			envelope.Fail(w, http.StatusServiceUnavailable, "not_ready", "database not ready")
			return
		}
		envelope.OK(w, http.StatusOK, "ready", nil)
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{Registry: d.registry}))

	// Every data route runs inside a request session; protected ones also pass the gate.
	scoped := d.sessions.Middleware
	protected := func(next http.Handler) http.Handler {
		return d.sessions.Middleware(d.gate.Require(next))
	}

	d.auth.Register(mux, scoped)
	d.messages.Register(mux, protected)
	if d.cfg.ProtectCars {
		d.cars.Register(mux, protected)
	} else {
		d.cars.Register(mux, scoped)
	}
}

// withRouteFallback renders the mux's own 404 and 405 answers as envelopes.
// Matched routes are served untouched.
func withRouteFallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(&fallbackWriter{ResponseWriter: w}, r)
	})
}

// fallbackWriter swaps the mux's plain-text error body for an envelope.
type fallbackWriter struct {
	http.ResponseWriter
	replaced bool
}

func (fw *fallbackWriter) WriteHeader(code int) {
	switch code {
	case http.StatusNotFound:
		fw.replaced = true
		envelope.Fail(fw.ResponseWriter, code, "not_found", "route not found")
	case http.StatusMethodNotAllowed:
		fw.replaced = true
		envelope.Fail(fw.ResponseWriter, code, "method_not_allowed", "method not allowed")
	default:
		fw.ResponseWriter.WriteHeader(code)
	}
}

func (fw *fallbackWriter) Write(b []byte) (int, error) {
	if fw.replaced {
		return len(b), nil
	}
	return fw.ResponseWriter.Write(b)
}
