package cars

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"carapi/cmd/identity/ids"
	"carapi/cmd/internal/dbsession"
	"carapi/cmd/internal/envelope"
)

// Middleware wraps a route, e.g. with the session scope and the auth gate.
type Middleware func(http.Handler) http.Handler

// Handler serves the /cars endpoints over the request's scoped connection.
type Handler struct {
	log     *slog.Logger
	schema  string
	maxBody int64
	now     func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerSchema points the handler's stores at schema.
func WithHandlerSchema(schema string) HandlerOption {
	return func(h *Handler) { h.schema = schema }
}

// WithHandlerClock overrides the time source used for timestamps and year validation.
func WithHandlerClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

func NewHandler(log *slog.Logger, maxBody int64, opts ...HandlerOption) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		log:     log,
		maxBody: maxBody,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register wires the car routes onto mux, each wrapped by wrap.
func (h *Handler) Register(mux *http.ServeMux, wrap Middleware) {
	if wrap == nil {
		wrap = func(next http.Handler) http.Handler { return next }
	}
	mux.Handle("GET /cars", wrap(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /cars", wrap(http.HandlerFunc(h.handleCreate)))
	mux.Handle("PUT /cars/{id}", wrap(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("DELETE /cars/{id}", wrap(http.HandlerFunc(h.handleDelete)))
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*PostgresStore, bool) {
	conn, ok := dbsession.ConnFrom(r.Context())
	if !ok {
		h.log.Error("cars.no_session", "path", r.URL.Path)
		envelope.Fail(w, http.StatusInternalServerError, "internal_error", "internal error")
		return nil, false
	}
	opts := []PostgresOption{WithClock(h.now)}
	if h.schema != "" {
		opts = append(opts, WithSchema(h.schema))
	}
	st, err := NewPostgresStore(conn, opts...)
	if err != nil {
		h.log.Error("cars.store.init.fail", "err", err)
		envelope.Fail(w, http.StatusInternalServerError, "internal_error", "internal error")
		return nil, false
	}
	return st, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	list, err := st.List(r.Context())
	if err != nil {
		h.writeStoreError(w, "cars.list.fail", err)
		return
	}
	envelope.OK(w, http.StatusOK, "", list)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	c, err := st.Create(r.Context(), in)
	if err != nil {
		h.writeStoreError(w, "cars.create.fail", err)
		return
	}
	h.log.Info("cars.create.ok", "car_id", c.ID)
	envelope.OK(w, http.StatusCreated, "car created", c)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !ids.Valid(id) {
		envelope.Fail(w, http.StatusNotFound, "not_found", "car not found")
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	c, err := st.Update(r.Context(), id, in)
	if err != nil {
		h.writeStoreError(w, "cars.update.fail", err)
		return
	}
	envelope.OK(w, http.StatusOK, "car updated", c)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !ids.Valid(id) {
		envelope.Fail(w, http.StatusNotFound, "not_found", "car not found")
		return
	}
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := st.SoftDelete(r.Context(), id); err != nil {
		h.writeStoreError(w, "cars.delete.fail", err)
		return
	}
	envelope.OK(w, http.StatusOK, "car deleted", deleteResponse{ID: id, Deleted: true})
}

type deleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (CarInput, bool) {
	var req carRequest
	if err := envelope.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		envelope.Fail(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return CarInput{}, false
	}
	in, msg := req.validate(h.now())
	if msg != "" {
		envelope.Fail(w, http.StatusBadRequest, "invalid_request", msg)
		return CarInput{}, false
	}
	return in, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, event string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		envelope.Fail(w, http.StatusNotFound, "not_found", "car not found")
	case errors.Is(err, ErrInvalidInput):
		envelope.Fail(w, http.StatusBadRequest, "invalid_request", "invalid request")
	default:
		h.log.Error(event, "err", err)
		envelope.Fail(w, http.StatusInternalServerError, "storage_error", "storage error")
	}
}
