package messages

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"carapi/cmd/internal/dbsession"
	"carapi/cmd/internal/envelope"
)

// UserIDFunc reports the authenticated user for a request context.
type UserIDFunc func(ctx context.Context) (string, bool)

// Handler serves GET /last-messages and POST /messages.
type Handler struct {
	log     *slog.Logger
	userID  UserIDFunc
	schema  string
	maxBody int64
	now     func() time.Time
}

func NewHandler(log *slog.Logger, userID UserIDFunc, schema string, maxBody int64) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:     log,
		userID:  userID,
		schema:  schema,
		maxBody: maxBody,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register wires the routes. protect must scope a session and enforce authentication.
func (h *Handler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.Handle("GET /last-messages", protect(http.HandlerFunc(h.handleLastMessages)))
	mux.Handle("POST /messages", protect(http.HandlerFunc(h.handleSend)))
}

type lastMessagesResponse struct {
	LastMessages []Message `json:"lastMessages"`
}

type sendRequest struct {
	ToUserID string `json:"to_user_id"`
	Body     string `json:"body"`
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*PostgresStore, bool) {
	conn, ok := dbsession.ConnFrom(r.Context())
	if !ok {
		h.log.Error("messages.no_session", "path", r.URL.Path)
		envelope.Fail(w, http.StatusInternalServerError, "internal_error", "internal error")
		return nil, false
	}
	st, err := NewPostgresStore(conn, h.schema, h.now)
	if err != nil {
		h.log.Error("messages.store.init.fail", "err", err)
		envelope.Fail(w, http.StatusInternalServerError, "internal_error", "internal error")
		return nil, false
	}
	return st, true
}

func (h *Handler) handleLastMessages(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	list, err := st.LastPerSender(r.Context())
	if err != nil {
		h.log.Error("messages.last.fail", "err", err)
		envelope.Fail(w, http.StatusInternalServerError, "storage_error", "storage error")
		return
	}
	envelope.OK(w, http.StatusOK, "", lastMessagesResponse{LastMessages: list})
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	from, ok := h.userID(r.Context())
	if !ok {
		envelope.Fail(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	var req sendRequest
	if err := envelope.DecodeJSON(w, r, h.maxBody, &req); err != nil {
		envelope.Fail(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	st, ok := h.store(w, r)
	if !ok {
		return
	}
	m, err := st.Append(r.Context(), AppendInput{FromUserID: from, ToUserID: req.ToUserID, Body: req.Body})
	switch {
	case err == nil:
		envelope.OK(w, http.StatusCreated, "message sent", m)
	case errors.Is(err, ErrInvalidInput):
		envelope.Fail(w, http.StatusBadRequest, "invalid_request", "to_user_id and a non-empty body are required")
	case errors.Is(err, ErrNotFound):
		envelope.Fail(w, http.StatusNotFound, "not_found", "recipient not found")
	default:
		h.log.Error("messages.send.fail", "err", err)
		envelope.Fail(w, http.StatusInternalServerError, "storage_error", "storage error")
	}
}
