// Package messages serves the latest message per sender and accepts new messages.
package messages

import (
	"errors"
	"fmt"
	"time"
)

// Message is one direct message between users.
type Message struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Body       string    `json:"body"`
	DateTime   time.Time `json:"date_time"`
}

// AppendInput describes a new message. FromUserID comes from the verified token, never the body.
type AppendInput struct {
	FromUserID string
	ToUserID   string
	Body       string
}

// MaxBodyLength bounds a message body in characters.
const MaxBodyLength = 4000

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrStorage      = errors.New("storage_error")
)

func opErr(op string, kind, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
