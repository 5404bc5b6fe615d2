package messages

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"carapi/cmd/identity/ids"
	"carapi/cmd/internal/dbsession"
	"carapi/cmd/internal/pgutil"
)

// PostgresStore runs message queries on one scoped connection.
type PostgresStore struct {
	q      dbsession.Conn
	schema string
	now    func() time.Time
}

// NewPostgresStore constructs a store; an empty schema means "public".
func NewPostgresStore(q dbsession.Conn, schema string, now func() time.Time) (*PostgresStore, error) {
	if q == nil {
		return nil, fmt.Errorf("messages: nil querier")
	}
	if schema == "" {
		schema = pgutil.DefaultSchema
	}
	schema, err := pgutil.CheckSchema("messages", schema)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &PostgresStore{q: q, schema: schema, now: now}, nil
}

func scanMessage(row pgx.CollectableRow) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Body, &m.DateTime)
	return m, err
}

// LastPerSender returns, for every sender, only their most recent message.
// Ties on date_time go to the larger id, which is the later insert.
func (s *PostgresStore) LastPerSender(ctx context.Context) ([]Message, error) {
	const op = "messages.LastPerSender"

	rows, err := s.q.Query(ctx,
		`SELECT DISTINCT ON (from_user_id) id, from_user_id, to_user_id, body, date_time
		   FROM `+pgutil.Ident(s.schema, "messages")+`
		  ORDER BY from_user_id, date_time DESC, id DESC`,
	)
	if err != nil {
		return nil, opErr(op, ErrStorage, err)
	}
	out, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, opErr(op, ErrStorage, err)
	}
	if out == nil {
		out = []Message{}
	}
	return out, nil
}

// Append stores a message. An unknown sender or recipient is ErrNotFound.
func (s *PostgresStore) Append(ctx context.Context, in AppendInput) (Message, error) {
	const op = "messages.Append"

	body := strings.TrimSpace(in.Body)
	if in.FromUserID == "" || !ids.Valid(in.ToUserID) {
		return Message{}, opErr(op, ErrInvalidInput, nil)
	}
	if body == "" || utf8.RuneCountInString(body) > MaxBodyLength {
		return Message{}, opErr(op, ErrInvalidInput, nil)
	}

	now := s.now()
	id, err := ids.NewULID(now)
	if err != nil {
		return Message{}, opErr(op, ErrStorage, err)
	}

	_, err = s.q.Exec(ctx,
		`INSERT INTO `+pgutil.Ident(s.schema, "messages")+` (id, from_user_id, to_user_id, body, date_time)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, in.FromUserID, in.ToUserID, body, now,
	)
	if err != nil {
		if pgutil.IsForeignKeyViolation(err) {
			return Message{}, opErr(op, ErrNotFound, err)
		}
		return Message{}, opErr(op, ErrStorage, err)
	}

	return Message{ID: id, FromUserID: in.FromUserID, ToUserID: in.ToUserID, Body: body, DateTime: now}, nil
}
