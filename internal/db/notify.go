package db

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// Notifier announces confirmed doctor handoffs over a Postgres NOTIFY
// channel so a doctor-facing consumer can pick up the conversation.
type Notifier struct {
	DB      *sql.DB
	Channel string
}

// NewNotifier constructs a Notifier for the given channel.
func NewNotifier(db *sql.DB, channel string) *Notifier {
	return &Notifier{DB: db, Channel: channel}
}

// NotifyHandoff sends the conversation ID as the notification payload.
func (n *Notifier) NotifyHandoff(ctx context.Context, conversationID string) error {
	_, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, conversationID)
	return err
}

// Listen issues a LISTEN for the channel on a dedicated connection and
// returns it so the caller controls its lifetime. Payload delivery is left
// to the consumer side.
func (n *Notifier) Listen(ctx context.Context) (*sql.Conn, error) {
	conn, err := n.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	channel := pq.QuoteIdentifier(n.Channel)
	if _, err := conn.ExecContext(ctx, "LISTEN "+channel); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
