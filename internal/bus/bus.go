package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"visage/internal/domain"
	"visage/internal/infra"
	"visage/internal/sqlinline"
)

// Channel is the single pg_notify channel all lifecycle events travel on.
const Channel = "visage_events"

// Bus publishes notification envelopes over Postgres NOTIFY. Delivery is
// at-most-once: a listener that is down when the notification fires never
// sees it, and publishers neither wait for nor learn about consumption.
type Bus struct {
	sql    infra.SQLExecutor
	logger infra.Logger
}

func New(sql infra.SQLExecutor, logger infra.Logger) *Bus {
	return &Bus{sql: sql, logger: logger}
}

// Publish marshals the envelope and fires it on the channel. Unknown types
// are rejected before they reach the wire.
func (b *Bus) Publish(ctx context.Context, n domain.Notification) error {
	if !n.Type.Known() {
		return fmt.Errorf("bus: unknown notification type %q", n.Type)
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("bus: marshal notification: %w", err)
	}
	if _, err := b.sql.Exec(ctx, sqlinline.QNotify, Channel, string(raw)); err != nil {
		return fmt.Errorf("bus: publish: %w", err)
	}
	b.logger.Debug().
		Str("type", string(n.Type)).
		Str("user_id", n.UserID).
		Msg("bus: published notification")
	return nil
}

// Handler consumes one notification. Errors are logged, never retried; the
// bus gives no stronger guarantee than at-most-once.
type Handler func(ctx context.Context, n domain.Notification)

// Subscriber holds a dedicated listening connection and dispatches incoming
// envelopes to a handler.
type Subscriber struct {
	pool   *pgxpool.Pool
	logger infra.Logger
}

func NewSubscriber(pool *pgxpool.Pool, logger infra.Logger) *Subscriber {
	return &Subscriber{pool: pool, logger: logger}
}

// Run listens on the channel until ctx is done. The connection is pinned for
// the whole run; pool queries continue on other connections.
func (s *Subscriber) Run(ctx context.Context, handle Handler) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("bus: acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "listen "+Channel); err != nil {
		return fmt.Errorf("bus: listen: %w", err)
	}
	s.logger.Info().Str("channel", Channel).Msg("bus: subscribed")

	for {
		msg, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("bus: wait for notification: %w", err)
		}
		var n domain.Notification
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			s.logger.Error().Err(err).Msg("bus: drop undecodable notification")
			continue
		}
		if !n.Type.Known() {
			s.logger.Warn().Str("type", string(n.Type)).Msg("bus: drop unknown notification type")
			continue
		}
		handle(ctx, n)
	}
}
