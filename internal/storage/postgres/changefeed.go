package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type notificationConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

var connectNotifications = func(ctx context.Context, dsn string) (notificationConn, error) {
	return pgx.Connect(ctx, dsn)
}

// ChangeFeed streams ids of orders that entered the placed state.
type ChangeFeed struct {
	dsn     string
	channel string
	logger  *slog.Logger
}

// ChangeFeed returns a subscriber bound to the configured notification channel.
func (s *Storage) ChangeFeed() *ChangeFeed {
	return &ChangeFeed{dsn: s.dsn, channel: s.channel, logger: s.logger}
}

// Listen blocks delivering every notification payload to handle until ctx ends
// or the dedicated connection fails.
func (f *ChangeFeed) Listen(ctx context.Context, handle func(ctx context.Context, orderID string)) error {
	conn, err := connectNotifications(ctx, f.dsn)
	if err != nil {
		return fmt.Errorf("connect change feed: %w", err)
	}
	defer func() {
		_ = conn.Close(context.WithoutCancel(ctx))
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", f.channel, err)
	}
	f.logger.Info("change feed subscribed", slog.String("channel", f.channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		if n.Payload == "" {
			continue
		}
		handle(ctx, n.Payload)
	}
}
