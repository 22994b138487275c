package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type fakeNotificationConn struct {
	mu       sync.Mutex
	execs    []string
	execErr  error
	payloads []string
	closed   bool
}

func (c *fakeNotificationConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, sql)
	return pgconn.CommandTag{}, c.execErr
}

func (c *fakeNotificationConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	c.mu.Lock()
	if len(c.payloads) > 0 {
		p := c.payloads[0]
		c.payloads = c.payloads[1:]
		c.mu.Unlock()
		return &pgconn.Notification{Channel: "order_placed", Payload: p}, nil
	}
	c.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *fakeNotificationConn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func withNotificationConn(t *testing.T, conn notificationConn, err error) {
	t.Helper()
	original := connectNotifications
	t.Cleanup(func() { connectNotifications = original })
	connectNotifications = func(context.Context, string) (notificationConn, error) {
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

func TestChangeFeedListenDeliversPayloads(t *testing.T) {
	conn := &fakeNotificationConn{payloads: []string{"o-1", "", "o-2"}}
	withNotificationConn(t, conn, nil)

	feed := &ChangeFeed{dsn: "postgres://stub", channel: "order_placed", logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}

	ctx, cancel := context.WithCancel(context.Background())
	var got []string
	err := feed.Listen(ctx, func(_ context.Context, id string) {
		got = append(got, id)
		if len(got) == 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if len(got) != 2 || got[0] != "o-1" || got[1] != "o-2" {
		t.Fatalf("unexpected payloads %v", got)
	}
	if len(conn.execs) != 1 || conn.execs[0] != `LISTEN "order_placed"` {
		t.Fatalf("unexpected listen statement %v", conn.execs)
	}
	if !conn.closed {
		t.Fatal("expected connection to be closed")
	}
}

func TestChangeFeedListenErrors(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	feed := &ChangeFeed{dsn: "postgres://stub", channel: "order_placed", logger: logger}

	withNotificationConn(t, nil, errors.New("refused"))
	if err := feed.Listen(context.Background(), func(context.Context, string) {}); err == nil {
		t.Fatal("expected connect error")
	}

	conn := &fakeNotificationConn{execErr: errors.New("denied")}
	withNotificationConn(t, conn, nil)
	if err := feed.Listen(context.Background(), func(context.Context, string) {}); err == nil {
		t.Fatal("expected listen error")
	}
	if !conn.closed {
		t.Fatal("expected connection to be closed after listen failure")
	}
}
