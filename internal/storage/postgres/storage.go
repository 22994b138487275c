package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/repository"
)

// DefaultChangeFeedChannel is the NOTIFY channel used when none is configured.
const DefaultChangeFeedChannel = "order_placed"

type pgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool    pgxPool
	dsn     string
	channel string
	logger  *slog.Logger
}

// Option customises storage construction.
type Option func(*Storage)

// WithChangeFeedChannel sets the channel the placement trigger notifies.
func WithChangeFeedChannel(channel string) Option {
	return func(s *Storage) {
		if channel != "" {
			s.channel = channel
		}
	}
}

type userRepository struct {
	storage *Storage
}

type orderRepository struct {
	storage *Storage
}

type ledgerRepository struct {
	storage *Storage
}

type remediationRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger, opts ...Option) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, dsn: dsn, channel: DefaultChangeFeedChannel, logger: logger}
	for _, opt := range opts {
		opt(storage)
	}

	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Users() repository.UserRepository {
	return &userRepository{storage: s}
}

func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Ledger() repository.LedgerRepository {
	return &ledgerRepository{storage: s}
}

func (s *Storage) Remediations() repository.RemediationRepository {
	return &remediationRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            blocked BOOLEAN NOT NULL DEFAULT FALSE
        )`,
		`CREATE TABLE IF NOT EXISTS vendors (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            contact TEXT NOT NULL,
            blocked BOOLEAN NOT NULL DEFAULT FALSE,
            discount INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            display_id TEXT NOT NULL,
            status TEXT NOT NULL,
            vendor_id TEXT NOT NULL REFERENCES vendors(id),
            customer_id TEXT NOT NULL REFERENCES users(id),
            address_id TEXT NOT NULL DEFAULT '',
            items JSONB NOT NULL DEFAULT '[]',
            tax_collected BIGINT NOT NULL DEFAULT 0,
            final_amount BIGINT NOT NULL DEFAULT 0,
            gateway_order_id TEXT,
            payment_id TEXT,
            handover_code TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            accepted_at TIMESTAMPTZ,
            preparing_at TIMESTAMPTZ,
            prepared_at TIMESTAMPTZ,
            on_the_way_at TIMESTAMPTZ,
            wa_message_id TEXT,
            wa_message_created_at TIMESTAMPTZ,
            handover_started_at TIMESTAMPTZ,
            first_notification_claim TEXT,
            refund_claim TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS remediation_entries (
            id BIGSERIAL PRIMARY KEY,
            kind TEXT NOT NULL,
            order_id TEXT NOT NULL,
            detail TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            resolved_at TIMESTAMPTZ,
            resolution TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS wallet_debits (
            order_id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            amount BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_awaiting_notification ON orders(created_at)
            WHERE status = 'pending' AND first_notification_claim IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_remediation_open ON remediation_entries(created_at)
            WHERE resolved_at IS NULL`,
		`CREATE OR REPLACE FUNCTION notify_order_placed() RETURNS trigger AS $$
        BEGIN
            IF NEW.status = 'pending' AND (TG_OP = 'INSERT' OR OLD.status IS DISTINCT FROM NEW.status) THEN
                PERFORM pg_notify(TG_ARGV[0], NEW.id);
            END IF;
            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS orders_placed_notify ON orders`,
		fmt.Sprintf(`CREATE TRIGGER orders_placed_notify AFTER INSERT OR UPDATE OF status ON orders
            FOR EACH ROW EXECUTE FUNCTION notify_order_placed(%s)`, quoteLiteral(s.channel)),
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// --- UserRepository implementation ---

func (r *userRepository) IsBlocked(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT blocked FROM users WHERE id=$1`
	var blocked bool
	if err := r.storage.pool.QueryRow(ctx, query, userID).Scan(&blocked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domainErrors.ErrNotFound
		}
		return false, err
	}
	return blocked, nil
}
