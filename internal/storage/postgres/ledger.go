package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
)

const pgQueryCanceled = "57014"

// isTimeout reports whether err means the procedure did not answer in time.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgQueryCanceled || strings.Contains(strings.ToLower(pgErr.Message), "timeout")
	}
	return false
}

// raisedResponse extracts a business response the procedure raised as a JSON exception message.
func raisedResponse(err error) (*model.LedgerResponse, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil, false
	}
	var resp model.LedgerResponse
	if json.Unmarshal([]byte(pgErr.Message), &resp) != nil || resp.Status == "" {
		return nil, false
	}
	return &resp, true
}

// --- LedgerRepository implementation ---

func (r *ledgerRepository) PlaceOrder(ctx context.Context, req model.LedgerRequest) (*model.LedgerResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode ledger request: %w", err)
	}

	var raw []byte
	err = r.storage.pool.QueryRow(ctx, `SELECT verify_payment($1::jsonb)`, payload).Scan(&raw)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrLedgerTimeout, err)
		}
		if resp, ok := raisedResponse(err); ok {
			return resp, nil
		}
		return nil, err
	}

	var resp model.LedgerResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode ledger response: %v", domainErrors.ErrContractViolation, err)
	}
	return &resp, nil
}

func (r *ledgerRepository) RecordTransaction(ctx context.Context, rec model.TransactionRecord) error {
	const query = `SELECT record_gateway_transaction(p_order_id => $1, p_transaction_id => $2, p_order_status => $3)`
	if _, err := r.storage.pool.Exec(ctx, query, rec.OrderID, rec.TransactionID, rec.Event); err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepository) DebitWallet(ctx context.Context, debit model.WalletDebit) (bool, error) {
	const (
		recordQuery = `INSERT INTO wallet_debits (order_id, user_id, amount) VALUES ($1, $2, $3)
                       ON CONFLICT (order_id) DO NOTHING RETURNING order_id`
		debitQuery = `SELECT decrease_wallet_balance(p_user_id => $1, p_amount => $2, p_order_id => $3)`
	)

	applied := false
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var recorded string
		err := tx.QueryRow(ctx, recordQuery, debit.OrderID, debit.UserID, debit.Amount).Scan(&recorded)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, debitQuery, debit.UserID, debit.Amount, debit.OrderID); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("debit wallet: %w", err)
	}
	return applied, nil
}
