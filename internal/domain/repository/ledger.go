package repository

import (
	"context"

	"github.com/polkiloo/orderhub/internal/domain/model"
)

// LedgerRepository calls the store's authoritative procedures.
type LedgerRepository interface {
	PlaceOrder(ctx context.Context, req model.LedgerRequest) (*model.LedgerResponse, error)
	RecordTransaction(ctx context.Context, rec model.TransactionRecord) error
	// DebitWallet applies the debit at most once per order; applied is false when it was already recorded.
	DebitWallet(ctx context.Context, debit model.WalletDebit) (applied bool, err error)
}
