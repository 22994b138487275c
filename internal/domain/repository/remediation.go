package repository

import (
	"context"

	"github.com/polkiloo/orderhub/internal/domain/model"
)

// RemediationRepository stores failures that need an operator.
type RemediationRepository interface {
	Enqueue(ctx context.Context, kind model.RemediationKind, orderID, detail string) error
	ListOpen(ctx context.Context, limit int) ([]model.Remediation, error)
	Resolve(ctx context.Context, id int64, resolution string) error
}
