package postgres

import (
	"context"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
)

// --- RemediationRepository implementation ---

func (r *remediationRepository) Enqueue(ctx context.Context, kind model.RemediationKind, orderID, detail string) error {
	const query = `INSERT INTO remediation_entries (kind, order_id, detail) VALUES ($1, $2, $3)`
	_, err := r.storage.pool.Exec(ctx, query, kind, orderID, detail)
	return err
}

func (r *remediationRepository) ListOpen(ctx context.Context, limit int) ([]model.Remediation, error) {
	const query = `SELECT id, kind, order_id, detail, created_at
                   FROM remediation_entries
                   WHERE resolved_at IS NULL
                   ORDER BY created_at
                   LIMIT $1`
	rows, err := r.storage.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Remediation
	for rows.Next() {
		var e model.Remediation
		if err := rows.Scan(&e.ID, &e.Kind, &e.OrderID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *remediationRepository) Resolve(ctx context.Context, id int64, resolution string) error {
	const query = `UPDATE remediation_entries SET resolved_at=NOW(), resolution=$2
                   WHERE id=$1 AND resolved_at IS NULL`
	tag, err := r.storage.pool.Exec(ctx, query, id, resolution)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}
