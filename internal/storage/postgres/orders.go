package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
)

const orderColumns = `o.id, o.display_id, o.status, o.vendor_id, o.customer_id, o.address_id, o.items,
       o.tax_collected, o.final_amount, COALESCE(o.gateway_order_id, ''), COALESCE(o.payment_id, ''),
       COALESCE(o.handover_code, ''), o.created_at, o.accepted_at, o.preparing_at, o.prepared_at,
       o.on_the_way_at, COALESCE(o.wa_message_id, ''), o.wa_message_created_at, o.handover_started_at,
       o.first_notification_claim, o.refund_claim`

var transitionStamp = map[model.OrderStatus]string{
	model.OrderStatusAccepted:  "accepted_at",
	model.OrderStatusPreparing: "preparing_at",
	model.OrderStatusPrepared:  "prepared_at",
	model.OrderStatusOnTheWay:  "on_the_way_at",
}

func scanOrder(row pgx.Row, extra ...any) (*model.Order, error) {
	var (
		o     model.Order
		items []byte
	)
	dest := []any{
		&o.ID, &o.DisplayID, &o.Status, &o.VendorID, &o.CustomerID, &o.AddressID, &items,
		&o.TaxCollected, &o.FinalAmount, &o.GatewayOrderID, &o.PaymentID,
		&o.HandoverCode, &o.CreatedAt, &o.AcceptedAt, &o.PreparingAt, &o.PreparedAt,
		&o.OnTheWayAt, &o.MessageID, &o.MessageCreatedAt, &o.HandoverStartedAt,
		&o.FirstNotificationClaim, &o.RefundClaim,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("decode order items: %w", err)
		}
	}
	return &o, nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id=$1`
	return scanOrder(r.storage.pool.QueryRow(ctx, query, id))
}

func (r *orderRepository) Details(ctx context.Context, id string) (*model.OrderDetails, error) {
	query := `SELECT ` + orderColumns + `,
       v.id, v.name, v.contact, v.blocked, v.discount, u.id, u.name, u.phone
       FROM orders o
       JOIN vendors v ON v.id = o.vendor_id
       JOIN users u ON u.id = o.customer_id
       WHERE o.id=$1`

	var details model.OrderDetails
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id),
		&details.Vendor.ID, &details.Vendor.Name, &details.Vendor.Contact, &details.Vendor.Blocked, &details.Vendor.Discount,
		&details.Customer.ID, &details.Customer.Name, &details.Customer.Phone,
	)
	if err != nil {
		return nil, err
	}
	details.Order = *order
	return &details, nil
}

func (r *orderRepository) Transition(ctx context.Context, id string, from, to model.OrderStatus) (bool, error) {
	query := `UPDATE orders SET status=$1 WHERE id=$2 AND status=$3`
	if column, ok := transitionStamp[to]; ok {
		query = fmt.Sprintf(`UPDATE orders SET status=$1, %s=NOW() WHERE id=$2 AND status=$3`, column)
	}
	tag, err := r.storage.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *orderRepository) Claim(ctx context.Context, id string, field model.ClaimField, marker string) (model.ClaimResult, error) {
	if !field.Valid() {
		return model.ClaimResult{}, fmt.Errorf("claim field %q: %w", field, domainErrors.ErrInvalidPayload)
	}

	claimQuery := fmt.Sprintf(`UPDATE orders SET %[1]s=$2 WHERE id=$1 AND %[1]s IS NULL RETURNING id`, field)
	var claimed string
	err := r.storage.pool.QueryRow(ctx, claimQuery, id, marker).Scan(&claimed)
	if err == nil {
		return model.ClaimResult{Acquired: true}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.ClaimResult{}, err
	}

	priorQuery := fmt.Sprintf(`SELECT COALESCE(%s, '') FROM orders WHERE id=$1`, field)
	var prior string
	if err := r.storage.pool.QueryRow(ctx, priorQuery, id).Scan(&prior); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ClaimResult{}, domainErrors.ErrNotFound
		}
		return model.ClaimResult{}, err
	}
	return model.ClaimResult{Acquired: false, Prior: prior}, nil
}

func (r *orderRepository) RecordDelivery(ctx context.Context, id string, status model.OrderStatus, delivery model.Delivery) (bool, error) {
	const query = `UPDATE orders SET wa_message_id=$1, wa_message_created_at=$2 WHERE id=$3 AND status=$4`
	sentAt := delivery.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	tag, err := r.storage.pool.Exec(ctx, query, delivery.MessageID, sentAt, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *orderRepository) BeginHandover(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE orders SET handover_started_at=NOW()
                   WHERE id=$1 AND status=$2 AND handover_code IS NOT NULL`
	tag, err := r.storage.pool.Exec(ctx, query, id, model.OrderStatusPrepared)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *orderRepository) PendingHandoverForContact(ctx context.Context, contact string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + `
       FROM orders o
       JOIN vendors v ON v.id = o.vendor_id
       WHERE o.status=$1 AND o.handover_started_at IS NOT NULL
         AND regexp_replace(v.contact, '\D', '', 'g')=$2
       ORDER BY o.handover_started_at DESC
       LIMIT 1`
	return scanOrder(r.storage.pool.QueryRow(ctx, query, model.OrderStatusPrepared, model.NormalizeContact(contact)))
}

func (r *orderRepository) ListAwaitingFirstNotification(ctx context.Context, limit int) ([]string, error) {
	const query = `SELECT id FROM orders
                   WHERE status=$1 AND first_notification_claim IS NULL
                   ORDER BY created_at
                   LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, model.OrderStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
