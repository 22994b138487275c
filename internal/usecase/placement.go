package usecase

import (
	"context"
	"fmt"
	"log/slog"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/domain/repository"
)

// Placement sends the first vendor notification for a newly placed order.
// The webhook, the sweep and the change feed all call NotifyPlaced.
type Placement struct {
	guard      *Guard
	orders     repository.OrderRepository
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewPlacement constructs Placement.
func NewPlacement(guard *Guard, orders repository.OrderRepository, dispatcher *Dispatcher, logger *slog.Logger) *Placement {
	return &Placement{guard: guard, orders: orders, dispatcher: dispatcher, logger: logger}
}

// NotifyPlaced dispatches the accept-order notification at most once per order.
// It reports whether this call was the one that sent it.
func (p *Placement) NotifyPlaced(ctx context.Context, orderID string, source model.TriggerSource) (bool, error) {
	order, err := p.orders.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order.Status != model.OrderStatusPending {
		return false, domainErrors.ErrNotInExpectedState
	}

	claim, err := p.guard.Claim(ctx, orderID, model.ClaimFirstNotification, source)
	if err != nil {
		return false, err
	}
	if !claim.Acquired {
		p.logger.Debug("first notification already claimed",
			slog.String("order_id", orderID),
			slog.String("source", string(source)),
			slog.String("claimed_by", claim.Prior),
		)
		return false, nil
	}

	if err := p.dispatch(ctx, orderID); err != nil {
		p.logger.Error("first notification failed after claim",
			slog.String("order_id", orderID),
			slog.String("source", string(source)),
			slog.String("error", err.Error()),
		)
		p.dispatcher.Remediate(ctx, model.RemediationFirstNotification, orderID, err.Error())
		return false, err
	}

	p.logger.Info("first notification sent", slog.String("order_id", orderID), slog.String("source", string(source)))
	return true, nil
}

func (p *Placement) dispatch(ctx context.Context, orderID string) error {
	details, err := p.orders.Details(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order details: %w", err)
	}
	if !details.Vendor.Authorizes(details.Vendor.Contact) {
		return fmt.Errorf("vendor %s: %w", details.Vendor.ID, domainErrors.ErrVendorUnauthorized)
	}
	msg := orderTemplate(details, model.TemplateOrderStatus, model.ActionAcceptOrder)
	return p.dispatcher.Notify(ctx, orderID, model.OrderStatusPending, msg)
}

// AwaitingNotification lists placed orders nobody has claimed yet.
func (p *Placement) AwaitingNotification(ctx context.Context, limit int) ([]string, error) {
	return p.orders.ListAwaitingFirstNotification(ctx, limit)
}
