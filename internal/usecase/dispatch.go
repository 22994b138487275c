package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/polkiloo/orderhub/internal/adapter/messaging"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/domain/repository"
	"github.com/polkiloo/orderhub/internal/metrics"
)

// Dispatcher sends vendor notifications and keeps the order's delivery handle current.
type Dispatcher struct {
	messenger    messaging.Client
	orders       repository.OrderRepository
	remediations repository.RemediationRepository
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewDispatcher constructs Dispatcher.
func NewDispatcher(
	messenger messaging.Client,
	orders repository.OrderRepository,
	remediations repository.RemediationRepository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		messenger:    messenger,
		orders:       orders,
		remediations: remediations,
		metrics:      m,
		logger:       logger,
	}
}

// Notify sends msg and stores its delivery handle on the order while it is still in status.
// Only the send can fail; a handle that could not be stored is logged and queued for an operator.
func (d *Dispatcher) Notify(ctx context.Context, orderID string, status model.OrderStatus, msg model.TemplateMessage) error {
	delivery, err := d.messenger.SendTemplate(ctx, msg)
	if err != nil {
		d.metrics.Notification(msg.Template, metrics.ResultFailed)
		return fmt.Errorf("send %s: %w", msg.Template, err)
	}
	d.metrics.Notification(msg.Template, metrics.ResultSent)

	recorded, err := d.orders.RecordDelivery(ctx, orderID, status, delivery)
	switch {
	case err != nil:
		d.logger.Error("store delivery handle failed",
			slog.String("order_id", orderID),
			slog.String("message_id", delivery.MessageID),
			slog.String("error", err.Error()),
		)
		d.Remediate(ctx, model.RemediationDeliveryHandle, orderID,
			fmt.Sprintf("%s message %s not stored: %v", msg.Template, delivery.MessageID, err))
	case !recorded:
		d.logger.Warn("order moved on before delivery handle was stored",
			slog.String("order_id", orderID),
			slog.String("expected_status", string(status)),
		)
	}
	return nil
}

// Reply sends a free-text answer to an actor. Failures are logged only.
func (d *Dispatcher) Reply(ctx context.Context, to, body string) {
	if _, err := d.messenger.SendText(ctx, model.TextMessage{To: model.NormalizeContact(to), Body: body}); err != nil {
		d.metrics.Notification("text", metrics.ResultFailed)
		d.logger.Warn("reply failed", slog.String("to", to), slog.String("error", err.Error()))
		return
	}
	d.metrics.Notification("text", metrics.ResultSent)
}

// Remediate records a failure for manual follow-up. It outlives the caller's cancellation.
func (d *Dispatcher) Remediate(ctx context.Context, kind model.RemediationKind, orderID, detail string) {
	if err := d.remediations.Enqueue(context.WithoutCancel(ctx), kind, orderID, detail); err != nil {
		d.logger.Error("enqueue remediation failed",
			slog.String("kind", string(kind)),
			slog.String("order_id", orderID),
			slog.String("detail", detail),
			slog.String("error", err.Error()),
		)
	}
}

// orderTemplate builds a vendor template for the order with a quick-reply action.
func orderTemplate(details *model.OrderDetails, template string, action model.VendorAction) model.TemplateMessage {
	order := &details.Order
	return model.TemplateMessage{
		To:       model.NormalizeContact(details.Vendor.Contact),
		Template: template,
		Parameters: []string{
			displayID(order),
			model.FormatMajor(model.ApplyDiscount(order.ItemTotal(), details.Vendor.Discount)),
			details.Customer.Name,
			itemsText(order.Items),
		},
		ButtonPayload: fmt.Sprintf("%s:%s", action, order.ID),
	}
}

func itemsText(items []model.CartItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		name := item.Name
		if name == "" {
			name = "Item"
		}
		parts = append(parts, fmt.Sprintf("%s x%d", name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

func displayID(order *model.Order) string {
	if order.DisplayID != "" {
		return order.DisplayID
	}
	return order.ID
}
