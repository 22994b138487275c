package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/domain/repository"
	"github.com/polkiloo/orderhub/internal/pkg/auth"
)

// eventIntent is what the service does with a gateway event.
type eventIntent struct {
	record   bool
	finalize bool
}

// gatewayEventIntents is the single routing table for gateway events. Unlisted events are ignored.
var gatewayEventIntents = map[string]eventIntent{
	"order.paid":       {record: true, finalize: true},
	"payment.failed":   {record: true},
	"payment.captured": {},
}

// GatewayEvents verifies and routes payment gateway webhooks.
type GatewayEvents struct {
	verifier   auth.WebhookVerifier
	orders     repository.OrderRepository
	ledger     repository.LedgerRepository
	finalizer  *Finalizer
	dispatcher *Dispatcher
	logger     *slog.Logger
	async      bool

	inflight sync.WaitGroup
}

// NewGatewayEvents constructs GatewayEvents. With async set, Receive acknowledges right after
// signature verification and processes the event in the background.
func NewGatewayEvents(
	verifier auth.WebhookVerifier,
	orders repository.OrderRepository,
	ledger repository.LedgerRepository,
	finalizer *Finalizer,
	dispatcher *Dispatcher,
	async bool,
	logger *slog.Logger,
) *GatewayEvents {
	return &GatewayEvents{
		verifier:   verifier,
		orders:     orders,
		ledger:     ledger,
		finalizer:  finalizer,
		dispatcher: dispatcher,
		logger:     logger,
		async:      async,
	}
}

// Receive authenticates raw and handles the event it carries.
// raw must be the body exactly as received.
func (g *GatewayEvents) Receive(ctx context.Context, raw []byte, signature string) (*model.FinalizeResult, error) {
	if err := g.verifier.Verify(raw, signature); err != nil {
		g.logger.Warn("gateway webhook signature rejected")
		return nil, err
	}
	var event model.GatewayEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidPayload, err)
	}

	if !g.async {
		return g.Handle(ctx, &event)
	}

	detached := context.WithoutCancel(ctx)
	g.inflight.Add(1)
	go func() {
		defer g.inflight.Done()
		result, err := g.Handle(detached, &event)
		switch {
		case err != nil:
			g.remediate(detached, &event, err.Error())
		case result != nil && !result.Status.Succeeded():
			g.remediate(detached, &event, fmt.Sprintf("ledger answered %s: %s", result.Status, result.Detail))
		}
	}()
	return nil, nil
}

// remediate records a background outcome the gateway will not redeliver.
func (g *GatewayEvents) remediate(ctx context.Context, event *model.GatewayEvent, detail string) {
	payment := event.Payload.Payment.Entity
	g.logger.Error("background gateway event not completed",
		slog.String("event", event.Event),
		slog.String("payment_id", payment.ID),
		slog.String("detail", detail),
	)
	orderID := event.InternalOrderID()
	if orderID == "" {
		orderID = event.Payload.Order.Entity.ID
	}
	g.dispatcher.Remediate(ctx, model.RemediationGatewayEvent, orderID,
		fmt.Sprintf("%s payment %s: %s", event.Event, payment.ID, detail))
}

// Wait blocks until background continuations finish.
func (g *GatewayEvents) Wait() {
	g.inflight.Wait()
}

// Handle applies the routing table to a verified event.
// The result is nil unless the event finalized an order.
func (g *GatewayEvents) Handle(ctx context.Context, event *model.GatewayEvent) (*model.FinalizeResult, error) {
	intent, ok := gatewayEventIntents[event.Event]
	if !ok || (!intent.record && !intent.finalize) {
		g.logger.Info("gateway event ignored", slog.String("event", event.Event))
		return nil, nil
	}

	payment := event.Payload.Payment.Entity
	gatewayOrderID := event.Payload.Order.Entity.ID

	var pc model.PaymentContext
	if intent.finalize {
		var err error
		pc, err = g.paidContext(ctx, event)
		if err != nil {
			return nil, err
		}
	}

	if intent.record {
		rec := model.TransactionRecord{OrderID: gatewayOrderID, TransactionID: payment.ID, Event: event.Event}
		if err := g.ledger.RecordTransaction(ctx, rec); err != nil {
			return nil, err
		}
		g.logger.Info("gateway transaction recorded", slog.String("event", event.Event), slog.String("payment_id", payment.ID))
	}

	if !intent.finalize {
		return nil, nil
	}
	result, err := g.finalizer.Finalize(ctx, pc)
	if err != nil {
		return nil, err
	}
	g.logger.Info("order finalized from gateway event",
		slog.String("order_id", result.OrderID),
		slog.String("status", string(result.Status)),
	)
	return result, nil
}

// paidContext rebuilds a trusted payment context from the stored order.
func (g *GatewayEvents) paidContext(ctx context.Context, event *model.GatewayEvent) (model.PaymentContext, error) {
	orderID := event.InternalOrderID()
	if orderID == "" {
		return model.PaymentContext{}, fmt.Errorf("%w: %s missing", domainErrors.ErrInvalidPayload, model.NoteInternalOrderID)
	}
	order, err := g.orders.Get(ctx, orderID)
	if err != nil {
		return model.PaymentContext{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if len(order.Items) == 0 {
		return model.PaymentContext{}, fmt.Errorf("%w: order %s has no items", domainErrors.ErrInvalidPayload, orderID)
	}
	gatewayOrderID := event.Payload.Order.Entity.ID
	if order.GatewayOrderID != gatewayOrderID {
		return model.PaymentContext{}, fmt.Errorf("%w: stored %q, event %q",
			domainErrors.ErrPaymentOrderMismatch, order.GatewayOrderID, gatewayOrderID)
	}

	payment := event.Payload.Payment.Entity
	return model.PaymentContext{
		Payload: model.OrderPayload{
			OrderID:      order.ID,
			UserID:       order.CustomerID,
			AddressID:    order.AddressID,
			VendorID:     order.VendorID,
			PaymentType:  model.PaymentTypeOnline,
			Items:        order.Items,
			TaxCollected: order.TaxCollected,
		},
		GatewayOrderID: gatewayOrderID,
		PaymentID:      payment.ID,
		Trusted:        true,
		PaidAmount:     payment.Amount,
	}, nil
}
