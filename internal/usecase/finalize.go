package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/polkiloo/orderhub/internal/adapter/gateway"
	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/domain/repository"
	"github.com/polkiloo/orderhub/internal/metrics"
	"github.com/polkiloo/orderhub/internal/pkg/auth"
)

// FinalizerOptions tunes the ledger call.
type FinalizerOptions struct {
	// CallTimeout bounds each ledger attempt.
	CallTimeout time.Duration
	// RetryDelays are waited before each attempt; its length is the attempt count.
	RetryDelays []time.Duration
}

// Finalizer confirms a payment and places the order through the ledger procedure.
type Finalizer struct {
	ledger     repository.LedgerRepository
	gateway    gateway.Client
	payments   auth.PaymentVerifier
	tokens     *auth.PaymentTokens
	guard      *Guard
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	opts       FinalizerOptions
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewFinalizer constructs Finalizer.
func NewFinalizer(
	ledger repository.LedgerRepository,
	gw gateway.Client,
	payments auth.PaymentVerifier,
	tokens *auth.PaymentTokens,
	guard *Guard,
	dispatcher *Dispatcher,
	m *metrics.Metrics,
	opts FinalizerOptions,
	logger *slog.Logger,
) *Finalizer {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 3 * time.Second
	}
	if len(opts.RetryDelays) == 0 {
		opts.RetryDelays = []time.Duration{0}
	}
	return &Finalizer{
		ledger:     ledger,
		gateway:    gw,
		payments:   payments,
		tokens:     tokens,
		guard:      guard,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		opts:       opts,
		sleep:      sleepContext,
	}
}

// Finalize verifies pc, calls the ledger and classifies its answer.
// Verification failures are returned as errors; every ledger outcome is a result status.
func (f *Finalizer) Finalize(ctx context.Context, pc model.PaymentContext) (*model.FinalizeResult, error) {
	req, err := f.verify(ctx, pc)
	if err != nil {
		return nil, err
	}

	resp, err := f.place(ctx, req)
	if errors.Is(err, domainErrors.ErrLedgerTimeout) {
		f.logger.Warn("ledger did not confirm in time", slog.String("order_id", req.OrderID))
		f.metrics.Finalization(string(model.StatusProcessing))
		return &model.FinalizeResult{
			Status:  model.StatusProcessing,
			Detail:  "payment received, order confirmation pending",
			OrderID: req.OrderID,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if !resp.Status.Known() {
		f.logger.Error("ledger returned unknown status",
			slog.String("order_id", req.OrderID),
			slog.String("status", string(resp.Status)),
		)
		f.metrics.Finalization("unknown")
		return nil, fmt.Errorf("%w: ledger status %q", domainErrors.ErrContractViolation, resp.Status)
	}
	f.metrics.Finalization(string(resp.Status))

	result := &model.FinalizeResult{Status: resp.Status, Detail: resp.Message, OrderID: req.OrderID}
	if resp.OrderID != "" {
		result.OrderID = resp.OrderID
	}
	if resp.Status == model.StatusAlreadyFailed && resp.RefundAmount > 0 {
		paymentID := resp.PaymentID
		if paymentID == "" {
			paymentID = req.PaymentID
		}
		result.Refunded = f.refund(ctx, result.OrderID, paymentID, resp.RefundAmount, sourceOf(pc))
	}
	return result, nil
}

func sourceOf(pc model.PaymentContext) model.TriggerSource {
	if pc.Trusted {
		return model.SourceWebhook
	}
	return model.SourceLedger
}

// verify runs every check that must precede the ledger call and builds its request.
func (f *Finalizer) verify(ctx context.Context, pc model.PaymentContext) (model.LedgerRequest, error) {
	p := pc.Payload
	if p.OrderID == "" || p.UserID == "" {
		return model.LedgerRequest{}, domainErrors.ErrInvalidPayload
	}
	req := model.LedgerRequest{
		OrderID:        p.OrderID,
		PaymentType:    p.PaymentType,
		PaymentID:      model.CODReference,
		GatewayOrderID: model.CODReference,
		UserID:         p.UserID,
		AddressID:      p.AddressID,
		VendorID:       p.VendorID,
		Items:          p.Items,
		TaxCollected:   p.TaxCollected,
	}

	if pc.Trusted {
		req.PaymentType = model.PaymentTypeOnline
		req.PaymentID = pc.PaymentID
		req.GatewayOrderID = pc.GatewayOrderID
		req.PaidAmount = pc.PaidAmount
		return req, nil
	}

	if pc.PrincipalID == "" || pc.PrincipalID != p.UserID {
		return req, domainErrors.ErrForbidden
	}

	switch p.PaymentType {
	case model.PaymentTypeCOD:
	case model.PaymentTypeOnline:
		paid, err := f.verifyOnline(ctx, pc)
		if err != nil {
			return req, err
		}
		req.PaymentID = pc.PaymentID
		req.GatewayOrderID = pc.GatewayOrderID
		req.PaidAmount = paid
	default:
		return req, fmt.Errorf("payment type %q: %w", p.PaymentType, domainErrors.ErrInvalidPayload)
	}

	if p.WalletUsed > 0 {
		debit := model.WalletDebit{UserID: p.UserID, OrderID: p.OrderID, Amount: p.WalletUsed}
		applied, err := f.ledger.DebitWallet(ctx, debit)
		if err != nil {
			f.logger.Error("wallet debit failed", slog.String("order_id", p.OrderID), slog.String("error", err.Error()))
			return req, fmt.Errorf("%w: %v", domainErrors.ErrWalletDebitFailed, err)
		}
		if !applied {
			f.logger.Info("wallet already debited for order", slog.String("order_id", p.OrderID))
		}
	}
	return req, nil
}

func (f *Finalizer) verifyOnline(ctx context.Context, pc model.PaymentContext) (int64, error) {
	if pc.GatewayOrderID == "" || pc.PaymentID == "" || pc.Signature == "" {
		return 0, domainErrors.ErrInvalidPayload
	}
	if pc.Token == "" {
		return 0, domainErrors.ErrInvalidPaymentToken
	}
	claims, err := f.tokens.Parse(pc.Token)
	if err != nil {
		return 0, err
	}
	if claims.UserID != pc.PrincipalID {
		return 0, domainErrors.ErrForbidden
	}
	if claims.GatewayOrderID != pc.GatewayOrderID {
		return 0, domainErrors.ErrPaymentOrderMismatch
	}
	hash, err := pc.Payload.Hash()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domainErrors.ErrInvalidPayload, err)
	}
	if hash != claims.Hash {
		return 0, domainErrors.ErrPayloadTampered
	}
	if err := f.payments.VerifyPayment(pc.GatewayOrderID, pc.PaymentID, pc.Signature); err != nil {
		return 0, err
	}

	payment, err := f.gateway.FetchPayment(ctx, pc.PaymentID)
	if err != nil {
		if errors.Is(err, gateway.ErrPaymentNotFound) {
			return 0, fmt.Errorf("payment %s: %w", pc.PaymentID, domainErrors.ErrNotFound)
		}
		return 0, err
	}
	if payment.OrderID != pc.GatewayOrderID {
		return 0, domainErrors.ErrPaymentOrderMismatch
	}
	if payment.Status != model.GatewayPaymentCaptured {
		return 0, fmt.Errorf("%w: status %s", domainErrors.ErrPaymentNotCaptured, payment.Status)
	}
	if payment.Amount != pc.Payload.Payable() {
		return 0, fmt.Errorf("%w: captured %d, expected %d", domainErrors.ErrAmountMismatch, payment.Amount, pc.Payload.Payable())
	}
	return payment.Amount, nil
}

// place calls the ledger, retrying only on timeouts.
func (f *Finalizer) place(ctx context.Context, req model.LedgerRequest) (*model.LedgerResponse, error) {
	for attempt, delay := range f.opts.RetryDelays {
		if delay > 0 {
			if err := f.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, f.opts.CallTimeout)
		resp, err := f.ledger.PlaceOrder(callCtx, req)
		cancel()
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, domainErrors.ErrLedgerTimeout) {
			return nil, err
		}
		f.logger.Warn("ledger attempt timed out",
			slog.String("order_id", req.OrderID),
			slog.Int("attempt", attempt+1),
			slog.Int("attempts", len(f.opts.RetryDelays)),
		)
	}
	return nil, domainErrors.ErrLedgerTimeout
}

// refund returns amount to the payer once per order and reports the refunded amount.
func (f *Finalizer) refund(ctx context.Context, orderID, paymentID string, amount int64, source model.TriggerSource) int64 {
	claim, err := f.guard.Claim(ctx, orderID, model.ClaimRefund, source)
	if err != nil {
		f.logger.Error("refund claim failed", slog.String("order_id", orderID), slog.String("error", err.Error()))
		f.metrics.Refund(metrics.ResultError)
		f.dispatcher.Remediate(ctx, model.RemediationRefund, orderID,
			fmt.Sprintf("refund %d on %s not attempted: %v", amount, paymentID, err))
		return 0
	}
	if !claim.Acquired {
		f.metrics.Refund(metrics.ResultSkipped)
		f.logger.Info("refund already issued", slog.String("order_id", orderID), slog.String("claimed_by", claim.Prior))
		return 0
	}

	refund, err := f.gateway.Refund(ctx, paymentID, amount)
	if err != nil {
		f.metrics.Refund(metrics.ResultFailed)
		f.logger.Error("refund failed", slog.String("order_id", orderID), slog.String("payment_id", paymentID), slog.String("error", err.Error()))
		f.dispatcher.Remediate(ctx, model.RemediationRefund, orderID,
			fmt.Sprintf("refund %d on %s failed: %v", amount, paymentID, err))
		return 0
	}
	f.metrics.Refund(metrics.ResultIssued)
	f.logger.Info("refund issued",
		slog.String("order_id", orderID),
		slog.String("refund_id", refund.ID),
		slog.Int64("amount", amount),
	)
	return amount
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
