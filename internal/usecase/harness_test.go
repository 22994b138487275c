package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/polkiloo/orderhub/internal/metrics"
	"github.com/polkiloo/orderhub/internal/pkg/auth"
	"github.com/polkiloo/orderhub/internal/test"
)

type harness struct {
	orders       *test.OrderRepositoryStub
	ledger       *test.LedgerRepositoryStub
	remediations *test.RemediationRepositoryStub
	messenger    *test.MessengerStub
	gateway      *test.GatewayStub
	tokens       *auth.PaymentTokens
	metrics      *metrics.Metrics

	guard      *Guard
	dispatcher *Dispatcher
	placement  *Placement
	machine    *StateMachine
	finalizer  *Finalizer
	slept      []time.Duration
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		orders:       test.NewOrderRepositoryStub(),
		ledger:       &test.LedgerRepositoryStub{},
		remediations: &test.RemediationRepositoryStub{},
		messenger:    &test.MessengerStub{},
		gateway:      &test.GatewayStub{},
		tokens:       auth.NewPaymentTokens(test.TokenSecret, time.Minute),
		metrics:      metrics.New(),
	}
	log := discardLogger()
	h.guard = NewGuard(h.orders, h.metrics)
	h.dispatcher = NewDispatcher(h.messenger, h.orders, h.remediations, h.metrics, log)
	h.placement = NewPlacement(h.guard, h.orders, h.dispatcher, log)
	h.machine = NewStateMachine(h.orders, h.dispatcher, h.metrics, 5*time.Minute, log)
	h.finalizer = NewFinalizer(
		h.ledger,
		h.gateway,
		auth.NewPaymentVerifier(test.KeySecret),
		h.tokens,
		h.guard,
		h.dispatcher,
		h.metrics,
		FinalizerOptions{CallTimeout: time.Second, RetryDelays: []time.Duration{0, 10 * time.Second, 15 * time.Second}},
		log,
	)
	h.finalizer.sleep = func(ctx context.Context, d time.Duration) error {
		h.slept = append(h.slept, d)
		return ctx.Err()
	}
	return h
}

func (h *harness) put(f test.Fixture) {
	h.orders.Put(f.Order, f.Vendor, f.Customer)
}
