package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderhub/internal/adapter/gateway"
	"github.com/polkiloo/orderhub/internal/adapter/messaging"
	"github.com/polkiloo/orderhub/internal/config"
	"github.com/polkiloo/orderhub/internal/domain/repository"
	"github.com/polkiloo/orderhub/internal/logger"
	"github.com/polkiloo/orderhub/internal/metrics"
	"github.com/polkiloo/orderhub/internal/pkg/auth"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewGuard,
	newDispatcher,
	newPlacement,
	newStateMachine,
	newFinalizer,
	newInitiator,
	newGatewayEvents,
	newConversation,
	NewAuthUseCase,
	NewRemediationUseCase,
)

type params struct {
	fx.In

	Config       *config.Config
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Orders       repository.OrderRepository
	Ledger       repository.LedgerRepository
	Remediations repository.RemediationRepository
}

func newDispatcher(p params, messenger messaging.Client) *Dispatcher {
	return NewDispatcher(messenger, p.Orders, p.Remediations, p.Metrics, logger.Component(p.Logger, "dispatcher"))
}

func newPlacement(p params, guard *Guard, dispatcher *Dispatcher) *Placement {
	return NewPlacement(guard, p.Orders, dispatcher, logger.Component(p.Logger, "placement"))
}

func newStateMachine(p params, dispatcher *Dispatcher) *StateMachine {
	return NewStateMachine(p.Orders, dispatcher, p.Metrics, p.Config.MessageFreshness, logger.Component(p.Logger, "state_machine"))
}

func newFinalizer(
	p params,
	gw gateway.Client,
	payments auth.PaymentVerifier,
	tokens *auth.PaymentTokens,
	guard *Guard,
	dispatcher *Dispatcher,
) *Finalizer {
	opts := FinalizerOptions{CallTimeout: p.Config.FinalizeTimeout, RetryDelays: p.Config.FinalizeRetryDelays}
	return NewFinalizer(p.Ledger, gw, payments, tokens, guard, dispatcher, p.Metrics, opts, logger.Component(p.Logger, "finalizer"))
}

func newInitiator(p params, gw gateway.Client, tokens *auth.PaymentTokens) *Initiator {
	return NewInitiator(gw, tokens, p.Config.MinOrderTotal)
}

func newGatewayEvents(p params, verifier auth.WebhookVerifier, finalizer *Finalizer, dispatcher *Dispatcher) *GatewayEvents {
	return NewGatewayEvents(verifier, p.Orders, p.Ledger, finalizer, dispatcher, p.Config.WebhookAsync, logger.Component(p.Logger, "gateway_events"))
}

func newConversation(p params, machine *StateMachine, dispatcher *Dispatcher) *Conversation {
	return NewConversation(machine, p.Orders, dispatcher, p.Config.MessagingVerifyToken, logger.Component(p.Logger, "conversation"))
}
