package app

import (
	"context"

	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/usecase"
)

// HealthChecker verifies connectivity to the store.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// OrderHub is the single entry point the HTTP layer, workers and operator tooling call into.
type OrderHub struct {
	auth          *usecase.AuthUseCase
	initiator     *usecase.Initiator
	finalizer     *usecase.Finalizer
	gatewayEvents *usecase.GatewayEvents
	conversation  *usecase.Conversation
	placement     *usecase.Placement
	remediations  *usecase.RemediationUseCase
	health        HealthChecker
}

// NewOrderHub constructs OrderHub.
func NewOrderHub(
	auth *usecase.AuthUseCase,
	initiator *usecase.Initiator,
	finalizer *usecase.Finalizer,
	gatewayEvents *usecase.GatewayEvents,
	conversation *usecase.Conversation,
	placement *usecase.Placement,
	remediations *usecase.RemediationUseCase,
	health HealthChecker,
) *OrderHub {
	return &OrderHub{
		auth:          auth,
		initiator:     initiator,
		finalizer:     finalizer,
		gatewayEvents: gatewayEvents,
		conversation:  conversation,
		placement:     placement,
		remediations:  remediations,
		health:        health,
	}
}

func (f *OrderHub) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	return f.auth.Authenticate(ctx, token)
}

func (f *OrderHub) Initiate(ctx context.Context, req model.InitiateRequest) (*model.InitiateResult, error) {
	return f.initiator.Initiate(ctx, req)
}

// Finalize runs client-driven finalization. Client contexts are never trusted.
func (f *OrderHub) Finalize(ctx context.Context, pc model.PaymentContext) (*model.FinalizeResult, error) {
	pc.Trusted = false
	pc.PaidAmount = 0
	return f.finalizer.Finalize(ctx, pc)
}

func (f *OrderHub) ReceiveGatewayEvent(ctx context.Context, raw []byte, signature string) (*model.FinalizeResult, error) {
	return f.gatewayEvents.Receive(ctx, raw, signature)
}

// WaitGatewayEvents blocks until background gateway event processing drains.
func (f *OrderHub) WaitGatewayEvents() {
	f.gatewayEvents.Wait()
}

func (f *OrderHub) VerifyMessagingHandshake(mode, token, challenge string) (string, error) {
	return f.conversation.VerifyHandshake(mode, token, challenge)
}

func (f *OrderHub) HandleInboundMessage(ctx context.Context, msg model.InboundMessage) error {
	return f.conversation.Handle(ctx, msg)
}

func (f *OrderHub) NotifyPlaced(ctx context.Context, orderID string, source model.TriggerSource) (bool, error) {
	return f.placement.NotifyPlaced(ctx, orderID, source)
}

func (f *OrderHub) AwaitingNotification(ctx context.Context, limit int) ([]string, error) {
	return f.placement.AwaitingNotification(ctx, limit)
}

func (f *OrderHub) OpenRemediations(ctx context.Context, limit int) ([]model.Remediation, error) {
	return f.remediations.Open(ctx, limit)
}

func (f *OrderHub) ResolveRemediation(ctx context.Context, id int64, note string) error {
	return f.remediations.Resolve(ctx, id, note)
}

func (f *OrderHub) Ping(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}
