package handlers

import (
	"context"

	"github.com/polkiloo/orderhub/internal/domain/model"
)

// AuthFacade resolves bearer tokens.
type AuthFacade interface {
	Authenticate(ctx context.Context, token string) (*model.Principal, error)
}

// PaymentFacade encapsulates checkout operations exposed via HTTP.
type PaymentFacade interface {
	Initiate(ctx context.Context, req model.InitiateRequest) (*model.InitiateResult, error)
	Finalize(ctx context.Context, pc model.PaymentContext) (*model.FinalizeResult, error)
}

// WebhookFacade handles inbound deliveries from the gateway, the messaging API and the order store.
type WebhookFacade interface {
	ReceiveGatewayEvent(ctx context.Context, raw []byte, signature string) (*model.FinalizeResult, error)
	VerifyMessagingHandshake(mode, token, challenge string) (string, error)
	HandleInboundMessage(ctx context.Context, msg model.InboundMessage) error
	NotifyPlaced(ctx context.Context, orderID string, source model.TriggerSource) (bool, error)
}

// HealthFacade reports dependency health.
type HealthFacade interface {
	Ping(ctx context.Context) error
}

// OrderHubFacade aggregates the full set of operations used across handlers.
type OrderHubFacade interface {
	AuthFacade
	PaymentFacade
	WebhookFacade
	HealthFacade
}
