package auth

import (
	"go.uber.org/fx"

	"github.com/polkiloo/orderhub/internal/config"
)

// Module provides signature verifiers and payment tokens via fx.
var Module = fx.Options(
	fx.Provide(newWebhookVerifier),
	fx.Provide(newPaymentVerifier),
	fx.Provide(newPaymentTokens),
)

type authParams struct {
	fx.In

	Config *config.Config
}

func newWebhookVerifier(p authParams) WebhookVerifier {
	return NewWebhookVerifier(p.Config.GatewayWebhookSecret)
}

func newPaymentVerifier(p authParams) PaymentVerifier {
	return NewPaymentVerifier(p.Config.GatewayKeySecret)
}

func newPaymentTokens(p authParams) *PaymentTokens {
	return NewPaymentTokens(p.Config.PaymentTokenSecret, p.Config.PaymentTokenTTL)
}
