package test

import (
	"github.com/polkiloo/orderhub/internal/adapter/gateway"
	"github.com/polkiloo/orderhub/internal/adapter/identity"
	"github.com/polkiloo/orderhub/internal/adapter/messaging"
	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/pkg/auth"
)

var errUnauthenticated = domainErrors.ErrUnauthenticated

// Secrets used across test suites.
const (
	WebhookSecret = "whsec_test"
	KeySecret     = "key_secret_test"
	TokenSecret   = "token_secret_test"
)

// SignWebhook signs body the way the payment gateway does.
func SignWebhook(body []byte) string {
	return auth.NewWebhookVerifier(WebhookSecret).Sign(body)
}

// SignPayment signs the checkout callback for the pair.
func SignPayment(gatewayOrderID, paymentID string) string {
	return auth.NewPaymentVerifier(KeySecret).Sign([]byte(gatewayOrderID + "|" + paymentID))
}

var (
	_ gateway.Client   = (*GatewayStub)(nil)
	_ messaging.Client = (*MessengerStub)(nil)
	_ identity.Client  = IdentityStub{}
)
