package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
)

// Verifier checks hex encoded HMAC-SHA256 signatures made with a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier builds Verifier for the given secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns the hex HMAC-SHA256 of payload.
func (v *Verifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares signature against the HMAC of the raw payload in constant time.
// payload must be the bytes exactly as received.
func (v *Verifier) Verify(payload []byte, signature string) error {
	if len(v.secret) == 0 || signature == "" {
		return domainErrors.ErrInvalidSignature
	}
	expected := v.Sign(payload)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return domainErrors.ErrInvalidSignature
	}
	return nil
}

// WebhookVerifier authenticates gateway webhook deliveries.
type WebhookVerifier struct {
	*Verifier
}

// NewWebhookVerifier builds a verifier for the webhook secret.
func NewWebhookVerifier(secret string) WebhookVerifier {
	return WebhookVerifier{Verifier: NewVerifier(secret)}
}

// PaymentVerifier authenticates the checkout signature returned to the client.
type PaymentVerifier struct {
	*Verifier
}

// NewPaymentVerifier builds a verifier keyed with the gateway key secret.
func NewPaymentVerifier(secret string) PaymentVerifier {
	return PaymentVerifier{Verifier: NewVerifier(secret)}
}

// VerifyPayment checks the signature over "gatewayOrderID|paymentID".
func (v PaymentVerifier) VerifyPayment(gatewayOrderID, paymentID, signature string) error {
	if gatewayOrderID == "" || paymentID == "" {
		return domainErrors.ErrInvalidSignature
	}
	return v.Verify([]byte(gatewayOrderID+"|"+paymentID), signature)
}
