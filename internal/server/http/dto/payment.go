package dto

import (
	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderhub/internal/domain/model"
)

// InitiateRequest opens a checkout for an order payload. Amount is in major units.
type InitiateRequest struct {
	Amount       decimal.Decimal    `json:"amount"`
	Currency     string             `json:"currency"`
	OrderPayload model.OrderPayload `json:"order_payload"`
}

// FinalizeRequest is sent by the client after the gateway checkout completes.
type FinalizeRequest struct {
	GatewayOrderID string             `json:"razorpay_order_id"`
	PaymentID      string             `json:"razorpay_payment_id"`
	Signature      string             `json:"razorpay_signature"`
	Token          string             `json:"token"`
	OrderPayload   model.OrderPayload `json:"order_payload"`
}

// ErrorResponse carries a human readable failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
