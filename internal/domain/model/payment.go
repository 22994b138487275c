package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PaymentType distinguishes gateway payments from cash on delivery.
type PaymentType string

const (
	PaymentTypeOnline PaymentType = "online"
	PaymentTypeCOD    PaymentType = "cod"
)

// CODReference is sent to the ledger in place of gateway identifiers for cash orders.
const CODReference = "cod"

// GatewayPaymentCaptured is the gateway status of a settled payment.
const GatewayPaymentCaptured = "captured"

// OrderPayload is the caller-supplied order description bound to a payment token.
// All amounts are minor currency units.
type OrderPayload struct {
	OrderID      string      `json:"order_id"`
	UserID       string      `json:"user_id"`
	AddressID    string      `json:"address_id"`
	VendorID     string      `json:"vendor_id"`
	PaymentType  PaymentType `json:"payment_type"`
	Items        []CartItem  `json:"items"`
	ItemTotal    int64       `json:"item_total"`
	TaxCollected int64       `json:"tax_collected"`
	DeliveryFee  int64       `json:"delivery_fee"`
	PlatformFee  int64       `json:"platform_fee"`
	WalletUsed   int64       `json:"wallet_used"`
}

// Payable is the amount the gateway is expected to capture.
func (p OrderPayload) Payable() int64 {
	return p.ItemTotal + p.TaxCollected + p.DeliveryFee + p.PlatformFee - p.WalletUsed
}

// Hash returns the hex SHA-256 of the canonical JSON encoding of the payload.
func (p OrderPayload) Hash() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// PaymentContext is the input of payment finalization.
type PaymentContext struct {
	Payload        OrderPayload
	GatewayOrderID string
	PaymentID      string
	Signature      string
	Token          string
	PrincipalID    string

	// Trusted contexts come from a verified gateway event and skip client-side proofs.
	Trusted    bool
	PaidAmount int64
}

// GatewayOrder is an order created at the payment gateway.
type GatewayOrder struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// GatewayPayment is a payment as reported by the gateway.
type GatewayPayment struct {
	ID       string            `json:"id"`
	OrderID  string            `json:"order_id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Refund is the gateway acknowledgement of a refund.
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// InitiateRequest asks for a gateway order and a payment token.
type InitiateRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Payload     OrderPayload
	PrincipalID string
}

// InitiateResult is returned to the client to open the gateway checkout.
type InitiateResult struct {
	GatewayOrderID string `json:"order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Token          string `json:"token"`
}

// PaymentClaims are embedded into the short-lived payment token.
type PaymentClaims struct {
	Hash           string
	GatewayOrderID string
	UserID         string
}

// ToMinorUnits converts a major-unit amount to whole minor units, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FormatMajor renders minor units as a major-unit string with two decimals.
func FormatMajor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// ApplyDiscount returns amount reduced by percent, rounded to whole minor units.
func ApplyDiscount(amount, percent int64) int64 {
	if percent <= 0 {
		return amount
	}
	factor := decimal.NewFromInt(100 - percent).Div(decimal.NewFromInt(100))
	return decimal.NewFromInt(amount).Mul(factor).Round(0).IntPart()
}

// GatewayEvent is a webhook delivery from the payment gateway.
type GatewayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity GatewayPayment `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity GatewayOrder `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// InternalOrderID is the order id attached to the payment at initiation.
func (e *GatewayEvent) InternalOrderID() string {
	return e.Payload.Payment.Entity.Notes[NoteInternalOrderID]
}

// NoteInternalOrderID is the gateway note key carrying our order id.
const NoteInternalOrderID = "internal_order_id"
