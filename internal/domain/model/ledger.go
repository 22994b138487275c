package model

import "net/http"

// FinalizeStatus is the outcome tag of payment finalization.
type FinalizeStatus string

const (
	StatusSuccess               FinalizeStatus = "success"
	StatusAlreadyProcessed      FinalizeStatus = "already_processed"
	StatusAlreadyFailed         FinalizeStatus = "already_failed"
	StatusProcessing            FinalizeStatus = "processing"
	StatusVendorNotFound        FinalizeStatus = "vendor_not_found"
	StatusItemNotFound          FinalizeStatus = "item_not_found"
	StatusAddressNotFound       FinalizeStatus = "address_not_found"
	StatusVendorDeactivated     FinalizeStatus = "vendor_deactivated"
	StatusItemDeactivated       FinalizeStatus = "item_deactivated"
	StatusMinimumOrderNotMet    FinalizeStatus = "minimum_order_not_met"
	StatusPriceChange           FinalizeStatus = "price_change"
	StatusPaymentAmountMismatch FinalizeStatus = "payment_amount_mismatch"
)

var statusHTTP = map[FinalizeStatus]int{
	StatusSuccess:               http.StatusOK,
	StatusAlreadyProcessed:      http.StatusOK,
	StatusAlreadyFailed:         http.StatusConflict,
	StatusProcessing:            http.StatusAccepted,
	StatusVendorNotFound:        http.StatusNotFound,
	StatusItemNotFound:          http.StatusNotFound,
	StatusAddressNotFound:       http.StatusNotFound,
	StatusVendorDeactivated:     http.StatusGone,
	StatusItemDeactivated:       http.StatusGone,
	StatusMinimumOrderNotMet:    http.StatusBadRequest,
	StatusPriceChange:           http.StatusConflict,
	StatusPaymentAmountMismatch: http.StatusBadRequest,
}

// Known reports whether the ledger is allowed to return s.
func (s FinalizeStatus) Known() bool {
	_, ok := statusHTTP[s]
	return ok
}

// Succeeded is true for a fresh or duplicate successful placement.
func (s FinalizeStatus) Succeeded() bool {
	return s == StatusSuccess || s == StatusAlreadyProcessed
}

// HTTPStatus maps the tag onto a response code. Unknown tags are server errors.
func (s FinalizeStatus) HTTPStatus() int {
	if code, ok := statusHTTP[s]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// LedgerRequest is the argument of the order placement procedure.
type LedgerRequest struct {
	OrderID        string      `json:"p_order_id"`
	PaymentType    PaymentType `json:"p_payment_type"`
	PaymentID      string      `json:"p_payment_id"`
	GatewayOrderID string      `json:"p_razorpay_order_id"`
	PaidAmount     int64       `json:"p_paid_amount"`
	UserID         string      `json:"p_user_id"`
	AddressID      string      `json:"p_address_id"`
	VendorID       string      `json:"p_cart_vendor_id"`
	Items          []CartItem  `json:"p_cart_items"`
	TaxCollected   int64       `json:"p_tax_collected"`
}

// LedgerResponse is the reply of the order placement procedure.
type LedgerResponse struct {
	Status       FinalizeStatus `json:"status"`
	OrderID      string         `json:"order_id,omitempty"`
	PaymentID    string         `json:"payment_id,omitempty"`
	RefundAmount int64          `json:"refund_amount,omitempty"`
	Message      string         `json:"message,omitempty"`
	ItemID       string         `json:"item_id,omitempty"`
}

// FinalizeResult is what finalization reports to its caller.
type FinalizeResult struct {
	Status   FinalizeStatus `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	OrderID  string         `json:"order_id,omitempty"`
	Refunded int64          `json:"refunded,omitempty"`
}

// TransactionRecord is written for every actionable gateway event.
type TransactionRecord struct {
	OrderID       string `json:"p_order_id"`
	TransactionID string `json:"p_transaction_id"`
	Event         string `json:"p_order_status"`
}

// WalletDebit removes wallet credit used towards an order.
type WalletDebit struct {
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
}
