package errors

import "errors"

// Authentication and authorization.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrVendorUnauthorized = errors.New("actor is not authorized for this order")
)

// Validation.
var (
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrInvalidPaymentToken  = errors.New("invalid payment token")
	ErrPayloadTampered      = errors.New("order payload does not match payment token")
	ErrAmountMismatch       = errors.New("payment amount mismatch")
	ErrPaymentNotCaptured   = errors.New("payment not captured")
	ErrPaymentOrderMismatch = errors.New("payment does not belong to gateway order")
	ErrMinimumOrder         = errors.New("minimum order value not met")
	ErrWalletDebitFailed    = errors.New("failed to deduct wallet balance")
)

// Business state.
var (
	ErrNotInExpectedState  = errors.New("order not in expected state")
	ErrMessageExpired      = errors.New("message expired")
	ErrInvalidHandoverCode = errors.New("invalid handover code")
	ErrNotFound            = errors.New("not found")
)

// Infrastructure.
var (
	ErrLedgerTimeout     = errors.New("ledger procedure timed out")
	ErrContractViolation = errors.New("unexpected response from collaborator")
)
