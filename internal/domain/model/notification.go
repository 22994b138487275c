package model

import "time"

// ClaimField names a single-use column on the order row.
type ClaimField string

const (
	ClaimFirstNotification ClaimField = "first_notification_claim"
	ClaimRefund            ClaimField = "refund_claim"
)

// Valid guards against arbitrary column names reaching SQL.
func (f ClaimField) Valid() bool {
	return f == ClaimFirstNotification || f == ClaimRefund
}

// ClaimResult reports the outcome of a claim attempt.
type ClaimResult struct {
	Acquired bool
	Prior    string
}

// TriggerSource identifies which adapter observed a placement.
type TriggerSource string

const (
	SourceWebhook    TriggerSource = "webhook"
	SourceSweep      TriggerSource = "sweep"
	SourceChangeFeed TriggerSource = "change_feed"
	SourceLedger     TriggerSource = "ledger"
)

// VendorAction is the button payload prefix a vendor replies with.
type VendorAction string

const (
	ActionAcceptOrder    VendorAction = "ACCEPT_ORDER"
	ActionStartPreparing VendorAction = "START_PREPARING"
	ActionPrepared       VendorAction = "PREPARED"
	ActionHandOver       VendorAction = "HAND_OVER"
)

// Template names used on the outbound messaging API.
const (
	TemplateOrderStatus    = "order_status"
	TemplateOrderPreparing = "order_preparing"
	TemplateOrderPrepared  = "order_prepared"
	TemplateOrderHandOver  = "order_hand_over"
)

// TemplateMessage is a templated outbound message.
type TemplateMessage struct {
	To         string
	Template   string
	Language   string
	Parameters []string
	// ButtonPayload is attached to the first quick-reply button when set.
	ButtonPayload string
}

// TextMessage is a free-text outbound message.
type TextMessage struct {
	To   string
	Body string
}

// Delivery is the handle the messaging API assigned to a sent message.
type Delivery struct {
	MessageID string
	SentAt    time.Time
}

// InboundMessage is a single message received on the messaging webhook.
type InboundMessage struct {
	From          string
	ButtonPayload string
	Text          string
	Timestamp     time.Time
}

// RemediationKind classifies entries in the remediation queue.
type RemediationKind string

const (
	RemediationFirstNotification RemediationKind = "first_notification"
	RemediationGatewayEvent      RemediationKind = "gateway_event"
	RemediationRefund            RemediationKind = "refund"
	RemediationDeliveryHandle    RemediationKind = "delivery_handle"
)

// Remediation is a failure recorded for manual follow-up.
type Remediation struct {
	ID         int64
	Kind       RemediationKind
	OrderID    string
	Detail     string
	CreatedAt  time.Time
	ResolvedAt *time.Time
	Resolution string
}

// Principal is an authenticated caller.
type Principal struct {
	UserID string
	Email  string
	Role   string
}
