package model

import (
	"strings"
	"time"
)

// OrderStatus describes the order lifecycle.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusPrepared  OrderStatus = "prepared"
	OrderStatusOnTheWay  OrderStatus = "on_the_way"
)

var nextStatus = map[OrderStatus]OrderStatus{
	OrderStatusPending:   OrderStatusAccepted,
	OrderStatusAccepted:  OrderStatusPreparing,
	OrderStatusPreparing: OrderStatusPrepared,
	OrderStatusPrepared:  OrderStatusOnTheWay,
}

// Next returns the status that follows s in the vendor-driven lifecycle.
func (s OrderStatus) Next() (OrderStatus, bool) {
	next, ok := nextStatus[s]
	return next, ok
}

// CartItem is a single order line with the agreed unit price in minor units.
type CartItem struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// Total returns quantity multiplied by unit price.
func (c CartItem) Total() int64 {
	return int64(c.Quantity) * c.UnitPrice
}

// Order is the persisted order row.
type Order struct {
	ID             string
	DisplayID      string
	Status         OrderStatus
	VendorID       string
	CustomerID     string
	AddressID      string
	Items          []CartItem
	TaxCollected   int64
	FinalAmount    int64
	GatewayOrderID string
	PaymentID      string
	HandoverCode   string

	CreatedAt   time.Time
	AcceptedAt  *time.Time
	PreparingAt *time.Time
	PreparedAt  *time.Time
	OnTheWayAt  *time.Time

	MessageID         string
	MessageCreatedAt  *time.Time
	HandoverStartedAt *time.Time

	FirstNotificationClaim *string
	RefundClaim            *string
}

// ItemTotal sums every line of the cart.
func (o *Order) ItemTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Total()
	}
	return total
}

// MessageAge reports how long ago the last outbound message was sent.
// The second result is false when no message has been recorded.
func (o *Order) MessageAge(now time.Time) (time.Duration, bool) {
	if o.MessageCreatedAt == nil {
		return 0, false
	}
	return now.Sub(*o.MessageCreatedAt), true
}

// Vendor is the preparer the order is routed to.
type Vendor struct {
	ID       string
	Name     string
	Contact  string
	Blocked  bool
	Discount int64
}

// Customer is the ordering user as seen by the vendor.
type Customer struct {
	ID    string
	Name  string
	Phone string
}

// OrderDetails bundles everything a placement notification needs.
type OrderDetails struct {
	Order    Order
	Vendor   Vendor
	Customer Customer
}

// NormalizeContact keeps digits only so handles from different sources compare equal.
func NormalizeContact(contact string) string {
	var b strings.Builder
	b.Grow(len(contact))
	for _, r := range contact {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Authorizes reports whether contact belongs to the vendor and the vendor may act.
func (v Vendor) Authorizes(contact string) bool {
	if v.Blocked {
		return false
	}
	want := NormalizeContact(v.Contact)
	return want != "" && want == NormalizeContact(contact)
}
