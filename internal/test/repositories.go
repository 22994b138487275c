package test

import (
	"context"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
)

// OrderRepositoryStub keeps orders in memory and applies every mutation as a
// conditional update under a single mutex, like the store does.
type OrderRepositoryStub struct {
	mu      sync.Mutex
	Orders  map[string]*model.Order
	Vendors map[string]model.Vendor
	Users   map[string]model.Customer

	// Err is returned from every call when set.
	Err error
	// RecordDeliveryErr fails only RecordDelivery.
	RecordDeliveryErr error

	TransitionFn func(context.Context, string, model.OrderStatus, model.OrderStatus) (bool, error)
	Now          func() time.Time
}

// NewOrderRepositoryStub constructs stub repository with initialized maps.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{
		Orders:  make(map[string]*model.Order),
		Vendors: make(map[string]model.Vendor),
		Users:   make(map[string]model.Customer),
	}
}

// Put stores a copy of order, vendor and customer.
func (s *OrderRepositoryStub) Put(order model.Order, vendor model.Vendor, customer model.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.VendorID = vendor.ID
	order.CustomerID = customer.ID
	s.Orders[order.ID] = &order
	s.Vendors[vendor.ID] = vendor
	s.Users[customer.ID] = customer
}

// Snapshot returns a copy of the stored order.
func (s *OrderRepositoryStub) Snapshot(id string) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.Orders[id]; ok {
		return *o
	}
	return model.Order{}
}

func (s *OrderRepositoryStub) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Get fetches order by id.
func (s *OrderRepositoryStub) Get(ctx context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	o, ok := s.Orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

// Details joins order with its vendor and customer.
func (s *OrderRepositoryStub) Details(ctx context.Context, id string) (*model.OrderDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	o, ok := s.Orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	vendor, ok := s.Vendors[o.VendorID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &model.OrderDetails{Order: *o, Vendor: vendor, Customer: s.Users[o.CustomerID]}, nil
}

// Transition sets status to to only when it currently equals from.
func (s *OrderRepositoryStub) Transition(ctx context.Context, id string, from, to model.OrderStatus) (bool, error) {
	if s.TransitionFn != nil {
		return s.TransitionFn(ctx, id, from, to)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	o, ok := s.Orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	now := s.now()
	switch to {
	case model.OrderStatusAccepted:
		o.AcceptedAt = &now
	case model.OrderStatusPreparing:
		o.PreparingAt = &now
	case model.OrderStatusPrepared:
		o.PreparedAt = &now
	case model.OrderStatusOnTheWay:
		o.OnTheWayAt = &now
	}
	return true, nil
}

// Claim sets field to marker only when it is unset.
func (s *OrderRepositoryStub) Claim(ctx context.Context, id string, field model.ClaimField, marker string) (model.ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return model.ClaimResult{}, s.Err
	}
	o, ok := s.Orders[id]
	if !ok {
		return model.ClaimResult{}, domainErrors.ErrNotFound
	}
	var slot **string
	switch field {
	case model.ClaimFirstNotification:
		slot = &o.FirstNotificationClaim
	case model.ClaimRefund:
		slot = &o.RefundClaim
	default:
		return model.ClaimResult{}, domainErrors.ErrInvalidPayload
	}
	if *slot != nil {
		return model.ClaimResult{Prior: **slot}, nil
	}
	m := marker
	*slot = &m
	return model.ClaimResult{Acquired: true}, nil
}

// RecordDelivery stores the message handle while the order is still in status.
func (s *OrderRepositoryStub) RecordDelivery(ctx context.Context, id string, status model.OrderStatus, delivery model.Delivery) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if s.RecordDeliveryErr != nil {
		return false, s.RecordDeliveryErr
	}
	o, ok := s.Orders[id]
	if !ok || o.Status != status {
		return false, nil
	}
	sentAt := delivery.SentAt
	o.MessageID = delivery.MessageID
	o.MessageCreatedAt = &sentAt
	return true, nil
}

// BeginHandover marks code entry started for a prepared order with a code.
func (s *OrderRepositoryStub) BeginHandover(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	o, ok := s.Orders[id]
	if !ok || o.Status != model.OrderStatusPrepared || o.HandoverCode == "" {
		return false, nil
	}
	now := s.now()
	o.HandoverStartedAt = &now
	return true, nil
}

// PendingHandoverForContact returns the latest prepared order awaiting a code from contact.
func (s *OrderRepositoryStub) PendingHandoverForContact(ctx context.Context, contact string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	want := model.NormalizeContact(contact)
	var found *model.Order
	for _, o := range s.Orders {
		if o.Status != model.OrderStatusPrepared || o.HandoverStartedAt == nil {
			continue
		}
		if model.NormalizeContact(s.Vendors[o.VendorID].Contact) != want {
			continue
		}
		if found == nil || o.HandoverStartedAt.After(*found.HandoverStartedAt) {
			found = o
		}
	}
	if found == nil {
		return nil, domainErrors.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

// ListAwaitingFirstNotification returns unclaimed pending orders ordered by creation time.
func (s *OrderRepositoryStub) ListAwaitingFirstNotification(ctx context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var pending []*model.Order
	for _, o := range s.Orders {
		if o.Status == model.OrderStatusPending && o.FirstNotificationClaim == nil {
			pending = append(pending, o)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	ids := make([]string, 0, len(pending))
	for i, o := range pending {
		if limit > 0 && i >= limit {
			break
		}
		ids = append(ids, o.ID)
	}
	return ids, nil
}

// UserRepositoryStub reports blocked flags from a map. Unknown users are not found.
type UserRepositoryStub struct {
	Blocked map[string]bool
	Err     error
}

// IsBlocked returns the configured flag for userID.
func (s UserRepositoryStub) IsBlocked(ctx context.Context, userID string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	blocked, ok := s.Blocked[userID]
	if !ok {
		return false, domainErrors.ErrNotFound
	}
	return blocked, nil
}

// LedgerRepositoryStub allows tests to customize ledger procedure behaviour and records calls.
type LedgerRepositoryStub struct {
	mu sync.Mutex

	PlaceOrderFn        func(context.Context, model.LedgerRequest) (*model.LedgerResponse, error)
	RecordTransactionFn func(context.Context, model.TransactionRecord) error
	DebitWalletFn       func(context.Context, model.WalletDebit) error
	debited             map[string]bool

	Placed       []model.LedgerRequest
	Transactions []model.TransactionRecord
	Debits       []model.WalletDebit
}

// PlaceOrder records req and delegates to PlaceOrderFn, answering success by default.
func (s *LedgerRepositoryStub) PlaceOrder(ctx context.Context, req model.LedgerRequest) (*model.LedgerResponse, error) {
	s.mu.Lock()
	s.Placed = append(s.Placed, req)
	s.mu.Unlock()
	if s.PlaceOrderFn != nil {
		return s.PlaceOrderFn(ctx, req)
	}
	return &model.LedgerResponse{Status: model.StatusSuccess, OrderID: req.OrderID}, nil
}

// RecordTransaction records rec.
func (s *LedgerRepositoryStub) RecordTransaction(ctx context.Context, rec model.TransactionRecord) error {
	if s.RecordTransactionFn != nil {
		if err := s.RecordTransactionFn(ctx, rec); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Transactions = append(s.Transactions, rec)
	return nil
}

// DebitWallet records debit once per order.
func (s *LedgerRepositoryStub) DebitWallet(ctx context.Context, debit model.WalletDebit) (bool, error) {
	if s.DebitWalletFn != nil {
		if err := s.DebitWalletFn(ctx, debit); err != nil {
			return false, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debited[debit.OrderID] {
		return false, nil
	}
	if s.debited == nil {
		s.debited = make(map[string]bool)
	}
	s.debited[debit.OrderID] = true
	s.Debits = append(s.Debits, debit)
	return true, nil
}

// PlacedCount returns how many times PlaceOrder was called.
func (s *LedgerRepositoryStub) PlacedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Placed)
}

// RemediationRepositoryStub is an in-memory remediation queue.
type RemediationRepositoryStub struct {
	mu      sync.Mutex
	Entries []model.Remediation
	Err     error
}

// Enqueue appends an open entry.
func (s *RemediationRepositoryStub) Enqueue(ctx context.Context, kind model.RemediationKind, orderID, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Entries = append(s.Entries, model.Remediation{
		ID:        int64(len(s.Entries) + 1),
		Kind:      kind,
		OrderID:   orderID,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
	return nil
}

// ListOpen returns unresolved entries in insertion order.
func (s *RemediationRepositoryStub) ListOpen(ctx context.Context, limit int) ([]model.Remediation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var open []model.Remediation
	for _, e := range s.Entries {
		if e.ResolvedAt != nil {
			continue
		}
		if limit > 0 && len(open) >= limit {
			break
		}
		open = append(open, e)
	}
	return open, nil
}

// Resolve closes entry id.
func (s *RemediationRepositoryStub) Resolve(ctx context.Context, id int64, resolution string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for i := range s.Entries {
		if s.Entries[i].ID == id && s.Entries[i].ResolvedAt == nil {
			now := time.Now()
			s.Entries[i].ResolvedAt = &now
			s.Entries[i].Resolution = resolution
			return nil
		}
	}
	return domainErrors.ErrNotFound
}

// Kinds returns the kinds of all entries.
func (s *RemediationRepositoryStub) Kinds() []model.RemediationKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]model.RemediationKind, 0, len(s.Entries))
	for _, e := range s.Entries {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
