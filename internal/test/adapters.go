package test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polkiloo/orderhub/internal/domain/model"
)

// GatewayStub simulates the payment gateway and records refunds.
type GatewayStub struct {
	mu sync.Mutex

	CreateOrderFn  func(context.Context, int64, string, string, map[string]string) (*model.GatewayOrder, error)
	FetchPaymentFn func(context.Context, string) (*model.GatewayPayment, error)
	RefundFn       func(context.Context, string, int64) (*model.Refund, error)

	Payments map[string]model.GatewayPayment
	Refunds  []model.Refund
}

// CreateOrder returns a gateway order echoing the request.
func (s *GatewayStub) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*model.GatewayOrder, error) {
	if s.CreateOrderFn != nil {
		return s.CreateOrderFn(ctx, amount, currency, receipt, notes)
	}
	return &model.GatewayOrder{ID: "order_" + receipt, Amount: amount, Currency: currency, Receipt: receipt, Notes: notes}, nil
}

// FetchPayment looks the payment up in Payments.
func (s *GatewayStub) FetchPayment(ctx context.Context, paymentID string) (*model.GatewayPayment, error) {
	if s.FetchPaymentFn != nil {
		return s.FetchPaymentFn(ctx, paymentID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s not configured", paymentID)
	}
	return &p, nil
}

// Refund records the refund.
func (s *GatewayStub) Refund(ctx context.Context, paymentID string, amount int64) (*model.Refund, error) {
	if s.RefundFn != nil {
		if _, err := s.RefundFn(ctx, paymentID, amount); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	refund := model.Refund{ID: fmt.Sprintf("rfnd_%d", len(s.Refunds)+1), PaymentID: paymentID, Amount: amount, Status: "processed"}
	s.Refunds = append(s.Refunds, refund)
	return &refund, nil
}

// RefundCount returns how many refunds were issued.
func (s *GatewayStub) RefundCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Refunds)
}

// MessengerStub records outbound messages.
type MessengerStub struct {
	mu sync.Mutex

	TemplateErr error
	TextErr     error
	// Delay is slept inside SendTemplate to widen race windows.
	Delay time.Duration

	Templates []model.TemplateMessage
	Texts     []model.TextMessage
}

// SendTemplate records msg and returns a sequential message id.
func (s *MessengerStub) SendTemplate(ctx context.Context, msg model.TemplateMessage) (model.Delivery, error) {
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	if s.TemplateErr != nil {
		return model.Delivery{}, s.TemplateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Templates = append(s.Templates, msg)
	return model.Delivery{MessageID: fmt.Sprintf("wamid.%d", len(s.Templates)), SentAt: time.Now()}, nil
}

// SendText records msg.
func (s *MessengerStub) SendText(ctx context.Context, msg model.TextMessage) (model.Delivery, error) {
	if s.TextErr != nil {
		return model.Delivery{}, s.TextErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Texts = append(s.Texts, msg)
	return model.Delivery{MessageID: fmt.Sprintf("wamid.text.%d", len(s.Texts)), SentAt: time.Now()}, nil
}

// SentTemplates returns a copy of recorded template messages.
func (s *MessengerStub) SentTemplates() []model.TemplateMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.TemplateMessage(nil), s.Templates...)
}

// SentTexts returns a copy of recorded text messages.
func (s *MessengerStub) SentTexts() []model.TextMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.TextMessage(nil), s.Texts...)
}

// IdentityStub resolves tokens from a map.
type IdentityStub struct {
	Principals map[string]model.Principal
	Err        error
}

// Authenticate returns the principal registered for token.
func (s IdentityStub) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.Principals[token]
	if !ok {
		return nil, errUnauthenticated
	}
	return &p, nil
}
