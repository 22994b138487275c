package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/orderhub/internal/domain/model"
)

// OrderHubFacadeStub provides controllable behaviour for HTTP handlers.
type OrderHubFacadeStub struct {
	AuthenticateFn func(context.Context, string) (*model.Principal, error)
	InitiateFn     func(context.Context, model.InitiateRequest) (*model.InitiateResult, error)
	FinalizeFn     func(context.Context, model.PaymentContext) (*model.FinalizeResult, error)
	GatewayEventFn func(context.Context, []byte, string) (*model.FinalizeResult, error)
	HandshakeFn    func(mode, token, challenge string) (string, error)
	InboundFn      func(context.Context, model.InboundMessage) error
	NotifyPlacedFn func(context.Context, string, model.TriggerSource) (bool, error)
	PingFn         func(context.Context) error
}

// Authenticate accepts any token as user "usr-1" unless overridden.
func (s OrderHubFacadeStub) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	if s.AuthenticateFn != nil {
		return s.AuthenticateFn(ctx, token)
	}
	return &model.Principal{UserID: "usr-1"}, nil
}

// Initiate echoes a gateway order for the request.
func (s OrderHubFacadeStub) Initiate(ctx context.Context, req model.InitiateRequest) (*model.InitiateResult, error) {
	if s.InitiateFn != nil {
		return s.InitiateFn(ctx, req)
	}
	return &model.InitiateResult{GatewayOrderID: "order_1", Amount: model.ToMinorUnits(req.Amount), Currency: "INR", Token: "token"}, nil
}

// Finalize reports success by default.
func (s OrderHubFacadeStub) Finalize(ctx context.Context, pc model.PaymentContext) (*model.FinalizeResult, error) {
	if s.FinalizeFn != nil {
		return s.FinalizeFn(ctx, pc)
	}
	return &model.FinalizeResult{Status: model.StatusSuccess, OrderID: pc.Payload.OrderID}, nil
}

// ReceiveGatewayEvent acknowledges every delivery by default.
func (s OrderHubFacadeStub) ReceiveGatewayEvent(ctx context.Context, raw []byte, signature string) (*model.FinalizeResult, error) {
	if s.GatewayEventFn != nil {
		return s.GatewayEventFn(ctx, raw, signature)
	}
	return nil, nil
}

// VerifyMessagingHandshake echoes the challenge by default.
func (s OrderHubFacadeStub) VerifyMessagingHandshake(mode, token, challenge string) (string, error) {
	if s.HandshakeFn != nil {
		return s.HandshakeFn(mode, token, challenge)
	}
	return challenge, nil
}

// HandleInboundMessage delegates to InboundFn.
func (s OrderHubFacadeStub) HandleInboundMessage(ctx context.Context, msg model.InboundMessage) error {
	if s.InboundFn != nil {
		return s.InboundFn(ctx, msg)
	}
	return nil
}

// NotifyPlaced reports a sent notification by default.
func (s OrderHubFacadeStub) NotifyPlaced(ctx context.Context, orderID string, source model.TriggerSource) (bool, error) {
	if s.NotifyPlacedFn != nil {
		return s.NotifyPlacedFn(ctx, orderID, source)
	}
	return true, nil
}

// Ping reports a healthy store by default.
func (s OrderHubFacadeStub) Ping(ctx context.Context) error {
	if s.PingFn != nil {
		return s.PingFn(ctx)
	}
	return nil
}

// NotifyCall stores information about NotifyPlaced invocations.
type NotifyCall struct {
	OrderID string
	Source  model.TriggerSource
}

// PlacementFacadeStub mimics the placement notifier for trigger workers.
type PlacementFacadeStub struct {
	Batches    [][]string
	AwaitingFn func(context.Context, int) ([]string, error)
	NotifyFn   func(context.Context, string, model.TriggerSource) (bool, error)
	Calls      []NotifyCall
	mu         sync.Mutex
	fetchCalls int32
}

// Lock exposes internal mutex for external synchronization.
func (s *PlacementFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *PlacementFacadeStub) Unlock() { s.mu.Unlock() }

// Notified returns a copy of recorded calls.
func (s *PlacementFacadeStub) Notified() []NotifyCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]NotifyCall(nil), s.Calls...)
}

// AwaitingNotification returns batches from the configured queue.
func (s *PlacementFacadeStub) AwaitingNotification(ctx context.Context, limit int) ([]string, error) {
	if s.AwaitingFn != nil {
		return s.AwaitingFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.fetchCalls, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	return nil, nil
}

// NotifyPlaced records the call and delegates to NotifyFn.
func (s *PlacementFacadeStub) NotifyPlaced(ctx context.Context, orderID string, source model.TriggerSource) (bool, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, NotifyCall{OrderID: orderID, Source: source})
	s.mu.Unlock()
	if s.NotifyFn != nil {
		return s.NotifyFn(ctx, orderID, source)
	}
	return true, nil
}

// FeedStub replays scripted sessions of a change feed. Each Listen call consumes one session;
// once sessions run out Listen blocks until ctx ends.
type FeedStub struct {
	Sessions [][]string
	// Errs is returned by the matching session after its payloads are delivered.
	Errs []error

	mu      sync.Mutex
	listens int
	started []time.Time
}

// Listen delivers the next session.
func (s *FeedStub) Listen(ctx context.Context, handle func(ctx context.Context, orderID string)) error {
	s.mu.Lock()
	idx := s.listens
	s.listens++
	s.started = append(s.started, time.Now())
	s.mu.Unlock()

	if idx >= len(s.Sessions) {
		<-ctx.Done()
		return ctx.Err()
	}
	for _, id := range s.Sessions[idx] {
		handle(ctx, id)
	}
	if idx < len(s.Errs) {
		return s.Errs[idx]
	}
	return nil
}

// Listens reports how many times Listen was called.
func (s *FeedStub) Listens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listens
}

// StartedAt returns the time of every Listen call.
func (s *FeedStub) StartedAt() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.started...)
}
