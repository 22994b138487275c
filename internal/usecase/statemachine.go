package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/domain/repository"
	"github.com/polkiloo/orderhub/internal/metrics"
)

// nextTemplate is the message sent once an order enters a status.
var nextTemplate = map[model.OrderStatus]struct {
	template string
	action   model.VendorAction
}{
	model.OrderStatusAccepted:  {model.TemplateOrderPreparing, model.ActionStartPreparing},
	model.OrderStatusPreparing: {model.TemplateOrderPrepared, model.ActionPrepared},
	model.OrderStatusPrepared:  {model.TemplateOrderHandOver, model.ActionHandOver},
}

// StateMachine applies vendor actions to orders.
// Each step is a conditional status update; losing the race is ErrNotInExpectedState.
type StateMachine struct {
	orders     repository.OrderRepository
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	freshness  time.Duration
	now        func() time.Time
}

// NewStateMachine constructs StateMachine. Actions on a message older than freshness are rejected.
func NewStateMachine(
	orders repository.OrderRepository,
	dispatcher *Dispatcher,
	m *metrics.Metrics,
	freshness time.Duration,
	logger *slog.Logger,
) *StateMachine {
	return &StateMachine{
		orders:     orders,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		freshness:  freshness,
		now:        time.Now,
	}
}

// Accept moves a pending order to accepted.
func (s *StateMachine) Accept(ctx context.Context, orderID, actor string) error {
	return s.advance(ctx, orderID, actor, model.OrderStatusPending, true)
}

// StartPreparing moves an accepted order to preparing.
func (s *StateMachine) StartPreparing(ctx context.Context, orderID, actor string) error {
	return s.advance(ctx, orderID, actor, model.OrderStatusAccepted, true)
}

// MarkPrepared moves a preparing order to prepared.
func (s *StateMachine) MarkPrepared(ctx context.Context, orderID, actor string) error {
	return s.advance(ctx, orderID, actor, model.OrderStatusPreparing, false)
}

// BeginHandover opens code entry for a prepared order that has a handover code.
func (s *StateMachine) BeginHandover(ctx context.Context, orderID, actor string) error {
	if _, err := s.authorize(ctx, orderID, actor); err != nil {
		return err
	}
	started, err := s.orders.BeginHandover(ctx, orderID)
	if err != nil {
		return err
	}
	if !started {
		return domainErrors.ErrNotInExpectedState
	}
	return nil
}

// SubmitHandoverCode moves a prepared order to on_the_way when code matches the stored one.
// Attempts are not limited.
func (s *StateMachine) SubmitHandoverCode(ctx context.Context, orderID, actor, code string) error {
	details, err := s.authorize(ctx, orderID, actor)
	if err != nil {
		return err
	}
	if !handoverCodeMatches(details.Order.HandoverCode, code) {
		s.logger.Warn("handover code mismatch",
			slog.String("order_id", orderID),
			slog.String("actor", model.NormalizeContact(actor)),
		)
		return domainErrors.ErrInvalidHandoverCode
	}
	return s.transition(ctx, orderID, model.OrderStatusPrepared, model.OrderStatusOnTheWay)
}

func (s *StateMachine) advance(ctx context.Context, orderID, actor string, from model.OrderStatus, checkFreshness bool) error {
	details, err := s.authorize(ctx, orderID, actor)
	if err != nil {
		return err
	}
	if checkFreshness {
		if age, ok := details.Order.MessageAge(s.now()); ok && age > s.freshness {
			return domainErrors.ErrMessageExpired
		}
	}

	to, ok := from.Next()
	if !ok {
		return domainErrors.ErrNotInExpectedState
	}
	if err := s.transition(ctx, orderID, from, to); err != nil {
		return err
	}

	next, ok := nextTemplate[to]
	if !ok {
		return nil
	}
	details.Order.Status = to
	msg := orderTemplate(details, next.template, next.action)
	if err := s.dispatcher.Notify(ctx, orderID, to, msg); err != nil {
		s.logger.Error("follow-up notification failed",
			slog.String("order_id", orderID),
			slog.String("status", string(to)),
			slog.String("error", err.Error()),
		)
		s.dispatcher.Remediate(ctx, model.RemediationDeliveryHandle, orderID, err.Error())
	}
	return nil
}

func (s *StateMachine) authorize(ctx context.Context, orderID, actor string) (*model.OrderDetails, error) {
	details, err := s.orders.Details(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !details.Vendor.Authorizes(actor) {
		s.logger.Warn("unauthorized vendor action",
			slog.String("order_id", orderID),
			slog.String("actor", model.NormalizeContact(actor)),
		)
		return nil, domainErrors.ErrVendorUnauthorized
	}
	return details, nil
}

func (s *StateMachine) transition(ctx context.Context, orderID string, from, to model.OrderStatus) error {
	applied, err := s.orders.Transition(ctx, orderID, from, to)
	if err != nil {
		s.metrics.Transition(string(to), metrics.ResultError)
		return err
	}
	if !applied {
		s.metrics.Transition(string(to), metrics.ResultStale)
		return domainErrors.ErrNotInExpectedState
	}
	s.metrics.Transition(string(to), metrics.ResultApplied)
	s.logger.Info("order transitioned", slog.String("order_id", orderID), slog.String("from", string(from)), slog.String("to", string(to)))
	return nil
}

// handoverCodeMatches compares codes numerically after trimming whitespace.
func handoverCodeMatches(stored, submitted string) bool {
	want, ok := parseCode(stored)
	if !ok {
		return false
	}
	got, ok := parseCode(submitted)
	return ok && got == want
}

func parseCode(code string) (uint64, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(code, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
