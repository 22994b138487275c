package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/domain/repository"
	"github.com/polkiloo/orderhub/internal/metrics"
)

// Guard is the idempotency guard. Every side effect that must happen at most once per order
// acquires a single-use claim column first; the store decides the winner.
type Guard struct {
	orders  repository.OrderRepository
	metrics *metrics.Metrics
	marker  func(source model.TriggerSource) string
}

// NewGuard constructs Guard.
func NewGuard(orders repository.OrderRepository, m *metrics.Metrics) *Guard {
	return &Guard{orders: orders, metrics: m, marker: newClaimMarker}
}

func newClaimMarker(source model.TriggerSource) string {
	return fmt.Sprintf("%s:%s", source, uuid.NewString())
}

// Claim tries to mark field on the order as taken by source.
func (g *Guard) Claim(ctx context.Context, orderID string, field model.ClaimField, source model.TriggerSource) (model.ClaimResult, error) {
	result, err := g.orders.Claim(ctx, orderID, field, g.marker(source))
	if err != nil {
		g.metrics.Claim(string(field), metrics.ResultError)
		return model.ClaimResult{}, fmt.Errorf("claim %s for order %s: %w", field, orderID, err)
	}
	if result.Acquired {
		g.metrics.Claim(string(field), metrics.ResultAcquired)
	} else {
		g.metrics.Claim(string(field), metrics.ResultLost)
	}
	return result, nil
}
