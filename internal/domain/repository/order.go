package repository

import (
	"context"

	"github.com/polkiloo/orderhub/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
// Every mutation is a conditional update; callers learn whether it applied from the result.
type OrderRepository interface {
	Get(ctx context.Context, id string) (*model.Order, error)
	Details(ctx context.Context, id string) (*model.OrderDetails, error)
	Transition(ctx context.Context, id string, from, to model.OrderStatus) (bool, error)
	Claim(ctx context.Context, id string, field model.ClaimField, marker string) (model.ClaimResult, error)
	RecordDelivery(ctx context.Context, id string, status model.OrderStatus, delivery model.Delivery) (bool, error)
	BeginHandover(ctx context.Context, id string) (bool, error)
	PendingHandoverForContact(ctx context.Context, contact string) (*model.Order, error)
	ListAwaitingFirstNotification(ctx context.Context, limit int) ([]string, error)
}
