package repository

import "context"

// UserRepository exposes locally stored user flags.
type UserRepository interface {
	IsBlocked(ctx context.Context, userID string) (bool, error)
}
