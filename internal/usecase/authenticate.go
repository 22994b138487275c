package usecase

import (
	"context"
	"errors"

	"github.com/polkiloo/orderhub/internal/adapter/identity"
	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/domain/repository"
)

// AuthUseCase resolves bearer tokens to active users.
type AuthUseCase struct {
	identity identity.Client
	users    repository.UserRepository
}

// NewAuthUseCase constructs AuthUseCase.
func NewAuthUseCase(identity identity.Client, users repository.UserRepository) *AuthUseCase {
	return &AuthUseCase{identity: identity, users: users}
}

// Authenticate validates token with the identity service and rejects unknown or blocked users.
func (u *AuthUseCase) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	principal, err := u.identity.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	blocked, err := u.users.IsBlocked(ctx, principal.UserID)
	if errors.Is(err, domainErrors.ErrNotFound) {
		return nil, domainErrors.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, domainErrors.ErrUserBlocked
	}
	return principal, nil
}
