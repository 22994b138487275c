package usecase

import (
	"context"
	"fmt"
	"strings"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/domain/repository"
)

const defaultRemediationLimit = 50

// RemediationUseCase exposes the remediation queue to operators.
type RemediationUseCase struct {
	entries repository.RemediationRepository
}

// NewRemediationUseCase constructs RemediationUseCase.
func NewRemediationUseCase(entries repository.RemediationRepository) *RemediationUseCase {
	return &RemediationUseCase{entries: entries}
}

// Open lists unresolved entries, oldest first.
func (u *RemediationUseCase) Open(ctx context.Context, limit int) ([]model.Remediation, error) {
	if limit <= 0 {
		limit = defaultRemediationLimit
	}
	return u.entries.ListOpen(ctx, limit)
}

// Resolve closes an entry with an operator note.
func (u *RemediationUseCase) Resolve(ctx context.Context, id int64, note string) error {
	note = strings.TrimSpace(note)
	if id <= 0 || note == "" {
		return fmt.Errorf("%w: entry id and resolution note are required", domainErrors.ErrInvalidPayload)
	}
	return u.entries.Resolve(ctx, id, note)
}
