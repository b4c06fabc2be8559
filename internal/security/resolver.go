package security

import (
	"context"
	"errors"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/repository"
)

// PrincipalResolver loads a user's current role graph and builds a principal.
// Nothing is cached, so role edits take effect on the next request.
type PrincipalResolver struct {
	users repository.UserRepository
}

func NewPrincipalResolver(users repository.UserRepository) *PrincipalResolver {
	return &PrincipalResolver{users: users}
}

func (r *PrincipalResolver) Resolve(ctx context.Context, userID uint) (*Principal, error) {
	user, err := r.users.FindByIDWithRoles(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("User", "id", userID)
		}
		return nil, err
	}
	return NewPrincipal(user), nil
}
