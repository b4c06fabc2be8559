package security

import (
	"context"

	"secbank-cbs/internal/apperr"
)

// Authenticator turns a bearer access token into a freshly resolved principal.
type Authenticator struct {
	tokens   *TokenService
	resolver *PrincipalResolver
}

func NewAuthenticator(tokens *TokenService, resolver *PrincipalResolver) *Authenticator {
	return &Authenticator{tokens: tokens, resolver: resolver}
}

// Authenticate rejects invalid, expired and refresh tokens, and users that are
// no longer active.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if !a.tokens.Validate(token) || a.tokens.IsRefreshToken(token) {
		return nil, apperr.New(apperr.CodeInvalidToken, "Invalid or expired token")
	}
	userID, err := a.tokens.SubjectUserID(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidToken, "Invalid or expired token", err)
	}
	p, err := a.resolver.Resolve(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return nil, apperr.New(apperr.CodeInvalidToken, "Token subject no longer exists")
		}
		return nil, err
	}
	if !p.IsActive() {
		return nil, apperr.New(apperr.CodeAccountDisabled, "User account is not active")
	}
	return p, nil
}
