package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/audit"
	"secbank-cbs/internal/config"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
	"secbank-cbs/internal/security"
	"secbank-cbs/pkg/clock"
)

const tokenTypeBearer = "Bearer"

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LoginResponse struct {
	AccessToken        string `json:"accessToken"`
	RefreshToken       string `json:"refreshToken"`
	TokenType          string `json:"tokenType"`
	ExpiresIn          int64  `json:"expiresIn"`
	UserID             uint   `json:"userId"`
	Username           string `json:"username"`
	FullName           string `json:"fullName"`
	Email              string `json:"email"`
	BranchID           *uint  `json:"branchId,omitempty"`
	MustChangePassword bool   `json:"mustChangePassword"`
}

type TokenRefreshResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// MeResponse describes the calling principal.
type MeResponse struct {
	UserID             uint     `json:"userId"`
	Username           string   `json:"username"`
	FullName           string   `json:"fullName"`
	Email              string   `json:"email"`
	BranchID           *uint    `json:"branchId,omitempty"`
	MustChangePassword bool     `json:"mustChangePassword"`
	Authorities        []string `json:"authorities"`
}

type AuthService interface {
	Login(ctx context.Context, req LoginRequest, client audit.Client) (*LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenRefreshResponse, error)
	Logout(ctx context.Context, p *security.Principal)
	Me(ctx context.Context, p *security.Principal) *MeResponse
}

type authService struct {
	tx       repository.TransactionManager
	users    repository.UserRepository
	resolver *security.PrincipalResolver
	tokens   *security.TokenService
	audit    audit.Emitter
	cfg      config.AuthConfig
	clock    clock.Clock
	logger   *slog.Logger
}

func NewAuthService(
	tx repository.TransactionManager,
	users repository.UserRepository,
	resolver *security.PrincipalResolver,
	tokens *security.TokenService,
	emitter audit.Emitter,
	cfg config.AuthConfig,
	clk clock.Clock,
) AuthService {
	return &authService{
		tx:       tx,
		users:    users,
		resolver: resolver,
		tokens:   tokens,
		audit:    emitter,
		cfg:      cfg,
		clock:    clk,
		logger:   slog.Default(),
	}
}

var errBadCredentials = apperr.New(apperr.CodeInvalidCredentials, "Invalid username or password")

func (s *authService) Login(ctx context.Context, req LoginRequest, client audit.Client) (*LoginResponse, error) {
	found, err := s.users.FindByUsername(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	// Status checks and the failure counter run against the row-locked user so
	// concurrent attempts cannot lose increments or undo a lock.
	var user *model.User
	var loginErr error
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.users.FindByIDForUpdate(txCtx, found.ID)
		if errors.Is(err, repository.ErrNotFound) {
			loginErr = errBadCredentials
			return nil
		}
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if u.IsLocked() && u.LockedUntil != nil && !now.Before(*u.LockedUntil) {
			unlock(u)
		}
		switch u.Status {
		case model.UserStatusLocked:
			loginErr = apperr.New(apperr.CodeAccountLocked, "Account is locked due to repeated failed logins")
			return nil
		case model.UserStatusInactive:
			loginErr = apperr.New(apperr.CodeAccountDisabled, "Account is disabled")
			return nil
		}

		if !security.CheckPassword(u.PasswordHash, req.Password) {
			s.recordFailure(u)
			loginErr = errBadCredentials
			return s.users.SaveLoginState(txCtx, u)
		}

		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		u.LastLoginAt = &now
		u.LastLoginIP = client.IP
		user = u
		return s.users.SaveLoginState(txCtx, u)
	})
	if err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	if loginErr != nil {
		return nil, loginErr
	}

	principal, err := s.resolver.Resolve(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.IssueAccessToken(principal)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(principal)
	if err != nil {
		return nil, err
	}

	s.audit.LogAction(audit.WithClient(ctx, client), audit.Event{
		UserID:      &user.ID,
		Action:      model.ActionLogin,
		Module:      model.ModuleAuthentication,
		EntityType:  entityUser,
		EntityID:    &user.ID,
		Description: "User logged in: " + user.Username,
	})

	return &LoginResponse{
		AccessToken:        access,
		RefreshToken:       refresh,
		TokenType:          tokenTypeBearer,
		ExpiresIn:          s.tokens.AccessTTLSeconds(),
		UserID:             user.ID,
		Username:           user.Username,
		FullName:           user.FullName,
		Email:              user.Email,
		BranchID:           user.BranchID,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// recordFailure bumps the failure counter and locks the user once the limit is hit.
func (s *authService) recordFailure(user *model.User) {
	user.FailedLoginAttempts++
	if s.cfg.MaxFailedAttempts > 0 && user.FailedLoginAttempts >= s.cfg.MaxFailedAttempts {
		until := s.clock.Now().Add(s.cfg.LockoutDuration)
		user.Status = model.UserStatusLocked
		user.LockedUntil = &until
		s.logger.Warn("user locked after failed logins",
			"username", user.Username, "attempts", user.FailedLoginAttempts, "locked_until", until)
	}
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenRefreshResponse, error) {
	if !s.tokens.IsRefreshToken(refreshToken) {
		return nil, apperr.New(apperr.CodeInvalidToken, "Invalid refresh token")
	}
	userID, err := s.tokens.SubjectUserID(refreshToken)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidToken, "Invalid refresh token", err)
	}
	principal, err := s.resolver.Resolve(ctx, userID)
	if apperr.Is(err, apperr.CodeNotFound) {
		return nil, apperr.New(apperr.CodeInvalidToken, "Token subject no longer exists")
	}
	if err != nil {
		return nil, err
	}
	switch principal.Status {
	case model.UserStatusActive:
	case model.UserStatusLocked:
		return nil, apperr.New(apperr.CodeAccountLocked, "Account is locked")
	default:
		return nil, apperr.New(apperr.CodeAccountDisabled, "Account is disabled")
	}

	access, err := s.tokens.IssueAccessToken(principal)
	if err != nil {
		return nil, err
	}
	return &TokenRefreshResponse{
		AccessToken: access,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   s.tokens.AccessTTLSeconds(),
	}, nil
}

// Logout only records the event. Issued tokens stay valid until they expire.
func (s *authService) Logout(ctx context.Context, p *security.Principal) {
	s.audit.LogAction(ctx, audit.Event{
		UserID:      &p.UserID,
		Action:      model.ActionLogout,
		Module:      model.ModuleAuthentication,
		EntityType:  entityUser,
		EntityID:    &p.UserID,
		Description: "User logged out: " + p.Username,
	})
}

func (s *authService) Me(_ context.Context, p *security.Principal) *MeResponse {
	return &MeResponse{
		UserID:             p.UserID,
		Username:           p.Username,
		FullName:           p.FullName,
		Email:              p.Email,
		BranchID:           p.BranchID,
		MustChangePassword: p.MustChangePassword,
		Authorities:        p.Authorities(),
	}
}
