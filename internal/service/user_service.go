package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/audit"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
	"secbank-cbs/internal/security"
	"secbank-cbs/pkg/clock"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username   string `json:"username" binding:"required,min=3,max=50"`
	Password   string `json:"password" binding:"required,min=8,max=72"`
	Email      string `json:"email" binding:"required,email,max=100"`
	FullName   string `json:"fullName" binding:"required,max=100"`
	FullNameCn string `json:"fullNameCn" binding:"max=100"`
	Phone      string `json:"phone" binding:"max=20"`
	EmployeeID string `json:"employeeId" binding:"max=20"`
	BranchID   *uint  `json:"branchId"`
	RoleIDs    []uint `json:"roleIds" binding:"required,min=1"`
}

type UpdateUserRequest struct {
	Email      string  `json:"email" binding:"omitempty,email,max=100"`
	FullName   string  `json:"fullName" binding:"omitempty,max=100"`
	FullNameCn *string `json:"fullNameCn" binding:"omitempty,max=100"`
	Phone      *string `json:"phone" binding:"omitempty,max=20"`
	EmployeeID *string `json:"employeeId" binding:"omitempty,max=20"`
	BranchID   *uint   `json:"branchId"`
	Status     string  `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE LOCKED"`
	RoleIDs    []uint  `json:"roleIds"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required,min=8,max=72"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, actorID uint, req CreateUserRequest) (*model.User, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	ListUsers(ctx context.Context, filter repository.UserFilter, page, limit int) ([]model.User, int64, error)
	UpdateUser(ctx context.Context, actorID, id uint, req UpdateUserRequest) (*model.User, error)
	DeleteUser(ctx context.Context, actorID, id uint) error
	ResetPassword(ctx context.Context, actorID, id uint, req ResetPasswordRequest) error
	ChangePassword(ctx context.Context, actorID uint, req ChangePasswordRequest) error
	UnlockUser(ctx context.Context, actorID, id uint) (*model.User, error)
	UnlockExpired(ctx context.Context) (int, error)
}

type userService struct {
	tx     repository.TransactionManager
	users  repository.UserRepository
	audit  audit.Emitter
	clock  clock.Clock
	logger *slog.Logger
}

// NewUserService returns a new instance of UserService
func NewUserService(tx repository.TransactionManager, users repository.UserRepository, emitter audit.Emitter, clk clock.Clock) UserService {
	return &userService{tx: tx, users: users, audit: emitter, clock: clk, logger: slog.Default()}
}

const entityUser = "User"

func (s *userService) CreateUser(ctx context.Context, actorID uint, req CreateUserRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if exists, err := s.users.ExistsByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if exists {
		return nil, apperr.Conflict(entityUser, "username", username)
	}
	if exists, err := s.users.ExistsByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if exists {
		return nil, apperr.Conflict(entityUser, "email", email)
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	user := &model.User{
		Username:           username,
		PasswordHash:       hash,
		Email:              email,
		FullName:           req.FullName,
		FullNameCn:         req.FullNameCn,
		Phone:              req.Phone,
		EmployeeID:         req.EmployeeID,
		BranchID:           req.BranchID,
		Status:             model.UserStatusActive,
		PasswordChangedAt:  &now,
		MustChangePassword: true,
		CreatedBy:          &actorID,
		UpdatedBy:          &actorID,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, user); err != nil {
			return conflictOr(err, entityUser, "username", username)
		}
		if err := s.users.ReplaceRoles(txCtx, user, req.RoleIDs); err != nil {
			return fmt.Errorf("failed to assign roles: %w", err)
		}
		if len(user.Roles) == 0 {
			return apperr.Validation(map[string]string{"roleIds": "At least one valid role is required"})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionCreate,
		Module:      model.ModuleAdministration,
		EntityType:  entityUser,
		EntityID:    &user.ID,
		NewValue:    user,
		Description: "Created user: " + user.Username,
	})
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, entityUser, "id", id)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, filter repository.UserFilter, page, limit int) ([]model.User, int64, error) {
	page, limit = normalizePage(page, limit)
	users, total, err := s.users.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actorID, id uint, req UpdateUserRequest) (*model.User, error) {
	var before model.User
	var user *model.User
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.users.FindByIDForUpdate(txCtx, id); err != nil {
			return notFoundOr(err, entityUser, "id", id)
		}
		var err error
		user, err = s.users.FindByID(txCtx, id)
		if err != nil {
			return notFoundOr(err, entityUser, "id", id)
		}
		before = *user

		if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
			exists, err := s.users.ExistsByEmail(txCtx, email)
			if err != nil {
				return fmt.Errorf("check email: %w", err)
			}
			if exists {
				return apperr.Conflict(entityUser, "email", email)
			}
			user.Email = email
		}
		if req.FullName != "" {
			user.FullName = req.FullName
		}
		if req.FullNameCn != nil {
			user.FullNameCn = *req.FullNameCn
		}
		if req.Phone != nil {
			user.Phone = *req.Phone
		}
		if req.EmployeeID != nil {
			user.EmployeeID = *req.EmployeeID
		}
		if req.BranchID != nil {
			user.BranchID = req.BranchID
		}
		if req.Status != "" && req.Status != user.Status {
			if id == actorID && req.Status != model.UserStatusActive {
				return apperr.New(apperr.CodeBusiness, "Cannot deactivate yourself")
			}
			user.Status = req.Status
			if req.Status == model.UserStatusActive {
				user.FailedLoginAttempts = 0
				user.LockedUntil = nil
			}
		}
		user.UpdatedBy = &actorID

		if err := s.users.Update(txCtx, user); err != nil {
			return conflictOr(err, entityUser, "email", user.Email)
		}
		if req.RoleIDs != nil {
			if err := s.users.ReplaceRoles(txCtx, user, req.RoleIDs); err != nil {
				return fmt.Errorf("failed to assign roles: %w", err)
			}
			if len(user.Roles) == 0 {
				return apperr.Validation(map[string]string{"roleIds": "At least one valid role is required"})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionUpdate,
		Module:      model.ModuleAdministration,
		EntityType:  entityUser,
		EntityID:    &user.ID,
		OldValue:    &before,
		NewValue:    user,
		Description: "Updated user: " + user.Username,
	})
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return apperr.New(apperr.CodeBusiness, "Cannot delete yourself")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, entityUser, "id", id)
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.users.Delete(txCtx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionDelete,
		Module:      model.ModuleAdministration,
		EntityType:  entityUser,
		EntityID:    &user.ID,
		OldValue:    user,
		Description: "Deleted user: " + user.Username,
	})
	return nil
}

// ResetPassword sets an administrator-chosen password the user must change at next login.
func (s *userService) ResetPassword(ctx context.Context, actorID, id uint, req ResetPasswordRequest) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, entityUser, "id", id)
	}
	hash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	user.PasswordHash = hash
	user.PasswordChangedAt = &now
	user.MustChangePassword = true
	user.UpdatedBy = &actorID
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionResetPassword,
		Module:      model.ModuleAdministration,
		EntityType:  entityUser,
		EntityID:    &user.ID,
		Description: "Reset password for user: " + user.Username,
	})
	return nil
}

func (s *userService) ChangePassword(ctx context.Context, actorID uint, req ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return notFoundOr(err, entityUser, "id", actorID)
	}
	if !security.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return apperr.Validation(map[string]string{"currentPassword": "Current password is incorrect"})
	}
	if req.CurrentPassword == req.NewPassword {
		return apperr.Validation(map[string]string{"newPassword": "New password must differ from the current password"})
	}
	hash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	user.PasswordHash = hash
	user.PasswordChangedAt = &now
	user.MustChangePassword = false
	user.UpdatedBy = &actorID
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionChangePassword,
		Module:      model.ModuleAuthentication,
		EntityType:  entityUser,
		EntityID:    &user.ID,
		Description: "Changed own password",
	})
	return nil
}

func (s *userService) UnlockUser(ctx context.Context, actorID, id uint) (*model.User, error) {
	var user *model.User
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		user, err = s.users.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFoundOr(err, entityUser, "id", id)
		}
		if !user.IsLocked() {
			return apperr.Newf(apperr.CodeBusiness, "User %s is not locked", user.Username)
		}
		unlock(user)
		user.UpdatedBy = &actorID
		if err := s.users.SaveLoginState(txCtx, user); err != nil {
			return fmt.Errorf("failed to unlock user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionUnlockUser,
		Module:      model.ModuleAdministration,
		EntityType:  entityUser,
		EntityID:    &user.ID,
		Description: "Unlocked user: " + user.Username,
	})
	return user, nil
}

// UnlockExpired reactivates users whose lockout window has passed. Each user is
// re-checked under a row lock, so a concurrent admin change is not overwritten.
func (s *userService) UnlockExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	candidates, err := s.users.FindExpiredLocks(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find expired locks: %w", err)
	}
	n := 0
	for _, c := range candidates {
		var unlocked *model.User
		err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			u, err := s.users.FindByIDForUpdate(txCtx, c.ID)
			if err != nil {
				return err
			}
			if !u.IsLocked() || u.LockedUntil == nil || now.Before(*u.LockedUntil) {
				return nil
			}
			unlock(u)
			if err := s.users.SaveLoginState(txCtx, u); err != nil {
				return err
			}
			unlocked = u
			return nil
		})
		if err != nil {
			s.logger.Warn("failed to unlock user", "user_id", c.ID, "error", err)
			continue
		}
		if unlocked == nil {
			continue
		}
		s.audit.LogAction(ctx, audit.Event{
			Action:      model.ActionUnlockUser,
			Module:      model.ModuleSystem,
			EntityType:  entityUser,
			EntityID:    uintPtr(unlocked.ID),
			Description: "Lockout expired for user: " + unlocked.Username,
		})
		n++
	}
	return n, nil
}

func unlock(u *model.User) {
	u.Status = model.UserStatusActive
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
}
