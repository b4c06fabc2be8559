package service

import (
	"context"
	"testing"
	"time"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/security"
	"secbank-cbs/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnlockExpired(t *testing.T) {
	past := testNow.Add(-time.Minute)
	future := testNow.Add(time.Hour)
	users := newMemUsers(
		model.User{ID: 1, Username: "expired", Status: model.UserStatusLocked, FailedLoginAttempts: 5, LockedUntil: &past},
		model.User{ID: 2, Username: "still-locked", Status: model.UserStatusLocked, FailedLoginAttempts: 5, LockedUntil: &future},
		model.User{ID: 3, Username: "fine", Status: model.UserStatusActive},
	)
	emitter := &recordingEmitter{}
	svc := NewUserService(newFakeTx(), users, emitter, clock.NewFixed(testNow))

	n, err := svc.UnlockExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	u := users.get(1)
	assert.Equal(t, model.UserStatusActive, u.Status)
	assert.Zero(t, u.FailedLoginAttempts)
	assert.Nil(t, u.LockedUntil)
	assert.Equal(t, model.UserStatusLocked, users.get(2).Status)

	require.Len(t, emitter.events, 1)
	assert.Nil(t, emitter.events[0].UserID)
	assert.Equal(t, model.ModuleSystem, emitter.events[0].Module)
}

// staleLocks reports candidates from an earlier snapshot of the table.
type staleLocks struct {
	*memUsers
	snapshot []model.User
}

func (s *staleLocks) FindExpiredLocks(context.Context, time.Time) ([]model.User, error) {
	return s.snapshot, nil
}

func TestUnlockExpiredRechecksUnderLock(t *testing.T) {
	past := testNow.Add(-time.Minute)
	locked := model.User{ID: 1, Username: "expired", Status: model.UserStatusLocked, FailedLoginAttempts: 5, LockedUntil: &past}
	deactivated := locked
	deactivated.Status = model.UserStatusInactive
	users := &staleLocks{memUsers: newMemUsers(deactivated), snapshot: []model.User{locked}}
	emitter := &recordingEmitter{}
	svc := NewUserService(newFakeTx(), users, emitter, clock.NewFixed(testNow))

	n, err := svc.UnlockExpired(context.Background())
	require.NoError(t, err)

	assert.Zero(t, n)
	assert.Equal(t, model.UserStatusInactive, users.get(1).Status)
	assert.Empty(t, emitter.events)
}

func TestDeleteUserRejectsSelf(t *testing.T) {
	svc := NewUserService(newFakeTx(), newMemUsers(model.User{ID: actor, Username: "admin"}), &recordingEmitter{}, clock.NewFixed(testNow))

	err := svc.DeleteUser(context.Background(), actor, actor)

	assert.Equal(t, apperr.CodeBusiness, apperr.CodeOf(err))
}

func TestChangePassword(t *testing.T) {
	hash, err := security.HashPassword("old-password")
	require.NoError(t, err)
	users := newMemUsers(model.User{ID: actor, Username: "admin", PasswordHash: hash, MustChangePassword: true})
	emitter := &recordingEmitter{}
	svc := NewUserService(newFakeTx(), users, emitter, clock.NewFixed(testNow))
	ctx := context.Background()

	err = svc.ChangePassword(ctx, actor, ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "new-password"})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	err = svc.ChangePassword(ctx, actor, ChangePasswordRequest{CurrentPassword: "old-password", NewPassword: "old-password"})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	require.NoError(t, svc.ChangePassword(ctx, actor, ChangePasswordRequest{CurrentPassword: "old-password", NewPassword: "new-password"}))

	u := users.get(actor)
	assert.True(t, security.CheckPassword(u.PasswordHash, "new-password"))
	assert.False(t, u.MustChangePassword)
	require.NotNil(t, u.PasswordChangedAt)
	assert.Equal(t, testNow, *u.PasswordChangedAt)
	assert.Equal(t, []string{model.ActionChangePassword}, emitter.actions())
}
