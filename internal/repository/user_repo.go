package repository

import (
	"context"
	"time"

	"secbank-cbs/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserFilter narrows user listings. Zero values mean "any".
type UserFilter struct {
	Keyword  string
	BranchID *uint
	Status   string
}

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByIDWithRoles(ctx context.Context, id uint) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.User, error)
	SaveLoginState(ctx context.Context, user *model.User) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, filter UserFilter, page, limit int) ([]model.User, int64, error)
	ReplaceRoles(ctx context.Context, user *model.User, roleIDs []uint) error
	FindUsername(ctx context.Context, id uint) (string, error)
	FindExpiredLocks(ctx context.Context, now time.Time) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Create(user).Error)
}

// Update saves scalar columns only; roles change through ReplaceRoles.
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Save(user).Error)
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	db := GetDB(ctx, r.db)
	user := model.User{ID: id}
	if err := db.Model(&user).Association("Roles").Clear(); err != nil {
		return err
	}
	return db.Delete(&model.User{}, id).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Preload("Roles").First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByIDWithRoles loads the full role -> permission graph for authority resolution.
func (r *userRepository) FindByIDWithRoles(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Preload("Roles.Permissions").First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByIDForUpdate row-locks the user for the rest of the transaction.
func (r *userRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// loginStateColumns are the only columns written by login bookkeeping and lockout release.
var loginStateColumns = []string{"Status", "FailedLoginAttempts", "LockedUntil", "LastLoginAt", "LastLoginIP", "UpdatedBy", "UpdatedAt"}

// SaveLoginState writes the lockout and last-login columns, leaving profile fields untouched.
func (r *userRepository) SaveLoginState(ctx context.Context, user *model.User) error {
	return translate(GetDB(ctx, r.db).Model(user).Select(loginStateColumns).Updates(user).Error)
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.User{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

func (r *userRepository) List(ctx context.Context, filter UserFilter, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := GetDB(ctx, r.db).Model(&model.User{})
	if filter.Keyword != "" {
		kw := likePattern(filter.Keyword)
		db = db.Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", kw, kw, kw)
	}
	if filter.BranchID != nil {
		db = db.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Roles").Order("id asc").Offset(offset(page, limit)).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) ReplaceRoles(ctx context.Context, user *model.User, roleIDs []uint) error {
	db := GetDB(ctx, r.db)
	var roles []model.Role
	if len(roleIDs) > 0 {
		if err := db.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			return err
		}
	}
	if err := db.Model(user).Association("Roles").Replace(roles); err != nil {
		return err
	}
	user.Roles = roles
	return nil
}

func (r *userRepository) FindUsername(ctx context.Context, id uint) (string, error) {
	var names []string
	err := GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Limit(1).Pluck("username", &names).Error
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNotFound
	}
	return names[0], nil
}

// FindExpiredLocks returns LOCKED users whose lockout window has passed.
func (r *userRepository) FindExpiredLocks(ctx context.Context, now time.Time) ([]model.User, error) {
	var users []model.User
	err := GetDB(ctx, r.db).
		Where("status = ? AND locked_until IS NOT NULL AND locked_until <= ?", model.UserStatusLocked, now).
		Find(&users).Error
	return users, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.User{}).Count(&n).Error
	return n, err
}

func (r *userRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.User{}).Where("status = ?", status).Count(&n).Error
	return n, err
}
