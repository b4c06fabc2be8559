package repository

import (
	"context"

	"secbank-cbs/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Role, error)
	FindByCode(ctx context.Context, code string) (*model.Role, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, keyword string, page, limit int) ([]model.Role, int64, error)
	ListActive(ctx context.Context) ([]model.Role, error)
	ReplacePermissions(ctx context.Context, role *model.Role, permissionIDs []uint) error
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	Count(ctx context.Context) (int64, error)
	CountPermissions(ctx context.Context) (int64, error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Create(role).Error)
}

func (r *roleRepository) Update(ctx context.Context, role *model.Role) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Save(role).Error)
}

// Delete detaches permissions and users before removing the role row.
func (r *roleRepository) Delete(ctx context.Context, id uint) error {
	db := GetDB(ctx, r.db)
	role := model.Role{ID: id}
	if err := db.Model(&role).Association("Permissions").Clear(); err != nil {
		return err
	}
	if err := db.Exec("DELETE FROM user_roles WHERE role_id = ?", id).Error; err != nil {
		return err
	}
	return db.Delete(&model.Role{}, id).Error
}

func (r *roleRepository) FindByID(ctx context.Context, id uint) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").First(&role, id).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *roleRepository) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").Where("role_code = ?", code).First(&role).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *roleRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Role{}).Where("role_code = ?", code).Count(&n).Error
	return n > 0, err
}

func (r *roleRepository) List(ctx context.Context, keyword string, page, limit int) ([]model.Role, int64, error) {
	var roles []model.Role
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Role{})
	if keyword != "" {
		kw := likePattern(keyword)
		db = db.Where("LOWER(role_code) LIKE ? OR LOWER(role_name) LIKE ?", kw, kw)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Permissions").Order("role_code asc").Offset(offset(page, limit)).Limit(limit).Find(&roles).Error; err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (r *roleRepository) ListActive(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := GetDB(ctx, r.db).Preload("Permissions").Where("status = ?", "ACTIVE").Order("role_code asc").Find(&roles).Error
	return roles, err
}

func (r *roleRepository) ReplacePermissions(ctx context.Context, role *model.Role, permissionIDs []uint) error {
	db := GetDB(ctx, r.db)
	var perms []model.Permission
	if len(permissionIDs) > 0 {
		if err := db.Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
			return err
		}
	}
	if err := db.Model(role).Association("Permissions").Replace(perms); err != nil {
		return err
	}
	role.Permissions = perms
	return nil
}

func (r *roleRepository) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	if err := GetDB(ctx, r.db).Order("module asc, permission_code asc").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *roleRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Role{}).Count(&n).Error
	return n, err
}

func (r *roleRepository) CountPermissions(ctx context.Context) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Permission{}).Count(&n).Error
	return n, err
}
