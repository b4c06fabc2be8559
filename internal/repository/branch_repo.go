package repository

import (
	"context"

	"secbank-cbs/internal/model"

	"gorm.io/gorm"
)

type BranchRepository interface {
	Create(ctx context.Context, branch *model.Branch) error
	Update(ctx context.Context, branch *model.Branch) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Branch, error)
	FindByCode(ctx context.Context, code string) (*model.Branch, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, keyword string, page, limit int) ([]model.Branch, int64, error)
	ListActive(ctx context.Context) ([]model.Branch, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type branchRepository struct {
	db *gorm.DB
}

func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &branchRepository{db: db}
}

func (r *branchRepository) Create(ctx context.Context, branch *model.Branch) error {
	return translate(GetDB(ctx, r.db).Create(branch).Error)
}

func (r *branchRepository) Update(ctx context.Context, branch *model.Branch) error {
	return translate(GetDB(ctx, r.db).Save(branch).Error)
}

func (r *branchRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Delete(&model.Branch{}, id).Error
}

func (r *branchRepository) FindByID(ctx context.Context, id uint) (*model.Branch, error) {
	var branch model.Branch
	if err := GetDB(ctx, r.db).First(&branch, id).Error; err != nil {
		return nil, translate(err)
	}
	return &branch, nil
}

func (r *branchRepository) FindByCode(ctx context.Context, code string) (*model.Branch, error) {
	var branch model.Branch
	if err := GetDB(ctx, r.db).Where("branch_code = ?", code).First(&branch).Error; err != nil {
		return nil, translate(err)
	}
	return &branch, nil
}

func (r *branchRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Branch{}).Where("branch_code = ?", code).Count(&n).Error
	return n > 0, err
}

func (r *branchRepository) List(ctx context.Context, keyword string, page, limit int) ([]model.Branch, int64, error) {
	var branches []model.Branch
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Branch{})
	if keyword != "" {
		kw := likePattern(keyword)
		db = db.Where("LOWER(branch_code) LIKE ? OR LOWER(branch_name) LIKE ? OR LOWER(city) LIKE ?", kw, kw, kw)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("branch_code asc").Offset(offset(page, limit)).Limit(limit).Find(&branches).Error; err != nil {
		return nil, 0, err
	}
	return branches, total, nil
}

func (r *branchRepository) ListActive(ctx context.Context) ([]model.Branch, error) {
	var branches []model.Branch
	err := GetDB(ctx, r.db).Where("status = ?", model.BranchStatusActive).Order("branch_code asc").Find(&branches).Error
	return branches, err
}

func (r *branchRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Branch{}).Count(&n).Error
	return n, err
}

func (r *branchRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Branch{}).Where("status = ?", status).Count(&n).Error
	return n, err
}
