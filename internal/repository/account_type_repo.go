package repository

import (
	"context"

	"secbank-cbs/internal/model"

	"gorm.io/gorm"
)

type AccountTypeFilter struct {
	Keyword  string
	Category model.AccountCategory
	Status   string
}

type AccountTypeRepository interface {
	Create(ctx context.Context, t *model.AccountType) error
	Update(ctx context.Context, t *model.AccountType) error
	FindByID(ctx context.Context, id uint) (*model.AccountType, error)
	FindByCode(ctx context.Context, code string) (*model.AccountType, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter AccountTypeFilter, page, limit int) ([]model.AccountType, int64, error)
	ListActive(ctx context.Context) ([]model.AccountType, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	CountByCategory(ctx context.Context, category model.AccountCategory) (int64, error)
}

type accountTypeRepository struct {
	db *gorm.DB
}

func NewAccountTypeRepository(db *gorm.DB) AccountTypeRepository {
	return &accountTypeRepository{db: db}
}

func (r *accountTypeRepository) Create(ctx context.Context, t *model.AccountType) error {
	return translate(GetDB(ctx, r.db).Create(t).Error)
}

func (r *accountTypeRepository) Update(ctx context.Context, t *model.AccountType) error {
	return translate(GetDB(ctx, r.db).Save(t).Error)
}

func (r *accountTypeRepository) FindByID(ctx context.Context, id uint) (*model.AccountType, error) {
	var t model.AccountType
	if err := GetDB(ctx, r.db).First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *accountTypeRepository) FindByCode(ctx context.Context, code string) (*model.AccountType, error) {
	var t model.AccountType
	if err := GetDB(ctx, r.db).Where("type_code = ?", code).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *accountTypeRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.AccountType{}).Where("type_code = ?", code).Count(&n).Error
	return n > 0, err
}

func (r *accountTypeRepository) List(ctx context.Context, filter AccountTypeFilter, page, limit int) ([]model.AccountType, int64, error) {
	var types []model.AccountType
	var total int64

	db := GetDB(ctx, r.db).Model(&model.AccountType{})
	if filter.Keyword != "" {
		kw := likePattern(filter.Keyword)
		db = db.Where("LOWER(type_code) LIKE ? OR LOWER(type_name) LIKE ?", kw, kw)
	}
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("type_code asc").Offset(offset(page, limit)).Limit(limit).Find(&types).Error; err != nil {
		return nil, 0, err
	}
	return types, total, nil
}

func (r *accountTypeRepository) ListActive(ctx context.Context) ([]model.AccountType, error) {
	var types []model.AccountType
	err := GetDB(ctx, r.db).Where("status = ?", model.ProductStatusActive).Order("type_code asc").Find(&types).Error
	return types, err
}

func (r *accountTypeRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.AccountType{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *accountTypeRepository) CountByCategory(ctx context.Context, category model.AccountCategory) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.AccountType{}).Where("category = ?", category).Count(&n).Error
	return n, err
}
