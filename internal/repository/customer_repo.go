package repository

import (
	"context"
	"database/sql"

	"secbank-cbs/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerFilter struct {
	Keyword  string
	Type     model.CustomerType
	Status   string
	BranchID *uint
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error
	FindByID(ctx context.Context, id uint) (*model.Customer, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Customer, error)
	FindByNumber(ctx context.Context, number string) (*model.Customer, error)
	MaxNumberWithPrefix(ctx context.Context, prefix string) (string, error)
	List(ctx context.Context, filter CustomerFilter, page, limit int) ([]model.Customer, int64, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	CountByType(ctx context.Context, t model.CustomerType) (int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Create(customer).Error)
}

func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Save(customer).Error)
}

func (r *customerRepository) FindByID(ctx context.Context, id uint) (*model.Customer, error) {
	var c model.Customer
	if err := GetDB(ctx, r.db).Preload("Branch").First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *customerRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Customer, error) {
	var c model.Customer
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *customerRepository) FindByNumber(ctx context.Context, number string) (*model.Customer, error) {
	var c model.Customer
	if err := GetDB(ctx, r.db).Preload("Branch").Where("customer_number = ?", number).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// MaxNumberWithPrefix returns the greatest CIF starting with prefix, or "" when none exists.
func (r *customerRepository) MaxNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var max sql.NullString
	err := GetDB(ctx, r.db).Model(&model.Customer{}).
		Select("MAX(customer_number)").
		Where("customer_number LIKE ? ESCAPE '\\'", prefixPattern(prefix)).
		Row().Scan(&max)
	if err != nil {
		return "", err
	}
	return max.String, nil
}

func (r *customerRepository) List(ctx context.Context, filter CustomerFilter, page, limit int) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Customer{})
	if filter.Keyword != "" {
		kw := likePattern(filter.Keyword)
		db = db.Where(
			"LOWER(customer_number) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(company_name) LIKE ? OR LOWER(id_number) LIKE ?",
			kw, kw, kw, kw, kw,
		)
	}
	if filter.Type != "" {
		db = db.Where("customer_type = ?", filter.Type)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.BranchID != nil {
		db = db.Where("branch_id = ?", *filter.BranchID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("id desc").Offset(offset(page, limit)).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (r *customerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Customer{}).Count(&n).Error
	return n, err
}

func (r *customerRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Customer{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *customerRepository) CountByType(ctx context.Context, t model.CustomerType) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Customer{}).Where("customer_type = ?", t).Count(&n).Error
	return n, err
}
