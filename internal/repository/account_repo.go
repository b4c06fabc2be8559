package repository

import (
	"context"
	"database/sql"
	"time"

	"secbank-cbs/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountFilter struct {
	Keyword    string
	Status     model.AccountStatus
	BranchID   *uint
	CustomerID *uint
}

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	Update(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id uint) (*model.Account, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Account, error)
	FindByNumber(ctx context.Context, number string) (*model.Account, error)
	MaxNumberWithPrefix(ctx context.Context, prefix string) (string, error)
	List(ctx context.Context, filter AccountFilter, page, limit int) ([]model.Account, int64, error)
	FindDormancyCandidates(ctx context.Context, inactiveSince time.Time, limit int) ([]uint, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status model.AccountStatus) (int64, error)
	CountActiveByCustomer(ctx context.Context, customerID uint) (int64, error)
	CountByBranch(ctx context.Context, branchID uint) (int64, error)
	SumActiveBalances(ctx context.Context, branchID *uint) (decimal.Decimal, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Create(account).Error)
}

func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Save(account).Error)
}

func (r *accountRepository) FindByID(ctx context.Context, id uint) (*model.Account, error) {
	var a model.Account
	if err := GetDB(ctx, r.db).Preload("Customer").Preload("AccountType").Preload("Branch").First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// FindByIDForUpdate row-locks the account for the rest of the transaction.
func (r *accountRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Account, error) {
	var a model.Account
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *accountRepository) FindByNumber(ctx context.Context, number string) (*model.Account, error) {
	var a model.Account
	err := GetDB(ctx, r.db).Preload("Customer").Preload("AccountType").Preload("Branch").
		Where("account_number = ?", number).First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// MaxNumberWithPrefix returns the greatest account number starting with prefix, or "".
func (r *accountRepository) MaxNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var max sql.NullString
	err := GetDB(ctx, r.db).Model(&model.Account{}).
		Select("MAX(account_number)").
		Where("account_number LIKE ? ESCAPE '\\'", prefixPattern(prefix)).
		Row().Scan(&max)
	if err != nil {
		return "", err
	}
	return max.String, nil
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter, page, limit int) ([]model.Account, int64, error) {
	var accounts []model.Account
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Account{})
	if filter.Keyword != "" {
		kw := likePattern(filter.Keyword)
		db = db.Where("LOWER(account_number) LIKE ? OR LOWER(account_name) LIKE ?", kw, kw)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.BranchID != nil {
		db = db.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Preload("Customer").Preload("AccountType").Preload("Branch").
		Order("id desc").Offset(offset(page, limit)).Limit(limit).Find(&accounts).Error
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// FindDormancyCandidates lists ACTIVE accounts with no transaction since the cutoff.
// Accounts that never transacted are judged by their open date.
func (r *accountRepository) FindDormancyCandidates(ctx context.Context, inactiveSince time.Time, limit int) ([]uint, error) {
	var ids []uint
	err := GetDB(ctx, r.db).Model(&model.Account{}).
		Where("status = ?", model.AccountActive).
		Where("(last_transaction_date IS NOT NULL AND last_transaction_date < ?) OR (last_transaction_date IS NULL AND open_date < ?)",
			inactiveSince, inactiveSince).
		Order("id asc").Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *accountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Account{}).Count(&n).Error
	return n, err
}

func (r *accountRepository) CountByStatus(ctx context.Context, status model.AccountStatus) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Account{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// CountActiveByCustomer counts accounts that are still open for business.
func (r *accountRepository) CountActiveByCustomer(ctx context.Context, customerID uint) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Account{}).
		Where("customer_id = ? AND status IN ?", customerID,
			[]model.AccountStatus{model.AccountActive, model.AccountDormant, model.AccountFrozen}).
		Count(&n).Error
	return n, err
}

func (r *accountRepository) CountByBranch(ctx context.Context, branchID uint) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Account{}).Where("branch_id = ?", branchID).Count(&n).Error
	return n, err
}

func (r *accountRepository) SumActiveBalances(ctx context.Context, branchID *uint) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	db := GetDB(ctx, r.db).Model(&model.Account{}).
		Select("SUM(current_balance)").
		Where("status = ?", model.AccountActive)
	if branchID != nil {
		db = db.Where("branch_id = ?", *branchID)
	}
	if err := db.Row().Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
