package service

import (
	"context"
	"fmt"
	"strings"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/audit"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"

	"github.com/shopspring/decimal"
)

// AccountTypeTerms are the product terms shared by create and update.
type AccountTypeTerms struct {
	TypeName                 string                `json:"typeName" binding:"required,max=100"`
	TypeNameCn               string                `json:"typeNameCn" binding:"max=100"`
	Category                 model.AccountCategory `json:"category" binding:"required,oneof=SAVINGS CURRENT TIME_DEPOSIT"`
	Description              string                `json:"description"`
	DescriptionCn            string                `json:"descriptionCn"`
	InterestRate             decimal.Decimal       `json:"interestRate"`
	InterestCalculation      string                `json:"interestCalculation" binding:"omitempty,oneof=DAILY_BALANCE AVERAGE_DAILY_BALANCE MINIMUM_BALANCE"`
	InterestPostingFrequency string                `json:"interestPostingFrequency" binding:"omitempty,oneof=DAILY MONTHLY QUARTERLY SEMI_ANNUALLY ANNUALLY AT_MATURITY"`
	MinimumBalance           decimal.Decimal       `json:"minimumBalance"`
	MinimumOpeningBalance    decimal.NullDecimal   `json:"minimumOpeningBalance"`
	MaximumBalance           decimal.NullDecimal   `json:"maximumBalance"`
	MonthlyFee               decimal.Decimal       `json:"monthlyFee"`
	BelowMinimumFee          decimal.Decimal       `json:"belowMinimumFee"`
	DormancyFee              decimal.Decimal       `json:"dormancyFee"`
	DailyWithdrawalLimit     decimal.NullDecimal   `json:"dailyWithdrawalLimit"`
	DailyTransferLimit       decimal.NullDecimal   `json:"dailyTransferLimit"`
	MaxTransactionsPerDay    *int                  `json:"maxTransactionsPerDay" binding:"omitempty,min=0"`
	TermDays                 *int                  `json:"termDays" binding:"omitempty,min=1"`
	EarlyWithdrawalPenalty   decimal.NullDecimal   `json:"earlyWithdrawalPenaltyRate"`
	AllowIndividual          *bool                 `json:"allowIndividual"`
	AllowCorporate           *bool                 `json:"allowCorporate"`
	MinimumAge               *int                  `json:"minimumAge" binding:"omitempty,min=0"`
	MaximumAge               *int                  `json:"maximumAge" binding:"omitempty,min=0"`
	Currency                 string                `json:"currency" binding:"omitempty,len=3"`
}

type CreateAccountTypeRequest struct {
	TypeCode string `json:"typeCode" binding:"required,max=10"`
	AccountTypeTerms
}

type UpdateAccountTypeRequest struct {
	AccountTypeTerms
}

type AccountTypeStats struct {
	TotalActive      int64 `json:"totalActive"`
	TotalInactive    int64 `json:"totalInactive"`
	TotalSavings     int64 `json:"totalSavings"`
	TotalCurrent     int64 `json:"totalCurrent"`
	TotalTimeDeposit int64 `json:"totalTimeDeposit"`
}

type AccountTypeService interface {
	CreateAccountType(ctx context.Context, actorID uint, req CreateAccountTypeRequest) (*model.AccountType, error)
	UpdateAccountType(ctx context.Context, actorID, id uint, req UpdateAccountTypeRequest) (*model.AccountType, error)
	UpdateStatus(ctx context.Context, actorID, id uint, status string) (*model.AccountType, error)
	GetAccountType(ctx context.Context, id uint) (*model.AccountType, error)
	ListAccountTypes(ctx context.Context, filter repository.AccountTypeFilter, page, limit int) ([]model.AccountType, int64, error)
	ListActiveAccountTypes(ctx context.Context) ([]model.AccountType, error)
	Stats(ctx context.Context) (*AccountTypeStats, error)
}

type accountTypeService struct {
	types repository.AccountTypeRepository
	audit audit.Emitter
}

func NewAccountTypeService(types repository.AccountTypeRepository, emitter audit.Emitter) AccountTypeService {
	return &accountTypeService{types: types, audit: emitter}
}

const entityAccountType = "AccountType"

func (s *accountTypeService) CreateAccountType(ctx context.Context, actorID uint, req CreateAccountTypeRequest) (*model.AccountType, error) {
	code := strings.ToUpper(strings.TrimSpace(req.TypeCode))
	if !numberCodePattern.MatchString(code) {
		return nil, apperr.Validation(map[string]string{"typeCode": "Type code must contain only letters and digits"})
	}
	exists, err := s.types.ExistsByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("check type code: %w", err)
	}
	if exists {
		return nil, apperr.Conflict(entityAccountType, "typeCode", code)
	}

	t := &model.AccountType{
		TypeCode:        code,
		Status:          model.ProductStatusActive,
		AllowIndividual: true,
		AllowCorporate:  true,
		CreatedBy:       &actorID,
		UpdatedBy:       &actorID,
	}
	if err := applyTerms(t, req.AccountTypeTerms); err != nil {
		return nil, err
	}
	if err := s.types.Create(ctx, t); err != nil {
		return nil, conflictOr(err, entityAccountType, "typeCode", code)
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionCreate,
		Module:      model.ModuleCASA,
		EntityType:  entityAccountType,
		EntityID:    &t.ID,
		NewValue:    t,
		Description: "Created account type: " + t.TypeCode,
	})
	return t, nil
}

func (s *accountTypeService) UpdateAccountType(ctx context.Context, actorID, id uint, req UpdateAccountTypeRequest) (*model.AccountType, error) {
	t, err := s.types.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, entityAccountType, "id", id)
	}
	before := *t
	if err := applyTerms(t, req.AccountTypeTerms); err != nil {
		return nil, err
	}
	t.UpdatedBy = &actorID
	if err := s.types.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update account type: %w", err)
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionUpdate,
		Module:      model.ModuleCASA,
		EntityType:  entityAccountType,
		EntityID:    &t.ID,
		OldValue:    &before,
		NewValue:    t,
		Description: "Updated account type: " + t.TypeCode,
	})
	return t, nil
}

func (s *accountTypeService) UpdateStatus(ctx context.Context, actorID, id uint, status string) (*model.AccountType, error) {
	if status != model.ProductStatusActive && status != model.ProductStatusInactive {
		return nil, apperr.Validation(map[string]string{"status": fmt.Sprintf("Unknown product status '%s'", status)})
	}
	t, err := s.types.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, entityAccountType, "id", id)
	}
	before := *t
	t.Status = status
	t.UpdatedBy = &actorID
	if err := s.types.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update account type status: %w", err)
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionUpdateStatus,
		Module:      model.ModuleCASA,
		EntityType:  entityAccountType,
		EntityID:    &t.ID,
		OldValue:    &before,
		NewValue:    t,
		Description: fmt.Sprintf("Changed account type %s status to %s", t.TypeCode, status),
	})
	return t, nil
}

func (s *accountTypeService) GetAccountType(ctx context.Context, id uint) (*model.AccountType, error) {
	t, err := s.types.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, entityAccountType, "id", id)
	}
	return t, nil
}

func (s *accountTypeService) ListAccountTypes(ctx context.Context, filter repository.AccountTypeFilter, page, limit int) ([]model.AccountType, int64, error) {
	page, limit = normalizePage(page, limit)
	types, total, err := s.types.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list account types: %w", err)
	}
	return types, total, nil
}

func (s *accountTypeService) ListActiveAccountTypes(ctx context.Context) ([]model.AccountType, error) {
	return s.types.ListActive(ctx)
}

func (s *accountTypeService) Stats(ctx context.Context) (*AccountTypeStats, error) {
	stats := &AccountTypeStats{}
	var err error
	if stats.TotalActive, err = s.types.CountByStatus(ctx, model.ProductStatusActive); err != nil {
		return nil, err
	}
	if stats.TotalInactive, err = s.types.CountByStatus(ctx, model.ProductStatusInactive); err != nil {
		return nil, err
	}
	if stats.TotalSavings, err = s.types.CountByCategory(ctx, model.CategorySavings); err != nil {
		return nil, err
	}
	if stats.TotalCurrent, err = s.types.CountByCategory(ctx, model.CategoryCurrent); err != nil {
		return nil, err
	}
	if stats.TotalTimeDeposit, err = s.types.CountByCategory(ctx, model.CategoryTimeDeposit); err != nil {
		return nil, err
	}
	return stats, nil
}

func applyTerms(t *model.AccountType, in AccountTypeTerms) error {
	fields := map[string]string{}
	nonNegative := func(field string, d decimal.Decimal) {
		if d.IsNegative() {
			fields[field] = "Must be non-negative"
		}
	}
	nonNegative("interestRate", in.InterestRate)
	nonNegative("minimumBalance", in.MinimumBalance)
	nonNegative("monthlyFee", in.MonthlyFee)
	nonNegative("belowMinimumFee", in.BelowMinimumFee)
	nonNegative("dormancyFee", in.DormancyFee)
	if in.MinimumOpeningBalance.Valid {
		nonNegative("minimumOpeningBalance", in.MinimumOpeningBalance.Decimal)
	}
	if in.MaximumBalance.Valid && in.MaximumBalance.Decimal.LessThan(in.MinimumBalance) {
		fields["maximumBalance"] = "Maximum balance must not be below minimum balance"
	}
	if in.MinimumAge != nil && in.MaximumAge != nil && *in.MaximumAge < *in.MinimumAge {
		fields["maximumAge"] = "Maximum age must not be below minimum age"
	}
	if in.Category == model.CategoryTimeDeposit && in.TermDays == nil {
		fields["termDays"] = "Term days are required for time deposits"
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}

	t.TypeName = in.TypeName
	t.TypeNameCn = in.TypeNameCn
	t.Category = in.Category
	t.Description = in.Description
	t.DescriptionCn = in.DescriptionCn
	t.InterestRate = in.InterestRate
	t.InterestCalculation = in.InterestCalculation
	t.InterestPostingFrequency = in.InterestPostingFrequency
	t.MinimumBalance = in.MinimumBalance
	t.MinimumOpeningBalance = in.MinimumOpeningBalance
	t.MaximumBalance = in.MaximumBalance
	t.MonthlyFee = in.MonthlyFee
	t.BelowMinimumFee = in.BelowMinimumFee
	t.DormancyFee = in.DormancyFee
	t.DailyWithdrawalLimit = in.DailyWithdrawalLimit
	t.DailyTransferLimit = in.DailyTransferLimit
	t.MaxTransactionsPerDay = in.MaxTransactionsPerDay
	t.TermDays = in.TermDays
	t.EarlyWithdrawalPenalty = in.EarlyWithdrawalPenalty
	t.AllowIndividual = boolOr(in.AllowIndividual, t.AllowIndividual)
	t.AllowCorporate = boolOr(in.AllowCorporate, t.AllowCorporate)
	t.MinimumAge = in.MinimumAge
	t.MaximumAge = in.MaximumAge
	t.Currency = strings.ToUpper(in.Currency)
	if t.Currency == "" {
		t.Currency = model.DefaultCurrency
	}
	return nil
}
