package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/audit"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
	"secbank-cbs/pkg/clock"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type OpenAccountRequest struct {
	CustomerID               uint            `json:"customerId" binding:"required"`
	AccountTypeID            uint            `json:"accountTypeId" binding:"required"`
	BranchID                 uint            `json:"branchId" binding:"required"`
	InitialDeposit           decimal.Decimal `json:"initialDeposit"`
	AccountName              string          `json:"accountName" binding:"max=200"`
	AccountNameCn            string          `json:"accountNameCn" binding:"max=200"`
	IsJointAccount           *bool           `json:"isJointAccount"`
	AtmEnabled               *bool           `json:"atmEnabled"`
	OnlineBankingEnabled     *bool           `json:"onlineBankingEnabled"`
	SmsNotificationEnabled   *bool           `json:"smsNotificationEnabled"`
	EmailNotificationEnabled *bool           `json:"emailNotificationEnabled"`
	SignatureType            string          `json:"signatureType" binding:"omitempty,oneof=SINGLE JOINT_AND JOINT_OR"`
	Remarks                  string          `json:"remarks"`
}

type UpdateAccountRequest struct {
	AccountName              *string `json:"accountName" binding:"omitempty,min=1,max=200"`
	AccountNameCn            *string `json:"accountNameCn" binding:"omitempty,max=200"`
	AtmEnabled               *bool   `json:"atmEnabled"`
	OnlineBankingEnabled     *bool   `json:"onlineBankingEnabled"`
	SmsNotificationEnabled   *bool   `json:"smsNotificationEnabled"`
	EmailNotificationEnabled *bool   `json:"emailNotificationEnabled"`
	Remarks                  *string `json:"remarks"`
}

type UpdateBalanceRequest struct {
	CurrentBalance decimal.Decimal     `json:"currentBalance"`
	HoldBalance    decimal.NullDecimal `json:"holdBalance"`
}

// AccountResponse flattens the owning customer, product and branch into the account.
type AccountResponse struct {
	model.Account
	CustomerNumber  string `json:"customerNumber,omitempty"`
	CustomerName    string `json:"customerName,omitempty"`
	AccountTypeCode string `json:"accountTypeCode,omitempty"`
	AccountTypeName string `json:"accountTypeName,omitempty"`
	BranchCode      string `json:"branchCode,omitempty"`
	BranchName      string `json:"branchName,omitempty"`
}

type AccountStats struct {
	TotalPending       int64           `json:"totalPending"`
	TotalActive        int64           `json:"totalActive"`
	TotalDormant       int64           `json:"totalDormant"`
	TotalFrozen        int64           `json:"totalFrozen"`
	TotalBlocked       int64           `json:"totalBlocked"`
	TotalClosed        int64           `json:"totalClosed"`
	TotalActiveBalance decimal.Decimal `json:"totalActiveBalance"`
}

type BranchAccountStats struct {
	BranchID      uint            `json:"branchId"`
	TotalAccounts int64           `json:"totalAccounts"`
	TotalBalance  decimal.Decimal `json:"totalBalance"`
}

// --- Interface ---

type AccountService interface {
	OpenAccount(ctx context.Context, actorID uint, req OpenAccountRequest) (*AccountResponse, error)
	GetAccount(ctx context.Context, id uint) (*AccountResponse, error)
	GetByNumber(ctx context.Context, number string) (*AccountResponse, error)
	ListAccounts(ctx context.Context, filter repository.AccountFilter, page, limit int) ([]AccountResponse, int64, error)
	UpdateAccount(ctx context.Context, actorID, id uint, req UpdateAccountRequest) (*AccountResponse, error)
	UpdateBalance(ctx context.Context, actorID, id uint, req UpdateBalanceRequest) (*AccountResponse, error)
	UpdateStatus(ctx context.Context, actorID, id uint, target model.AccountStatus, reason string) (*AccountResponse, error)
	Freeze(ctx context.Context, actorID, id uint, reason string) (*AccountResponse, error)
	Unfreeze(ctx context.Context, actorID, id uint) (*AccountResponse, error)
	Close(ctx context.Context, actorID, id uint, reason string) (*AccountResponse, error)
	MarkDormant(ctx context.Context, id uint, cutoff time.Time) error
	SweepDormant(ctx context.Context, inactiveDays int) (int, error)
	Stats(ctx context.Context) (*AccountStats, error)
	BranchStats(ctx context.Context, branchID uint) (*BranchAccountStats, error)
}

type accountService struct {
	tx        repository.TransactionManager
	accounts  repository.AccountRepository
	customers repository.CustomerRepository
	types     repository.AccountTypeRepository
	branches  repository.BranchRepository
	audit     audit.Emitter
	clock     clock.Clock
	logger    *slog.Logger
}

func NewAccountService(
	tx repository.TransactionManager,
	accounts repository.AccountRepository,
	customers repository.CustomerRepository,
	types repository.AccountTypeRepository,
	branches repository.BranchRepository,
	emitter audit.Emitter,
	clk clock.Clock,
) AccountService {
	return &accountService{
		tx:        tx,
		accounts:  accounts,
		customers: customers,
		types:     types,
		branches:  branches,
		audit:     emitter,
		clock:     clk,
		logger:    slog.Default(),
	}
}

const (
	entityAccount      = "Account"
	dormancyBatchLimit = 500
)

// OpenAccount validates eligibility, then generates the number and inserts in
// one transaction per attempt. Nothing is written when validation fails.
func (s *accountService) OpenAccount(ctx context.Context, actorID uint, req OpenAccountRequest) (*AccountResponse, error) {
	if !req.InitialDeposit.IsPositive() {
		return nil, apperr.Validation(map[string]string{"initialDeposit": "Initial deposit must be greater than zero"})
	}
	if subCent(req.InitialDeposit) {
		return nil, apperr.Validation(map[string]string{"initialDeposit": "Initial deposit cannot have more than 2 decimal places"})
	}

	customer, err := s.customers.FindByID(ctx, req.CustomerID)
	if err != nil {
		return nil, notFoundOr(err, "Customer", "id", req.CustomerID)
	}
	if customer.Status != model.CustomerStatusActive {
		return nil, apperr.Newf(apperr.CodeInactiveCustomer, "Customer %s is not active", customer.CustomerNumber)
	}

	accountType, err := s.types.FindByID(ctx, req.AccountTypeID)
	if err != nil {
		return nil, notFoundOr(err, "AccountType", "id", req.AccountTypeID)
	}
	if accountType.Status != model.ProductStatusActive {
		return nil, apperr.Newf(apperr.CodeInactiveProduct, "Account type %s is not active", accountType.TypeCode)
	}
	if accountType.MinimumOpeningBalance.Valid && req.InitialDeposit.LessThan(accountType.MinimumOpeningBalance.Decimal) {
		return nil, apperr.Newf(apperr.CodeBelowMinimumOpeningBalance,
			"Initial deposit is below minimum opening balance requirement of %s", accountType.MinimumOpeningBalance.Decimal.StringFixed(2))
	}
	if !accountType.Allows(customer.CustomerType) {
		return nil, apperr.Newf(apperr.CodeIneligibleCustomerType,
			"Account type %s is not available for %s customers", accountType.TypeCode, customer.CustomerType)
	}

	branch, err := s.branches.FindByID(ctx, req.BranchID)
	if err != nil {
		return nil, notFoundOr(err, "Branch", "id", req.BranchID)
	}

	now := s.clock.Now()
	today := clock.Today(s.clock)
	account := s.newAccount(actorID, req, customer, accountType, branch, today)
	prefix := AccountNumberPrefix(branch.BranchCode, accountType.TypeCode, now)

	err = runWithNumberRetry(ctx, s.tx, s.logger, "account", prefix, func(txCtx context.Context) error {
		max, err := s.accounts.MaxNumberWithPrefix(txCtx, prefix)
		if err != nil {
			return fmt.Errorf("read max account number: %w", err)
		}
		account.ID = 0
		account.AccountNumber = NextAccountNumber(prefix, max)
		return s.accounts.Create(txCtx, account)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      &actorID,
		Action:      model.ActionOpenAccount,
		Module:      model.ModuleCASA,
		EntityType:  entityAccount,
		EntityID:    &account.ID,
		NewValue:    accountSnapshot(account),
		Description: "Opened account " + account.AccountNumber,
	})

	account.Customer = customer
	account.AccountType = accountType
	account.Branch = branch
	return toAccountResponse(account), nil
}

func (s *accountService) newAccount(actorID uint, req OpenAccountRequest, customer *model.Customer, t *model.AccountType, branch *model.Branch, today time.Time) *model.Account {
	name := req.AccountName
	if name == "" {
		name = customer.DisplayName()
	}
	currency := t.Currency
	if currency == "" {
		currency = model.DefaultCurrency
	}
	signature := req.SignatureType
	if signature == "" {
		signature = "SINGLE"
	}

	a := &model.Account{
		AccountName:              name,
		AccountNameCn:            req.AccountNameCn,
		CustomerID:               customer.ID,
		AccountTypeID:            t.ID,
		BranchID:                 branch.ID,
		Currency:                 currency,
		InterestRate:             t.InterestRate,
		AccruedInterest:          decimal.Zero,
		OverdraftLimit:           decimal.Zero,
		LastInterestDate:         &today,
		OpenDate:                 today,
		Status:                   model.AccountActive,
		IsJointAccount:           boolOr(req.IsJointAccount, false),
		AllowDebit:               true,
		AllowCredit:              true,
		AtmEnabled:               boolOr(req.AtmEnabled, true),
		OnlineBankingEnabled:     boolOr(req.OnlineBankingEnabled, true),
		SmsNotificationEnabled:   boolOr(req.SmsNotificationEnabled, false),
		EmailNotificationEnabled: boolOr(req.EmailNotificationEnabled, false),
		SignatureType:            signature,
		Remarks:                  req.Remarks,
		CreatedBy:                &actorID,
		UpdatedBy:                &actorID,
	}
	a.SetBalances(req.InitialDeposit, decimal.Zero)
	if t.Category == model.CategoryTimeDeposit {
		a.PrincipalAmount = decimal.NewNullDecimal(req.InitialDeposit)
		if t.TermDays != nil {
			maturity := today.AddDate(0, 0, *t.TermDays)
			a.MaturityDate = &maturity
		}
	}
	return a
}

// runWithNumberRetry runs insert under a transaction-scoped lock on the number
// prefix. A unique violation means another writer won the race; try again.
func runWithNumberRetry(ctx context.Context, tx repository.TransactionManager, logger *slog.Logger, scope, prefix string, insert func(txCtx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxNumberRetries; attempt++ {
		err = tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := tx.LockKey(txCtx, scope+":"+prefix); err != nil {
				return fmt.Errorf("lock number prefix: %w", err)
			}
			return insert(txCtx)
		})
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		logger.Warn("number collision, retrying", "scope", scope, "prefix", prefix, "attempt", attempt)
	}
	return apperr.Wrap(apperr.CodeConflict, fmt.Sprintf("Could not allocate a unique %s number for prefix %s", scope, prefix), err)
}

func (s *accountService) GetAccount(ctx context.Context, id uint) (*AccountResponse, error) {
	a, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, entityAccount, "id", id)
	}
	return toAccountResponse(a), nil
}

func (s *accountService) GetByNumber(ctx context.Context, number string) (*AccountResponse, error) {
	a, err := s.accounts.FindByNumber(ctx, number)
	if err != nil {
		return nil, notFoundOr(err, entityAccount, "accountNumber", number)
	}
	return toAccountResponse(a), nil
}

func (s *accountService) ListAccounts(ctx context.Context, filter repository.AccountFilter, page, limit int) ([]AccountResponse, int64, error) {
	accounts, total, err := s.accounts.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	res := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		res = append(res, *toAccountResponse(&accounts[i]))
	}
	return res, total, nil
}

func (s *accountService) UpdateAccount(ctx context.Context, actorID, id uint, req UpdateAccountRequest) (*AccountResponse, error) {
	return s.mutate(ctx, &actorID, id, OpUpdate, model.ActionUpdateAccount, func(a *model.Account) error {
		if req.AccountName != nil {
			a.AccountName = *req.AccountName
		}
		if req.AccountNameCn != nil {
			a.AccountNameCn = *req.AccountNameCn
		}
		if req.AtmEnabled != nil {
			a.AtmEnabled = *req.AtmEnabled
		}
		if req.OnlineBankingEnabled != nil {
			a.OnlineBankingEnabled = *req.OnlineBankingEnabled
		}
		if req.SmsNotificationEnabled != nil {
			a.SmsNotificationEnabled = *req.SmsNotificationEnabled
		}
		if req.EmailNotificationEnabled != nil {
			a.EmailNotificationEnabled = *req.EmailNotificationEnabled
		}
		if req.Remarks != nil {
			a.Remarks = *req.Remarks
		}
		return nil
	}, "Updated account details")
}

func (s *accountService) UpdateBalance(ctx context.Context, actorID, id uint, req UpdateBalanceRequest) (*AccountResponse, error) {
	fields := map[string]string{}
	if subCent(req.CurrentBalance) {
		fields["currentBalance"] = "Current balance cannot have more than 2 decimal places"
	}
	if req.HoldBalance.Valid {
		switch {
		case req.HoldBalance.Decimal.IsNegative():
			fields["holdBalance"] = "Hold balance cannot be negative"
		case subCent(req.HoldBalance.Decimal):
			fields["holdBalance"] = "Hold balance cannot have more than 2 decimal places"
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}
	return s.mutate(ctx, &actorID, id, OpUpdate, model.ActionUpdateBalance, func(a *model.Account) error {
		hold := a.HoldBalance
		if req.HoldBalance.Valid {
			hold = req.HoldBalance.Decimal
		}
		a.SetBalances(req.CurrentBalance, hold)
		now := s.clock.Now()
		a.LastTransactionDate = &now
		return nil
	}, "Updated account balance")
}

func (s *accountService) UpdateStatus(ctx context.Context, actorID, id uint, target model.AccountStatus, reason string) (*AccountResponse, error) {
	if _, ok := model.ParseAccountStatus(string(target)); !ok {
		return nil, apperr.Validation(map[string]string{"status": fmt.Sprintf("Unknown account status '%s'", target)})
	}
	return s.mutate(ctx, &actorID, id, OpUpdateStatus, model.ActionUpdateStatus, func(a *model.Account) error {
		if err := CheckTransition(OpUpdateStatus, a.Status, target); err != nil {
			return err
		}
		a.Status = target
		a.StatusReason = reason
		today := clock.Today(s.clock)
		switch target {
		case model.AccountClosed:
			a.CloseDate = &today
			a.ClosedBy = &actorID
		case model.AccountDormant:
			a.DormantDate = &today
		}
		return nil
	}, "Changed account status to "+string(target))
}

func (s *accountService) Freeze(ctx context.Context, actorID, id uint, reason string) (*AccountResponse, error) {
	return s.mutate(ctx, &actorID, id, OpFreeze, model.ActionFreezeAccount, func(a *model.Account) error {
		if err := CheckTransition(OpFreeze, a.Status, model.AccountFrozen); err != nil {
			return err
		}
		a.Status = model.AccountFrozen
		a.StatusReason = reason
		return nil
	}, "Froze account")
}

func (s *accountService) Unfreeze(ctx context.Context, actorID, id uint) (*AccountResponse, error) {
	return s.mutate(ctx, &actorID, id, OpUnfreeze, model.ActionUnfreezeAccount, func(a *model.Account) error {
		if err := CheckTransition(OpUnfreeze, a.Status, model.AccountActive); err != nil {
			return err
		}
		a.Status = model.AccountActive
		a.StatusReason = ""
		return nil
	}, "Unfroze account")
}

func (s *accountService) Close(ctx context.Context, actorID, id uint, reason string) (*AccountResponse, error) {
	return s.mutate(ctx, &actorID, id, OpClose, model.ActionCloseAccount, func(a *model.Account) error {
		if err := CheckTransition(OpClose, a.Status, model.AccountClosed); err != nil {
			return err
		}
		if !a.CurrentBalance.IsZero() {
			return apperr.Newf(apperr.CodeNonZeroBalance,
				"Account balance must be zero before closing (current balance %s)", a.CurrentBalance.StringFixed(2))
		}
		today := clock.Today(s.clock)
		a.Status = model.AccountClosed
		a.StatusReason = reason
		a.CloseDate = &today
		a.ClosedBy = &actorID
		return nil
	}, "Closed account")
}

var errRecentActivity = errors.New("account has activity after the dormancy cutoff")

// MarkDormant is run by the scheduler; there is no acting user. The account is
// left alone if its last activity, read under the row lock, is not before cutoff.
func (s *accountService) MarkDormant(ctx context.Context, id uint, cutoff time.Time) error {
	_, err := s.mutate(ctx, nil, id, OpMarkDormant, model.ActionDormantAccount, func(a *model.Account) error {
		if err := CheckTransition(OpMarkDormant, a.Status, model.AccountDormant); err != nil {
			return err
		}
		lastActivity := a.OpenDate
		if a.LastTransactionDate != nil {
			lastActivity = *a.LastTransactionDate
		}
		if !lastActivity.Before(cutoff) {
			return errRecentActivity
		}
		today := clock.Today(s.clock)
		a.Status = model.AccountDormant
		a.StatusReason = "No customer activity"
		a.DormantDate = &today
		return nil
	}, "Marked account dormant after inactivity")
	return err
}

// SweepDormant marks ACTIVE accounts without activity for inactiveDays as DORMANT.
// Accounts that changed state or saw activity since they were selected are skipped.
func (s *accountService) SweepDormant(ctx context.Context, inactiveDays int) (int, error) {
	cutoff := clock.Today(s.clock).AddDate(0, 0, -inactiveDays)
	ids, err := s.accounts.FindDormancyCandidates(ctx, cutoff, dormancyBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("find dormancy candidates: %w", err)
	}
	marked := 0
	for _, id := range ids {
		err := s.MarkDormant(ctx, id, cutoff)
		if errors.Is(err, errRecentActivity) {
			continue
		}
		if err != nil {
			s.logger.Warn("skip dormancy", "account_id", id, "error", err)
			continue
		}
		marked++
	}
	return marked, nil
}

// mutate re-reads the account under a row lock, applies fn, and saves it in one
// transaction. The audit record is emitted only after commit.
func (s *accountService) mutate(ctx context.Context, actorID *uint, id uint, op Operation, action string, fn func(a *model.Account) error, description string) (*AccountResponse, error) {
	var before, after model.Account
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.accounts.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return notFoundOr(err, entityAccount, "id", id)
		}
		if op == OpUpdate {
			if err := CheckTransition(OpUpdate, a.Status, a.Status); err != nil {
				return err
			}
		}
		before = *accountSnapshot(a)
		if err := fn(a); err != nil {
			return err
		}
		a.UpdatedBy = actorID
		if err := s.accounts.Update(txCtx, a); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		after = *accountSnapshot(a)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogAction(ctx, audit.Event{
		UserID:      actorID,
		Action:      action,
		Module:      model.ModuleCASA,
		EntityType:  entityAccount,
		EntityID:    &id,
		OldValue:    &before,
		NewValue:    &after,
		Description: description + " " + after.AccountNumber,
	})

	return s.GetAccount(ctx, id)
}

func (s *accountService) Stats(ctx context.Context) (*AccountStats, error) {
	stats := &AccountStats{}
	counts := []struct {
		status model.AccountStatus
		dst    *int64
	}{
		{model.AccountPending, &stats.TotalPending},
		{model.AccountActive, &stats.TotalActive},
		{model.AccountDormant, &stats.TotalDormant},
		{model.AccountFrozen, &stats.TotalFrozen},
		{model.AccountBlocked, &stats.TotalBlocked},
		{model.AccountClosed, &stats.TotalClosed},
	}
	for _, c := range counts {
		n, err := s.accounts.CountByStatus(ctx, c.status)
		if err != nil {
			return nil, fmt.Errorf("count %s accounts: %w", c.status, err)
		}
		*c.dst = n
	}
	sum, err := s.accounts.SumActiveBalances(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sum active balances: %w", err)
	}
	stats.TotalActiveBalance = sum
	return stats, nil
}

func (s *accountService) BranchStats(ctx context.Context, branchID uint) (*BranchAccountStats, error) {
	if _, err := s.branches.FindByID(ctx, branchID); err != nil {
		return nil, notFoundOr(err, "Branch", "id", branchID)
	}
	n, err := s.accounts.CountByBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("count branch accounts: %w", err)
	}
	sum, err := s.accounts.SumActiveBalances(ctx, &branchID)
	if err != nil {
		return nil, fmt.Errorf("sum branch balances: %w", err)
	}
	return &BranchAccountStats{BranchID: branchID, TotalAccounts: n, TotalBalance: sum}, nil
}

// accountSnapshot copies the row without its associations for audit values.
func accountSnapshot(a *model.Account) *model.Account {
	cp := *a
	cp.Customer = nil
	cp.AccountType = nil
	cp.Branch = nil
	return &cp
}

func toAccountResponse(a *model.Account) *AccountResponse {
	res := &AccountResponse{Account: *accountSnapshot(a)}
	if a.Customer != nil {
		res.CustomerNumber = a.Customer.CustomerNumber
		res.CustomerName = a.Customer.DisplayName()
	}
	if a.AccountType != nil {
		res.AccountTypeCode = a.AccountType.TypeCode
		res.AccountTypeName = a.AccountType.TypeName
	}
	if a.Branch != nil {
		res.BranchCode = a.Branch.BranchCode
		res.BranchName = a.Branch.BranchName
	}
	return res
}
