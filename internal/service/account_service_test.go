package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/model"
	"secbank-cbs/pkg/clock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const actor uint = 7

type accountFixture struct {
	svc      AccountService
	accounts *memAccounts
	emitter  *recordingEmitter
	clock    *clock.Fixed
}

func newAccountFixture() *accountFixture {
	ninety := 90
	customers := newMemCustomers(
		model.Customer{ID: 1, CustomerNumber: "CIF26I000001", CustomerType: model.CustomerIndividual, FirstName: "Juan", LastName: "Cruz", Status: model.CustomerStatusActive},
		model.Customer{ID: 2, CustomerNumber: "CIF26I000002", CustomerType: model.CustomerIndividual, FirstName: "Ana", LastName: "Reyes", Status: model.CustomerStatusInactive},
		model.Customer{ID: 3, CustomerNumber: "CIF26C000001", CustomerType: model.CustomerCorporate, CompanyName: "Acme Trading", Status: model.CustomerStatusActive},
	)
	types := &memTypes{rows: map[uint]model.AccountType{
		1: {ID: 1, TypeCode: "SA", TypeName: "Regular Savings", Category: model.CategorySavings,
			InterestRate:          decimal.RequireFromString("0.0025"),
			MinimumOpeningBalance: decimal.NewNullDecimal(decimal.NewFromInt(500)),
			AllowIndividual:       true, Status: model.ProductStatusActive, Currency: "PHP"},
		2: {ID: 2, TypeCode: "TD", TypeName: "Time Deposit", Category: model.CategoryTimeDeposit,
			TermDays: &ninety, AllowIndividual: true, AllowCorporate: true, Status: model.ProductStatusActive},
		3: {ID: 3, TypeCode: "CA", TypeName: "Retired Current", Category: model.CategoryCurrent,
			AllowIndividual: true, Status: model.ProductStatusInactive},
	}}
	branches := &memBranches{rows: map[uint]model.Branch{
		1: {ID: 1, BranchCode: "001", BranchName: "Head Office", IsHeadOffice: true, Status: model.BranchStatusActive},
	}}

	f := &accountFixture{
		accounts: newMemAccounts(),
		emitter:  &recordingEmitter{},
		clock:    clock.NewFixed(testNow),
	}
	f.svc = NewAccountService(newFakeTx(), f.accounts, customers, types, branches, f.emitter, f.clock)
	return f
}

func (f *accountFixture) seed(status model.AccountStatus, balance string) uint {
	a := model.Account{
		AccountNumber: fmt.Sprintf("001SA26-%07d", len(f.accounts.numbers())+900),
		AccountName:   "Cruz, Juan",
		CustomerID:    1,
		AccountTypeID: 1,
		BranchID:      1,
		OpenDate:      testNow.AddDate(-1, 0, 0),
		Status:        status,
	}
	a.SetBalances(decimal.RequireFromString(balance), decimal.Zero)
	return f.accounts.put(a)
}

func openReq(customerID, typeID uint, deposit string) OpenAccountRequest {
	return OpenAccountRequest{
		CustomerID:     customerID,
		AccountTypeID:  typeID,
		BranchID:       1,
		InitialDeposit: decimal.RequireFromString(deposit),
	}
}

func TestOpenAccount(t *testing.T) {
	f := newAccountFixture()
	ctx := context.Background()

	res, err := f.svc.OpenAccount(ctx, actor, openReq(1, 1, "1000"))
	require.NoError(t, err)

	assert.Equal(t, "001SA26-0000001", res.AccountNumber)
	assert.Equal(t, model.AccountActive, res.Status)
	assert.Equal(t, "Cruz, Juan", res.AccountName)
	assert.Equal(t, "Cruz, Juan", res.CustomerName)
	assert.Equal(t, "SA", res.AccountTypeCode)
	assert.Equal(t, "001", res.BranchCode)
	assert.Equal(t, "1000.00", res.CurrentBalance.StringFixed(2))
	assert.Equal(t, "1000.00", res.AvailableBalance.StringFixed(2))
	assert.True(t, res.HoldBalance.IsZero())
	assert.Equal(t, "PHP", res.Currency)
	assert.Equal(t, clock.Today(f.clock), res.OpenDate)
	assert.True(t, res.AtmEnabled)
	assert.True(t, res.OnlineBankingEnabled)
	assert.False(t, res.SmsNotificationEnabled)
	assert.Equal(t, "SINGLE", res.SignatureType)
	assert.Equal(t, []string{model.ActionOpenAccount}, f.emitter.actions())

	second, err := f.svc.OpenAccount(ctx, actor, openReq(1, 1, "500"))
	require.NoError(t, err)
	assert.Equal(t, "001SA26-0000002", second.AccountNumber)
}

func TestOpenAccountTimeDepositSetsMaturity(t *testing.T) {
	f := newAccountFixture()

	res, err := f.svc.OpenAccount(context.Background(), actor, openReq(3, 2, "25000"))
	require.NoError(t, err)

	assert.Equal(t, "001TD26-0000001", res.AccountNumber)
	require.NotNil(t, res.MaturityDate)
	assert.Equal(t, clock.Today(f.clock).AddDate(0, 0, 90), *res.MaturityDate)
	assert.True(t, res.PrincipalAmount.Valid)
	assert.Equal(t, "25000.00", res.PrincipalAmount.Decimal.StringFixed(2))
}

func TestOpenAccountRejections(t *testing.T) {
	tests := []struct {
		name string
		req  OpenAccountRequest
		want apperr.Code
	}{
		{"zero deposit", openReq(1, 1, "0"), apperr.CodeValidation},
		{"negative deposit", openReq(1, 1, "-5"), apperr.CodeValidation},
		{"sub-cent deposit", openReq(1, 1, "0.004"), apperr.CodeValidation},
		{"fractional cent", openReq(1, 1, "1000.005"), apperr.CodeValidation},
		{"unknown customer", openReq(99, 1, "1000"), apperr.CodeNotFound},
		{"inactive customer", openReq(2, 1, "1000"), apperr.CodeInactiveCustomer},
		{"unknown product", openReq(1, 99, "1000"), apperr.CodeNotFound},
		{"inactive product", openReq(1, 3, "1000"), apperr.CodeInactiveProduct},
		{"below minimum", openReq(1, 1, "499.99"), apperr.CodeBelowMinimumOpeningBalance},
		{"corporate not allowed", openReq(3, 1, "1000"), apperr.CodeIneligibleCustomerType},
		{"unknown branch", OpenAccountRequest{CustomerID: 1, AccountTypeID: 1, BranchID: 42, InitialDeposit: decimal.NewFromInt(1000)}, apperr.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAccountFixture()

			_, err := f.svc.OpenAccount(context.Background(), actor, tt.req)

			assert.Equal(t, tt.want, apperr.CodeOf(err))
			assert.Zero(t, f.accounts.creates, "nothing may be persisted")
			assert.Empty(t, f.emitter.actions())
		})
	}
}

func TestOpenAccountRetriesOnDuplicateNumber(t *testing.T) {
	f := newAccountFixture()
	f.accounts.duplicates = 2

	res, err := f.svc.OpenAccount(context.Background(), actor, openReq(1, 1, "1000"))
	require.NoError(t, err)

	assert.Equal(t, 3, f.accounts.creates)
	assert.Equal(t, "001SA26-0000001", res.AccountNumber)
}

func TestOpenAccountGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newAccountFixture()
	f.accounts.duplicates = maxNumberRetries

	_, err := f.svc.OpenAccount(context.Background(), actor, openReq(1, 1, "1000"))

	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
	assert.Equal(t, maxNumberRetries, f.accounts.creates)
	assert.Empty(t, f.emitter.actions())
}

func TestOpenAccountConcurrentNumbersAreUnique(t *testing.T) {
	f := newAccountFixture()
	const n = 25

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.OpenAccount(context.Background(), actor, openReq(1, 1, "1000"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	numbers := f.accounts.numbers()
	require.Len(t, numbers, n)
	for i, num := range numbers {
		assert.Equal(t, fmt.Sprintf("001SA26-%07d", i+1), num)
	}
}

func TestCloseAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("non-zero balance", func(t *testing.T) {
		f := newAccountFixture()
		id := f.seed(model.AccountActive, "0.01")

		_, err := f.svc.Close(ctx, actor, id, "customer request")

		assert.Equal(t, apperr.CodeNonZeroBalance, apperr.CodeOf(err))
		got, _ := f.accounts.FindByID(ctx, id)
		assert.Equal(t, model.AccountActive, got.Status)
		assert.Empty(t, f.emitter.actions())
	})

	t.Run("zero balance", func(t *testing.T) {
		f := newAccountFixture()
		id := f.seed(model.AccountActive, "0.00")

		res, err := f.svc.Close(ctx, actor, id, "customer request")
		require.NoError(t, err)

		assert.Equal(t, model.AccountClosed, res.Status)
		require.NotNil(t, res.CloseDate)
		assert.Equal(t, clock.Today(f.clock), *res.CloseDate)
		require.NotNil(t, res.ClosedBy)
		assert.Equal(t, actor, *res.ClosedBy)
		assert.Equal(t, actor, *res.UpdatedBy)
		assert.Equal(t, []string{model.ActionCloseAccount}, f.emitter.actions())

		_, err = f.svc.Close(ctx, actor, id, "again")
		assert.Equal(t, apperr.CodeAlreadyClosed, apperr.CodeOf(err))

		_, err = f.svc.UpdateStatus(ctx, actor, id, model.AccountActive, "reopen")
		assert.Equal(t, apperr.CodeTerminalState, apperr.CodeOf(err))

		_, err = f.svc.UpdateAccount(ctx, actor, id, UpdateAccountRequest{Remarks: strPtr("late note")})
		assert.Equal(t, apperr.CodeTerminalState, apperr.CodeOf(err))
	})
}

func TestFreezeAndUnfreeze(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture()

	pending := f.seed(model.AccountPending, "0")
	_, err := f.svc.Freeze(ctx, actor, pending, "court order")
	assert.Equal(t, apperr.CodeIllegalTransition, apperr.CodeOf(err))

	id := f.seed(model.AccountActive, "150")
	frozen, err := f.svc.Freeze(ctx, actor, id, "court order")
	require.NoError(t, err)
	assert.Equal(t, model.AccountFrozen, frozen.Status)
	assert.Equal(t, "court order", frozen.StatusReason)

	_, err = f.svc.Freeze(ctx, actor, id, "again")
	assert.Equal(t, apperr.CodeIllegalTransition, apperr.CodeOf(err))

	active, err := f.svc.Unfreeze(ctx, actor, id)
	require.NoError(t, err)
	assert.Equal(t, model.AccountActive, active.Status)
	assert.Empty(t, active.StatusReason)

	assert.Equal(t, []string{model.ActionFreezeAccount, model.ActionUnfreezeAccount}, f.emitter.actions())
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture()
	id := f.seed(model.AccountPending, "0")

	_, err := f.svc.UpdateStatus(ctx, actor, id, model.AccountStatus("active"), "")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = f.svc.UpdateStatus(ctx, actor, id, model.AccountDormant, "")
	assert.Equal(t, apperr.CodeIllegalTransition, apperr.CodeOf(err))

	res, err := f.svc.UpdateStatus(ctx, actor, id, model.AccountActive, "approved")
	require.NoError(t, err)
	assert.Equal(t, model.AccountActive, res.Status)
	assert.Equal(t, "approved", res.StatusReason)

	_, err = f.svc.UpdateStatus(ctx, actor, 404, model.AccountActive, "")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestUpdateBalance(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture()
	id := f.seed(model.AccountActive, "100")

	res, err := f.svc.UpdateBalance(ctx, actor, id, UpdateBalanceRequest{
		CurrentBalance: decimal.RequireFromString("250.50"),
		HoldBalance:    decimal.NewNullDecimal(decimal.RequireFromString("50.25")),
	})
	require.NoError(t, err)
	assert.Equal(t, "200.25", res.AvailableBalance.StringFixed(2))
	require.NotNil(t, res.LastTransactionDate)
	assert.Equal(t, testNow, *res.LastTransactionDate)

	_, err = f.svc.UpdateBalance(ctx, actor, id, UpdateBalanceRequest{
		HoldBalance: decimal.NewNullDecimal(decimal.NewFromInt(-1)),
	})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = f.svc.UpdateBalance(ctx, actor, id, UpdateBalanceRequest{CurrentBalance: decimal.RequireFromString("10.001")})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	res, err = f.svc.UpdateBalance(ctx, actor, id, UpdateBalanceRequest{CurrentBalance: decimal.RequireFromString("10.500")})
	require.NoError(t, err)
	assert.Equal(t, "10.50", res.CurrentBalance.StringFixed(2))
}

func TestSweepDormant(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture()

	stale := f.seed(model.AccountActive, "10")
	recent := f.seed(model.AccountActive, "10")
	last := testNow.Add(-24 * time.Hour)
	a, _ := f.accounts.FindByID(ctx, recent)
	a.LastTransactionDate = &last
	require.NoError(t, f.accounts.Update(ctx, a))
	frozen := f.seed(model.AccountFrozen, "10")

	n, err := f.svc.SweepDormant(ctx, 180)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := f.accounts.FindByID(ctx, stale)
	assert.Equal(t, model.AccountDormant, got.Status)
	require.NotNil(t, got.DormantDate)
	assert.Nil(t, got.UpdatedBy)

	got, _ = f.accounts.FindByID(ctx, recent)
	assert.Equal(t, model.AccountActive, got.Status)
	got, _ = f.accounts.FindByID(ctx, frozen)
	assert.Equal(t, model.AccountFrozen, got.Status)
}

// staleCandidates returns a candidate list captured before later activity.
type staleCandidates struct {
	*memAccounts
	ids []uint
}

func (s *staleCandidates) FindDormancyCandidates(context.Context, time.Time, int) ([]uint, error) {
	return s.ids, nil
}

func TestSweepDormantRechecksActivityUnderLock(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture()
	idle := f.seed(model.AccountActive, "10")
	revived := f.seed(model.AccountActive, "10")

	// a deposit lands between candidate selection and the locked update
	last := testNow.Add(-time.Hour)
	a, _ := f.accounts.FindByID(ctx, revived)
	a.LastTransactionDate = &last
	require.NoError(t, f.accounts.Update(ctx, a))

	repo := &staleCandidates{memAccounts: f.accounts, ids: []uint{idle, revived}}
	svc := NewAccountService(newFakeTx(), repo, newMemCustomers(), &memTypes{}, &memBranches{}, f.emitter, f.clock)

	n, err := svc.SweepDormant(ctx, 180)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := f.accounts.FindByID(ctx, revived)
	assert.Equal(t, model.AccountActive, got.Status)
	assert.Nil(t, got.DormantDate)
	got, _ = f.accounts.FindByID(ctx, idle)
	assert.Equal(t, model.AccountDormant, got.Status)
	assert.Equal(t, []string{model.ActionDormantAccount}, f.emitter.actions())
}

func TestAccountStats(t *testing.T) {
	f := newAccountFixture()
	f.seed(model.AccountActive, "100.10")
	f.seed(model.AccountActive, "0.90")
	f.seed(model.AccountFrozen, "1000")
	f.seed(model.AccountClosed, "0")

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, stats.TotalActive)
	assert.EqualValues(t, 1, stats.TotalFrozen)
	assert.EqualValues(t, 1, stats.TotalClosed)
	assert.EqualValues(t, 0, stats.TotalPending)
	assert.Equal(t, "101.00", stats.TotalActiveBalance.StringFixed(2))
}

func strPtr(s string) *string { return &s }
