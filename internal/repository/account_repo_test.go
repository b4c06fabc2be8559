package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"secbank-cbs/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var day0 = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

type repoFixture struct {
	db       *gorm.DB
	accounts AccountRepository
	tx       TransactionManager
	branch   model.Branch
	customer model.Customer
	typ      model.AccountType
}

func openTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models...))
	return db
}

func newRepoFixture(t *testing.T) *repoFixture {
	t.Helper()
	db := openTestDB(t, &model.Branch{}, &model.Customer{}, &model.AccountType{}, &model.Account{})

	f := &repoFixture{db: db, accounts: NewAccountRepository(db), tx: NewTransactionManager(db)}
	f.branch = model.Branch{BranchCode: "001", BranchName: "Head Office", IsHeadOffice: true, Status: model.BranchStatusActive}
	require.NoError(t, db.Create(&f.branch).Error)
	f.customer = model.Customer{CustomerNumber: "CIF26I000001", CustomerType: model.CustomerIndividual,
		FirstName: "Ana", LastName: "Reyes", IDType: "PASSPORT", IDNumber: "P123", BranchID: f.branch.ID,
		Status: model.CustomerStatusActive}
	require.NoError(t, db.Create(&f.customer).Error)
	f.typ = model.AccountType{TypeCode: "SA", TypeName: "Savings", Category: model.CategorySavings,
		AllowIndividual: true, Status: model.ProductStatusActive}
	require.NoError(t, db.Create(&f.typ).Error)
	return f
}

func (f *repoFixture) add(t *testing.T, number string, status model.AccountStatus, balance string, opened time.Time, lastTxn *time.Time) *model.Account {
	t.Helper()
	a := &model.Account{
		AccountNumber:       number,
		AccountName:         "Ana Reyes",
		CustomerID:          f.customer.ID,
		AccountTypeID:       f.typ.ID,
		BranchID:            f.branch.ID,
		Currency:            model.DefaultCurrency,
		OpenDate:            opened,
		LastTransactionDate: lastTxn,
		Status:              status,
	}
	a.SetBalances(decimal.RequireFromString(balance), decimal.Zero)
	require.NoError(t, f.accounts.Create(context.Background(), a))
	return a
}

func TestAccountRepoMaxNumberWithPrefix(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	max, err := f.accounts.MaxNumberWithPrefix(ctx, "001SA26-")
	require.NoError(t, err)
	assert.Empty(t, max)

	f.add(t, "001SA26-0000002", model.AccountActive, "0", day0, nil)
	f.add(t, "001SA26-0000010", model.AccountActive, "0", day0, nil)
	f.add(t, "001SA25-0000099", model.AccountActive, "0", day0, nil)
	f.add(t, "002SA26-0000500", model.AccountActive, "0", day0, nil)

	max, err = f.accounts.MaxNumberWithPrefix(ctx, "001SA26-")
	require.NoError(t, err)
	assert.Equal(t, "001SA26-0000010", max)
}

func TestAccountRepoDuplicateNumber(t *testing.T) {
	f := newRepoFixture(t)
	f.add(t, "001SA26-0000001", model.AccountActive, "0", day0, nil)

	dup := &model.Account{AccountNumber: "001SA26-0000001", AccountName: "x", CustomerID: f.customer.ID,
		AccountTypeID: f.typ.ID, BranchID: f.branch.ID, Currency: "PHP", OpenDate: day0, Status: model.AccountActive}
	err := f.accounts.Create(context.Background(), dup)

	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestAccountRepoFindByIDMissing(t *testing.T) {
	f := newRepoFixture(t)

	_, err := f.accounts.FindByID(context.Background(), 404)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountRepoDormancyCandidates(t *testing.T) {
	f := newRepoFixture(t)
	cutoff := day0.AddDate(0, 0, 30)
	recent := cutoff.AddDate(0, 0, 1)
	stale := cutoff.AddDate(0, 0, -1)

	neverUsed := f.add(t, "001SA26-0000001", model.AccountActive, "0", day0, nil)
	staleTxn := f.add(t, "001SA26-0000002", model.AccountActive, "0", day0, &stale)
	f.add(t, "001SA26-0000003", model.AccountActive, "0", day0, &recent)
	f.add(t, "001SA26-0000004", model.AccountFrozen, "0", day0, nil)
	f.add(t, "001SA26-0000005", model.AccountActive, "0", recent, nil)

	ids, err := f.accounts.FindDormancyCandidates(context.Background(), cutoff, 100)
	require.NoError(t, err)
	assert.Equal(t, []uint{neverUsed.ID, staleTxn.ID}, ids)

	ids, err = f.accounts.FindDormancyCandidates(context.Background(), cutoff, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{neverUsed.ID}, ids)
}

func TestAccountRepoCountsAndBalances(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	sum, err := f.accounts.SumActiveBalances(ctx, nil)
	require.NoError(t, err)
	assert.True(t, sum.IsZero())

	f.add(t, "001SA26-0000001", model.AccountActive, "100.50", day0, nil)
	f.add(t, "001SA26-0000002", model.AccountActive, "50.25", day0, nil)
	f.add(t, "001SA26-0000003", model.AccountFrozen, "999", day0, nil)
	f.add(t, "001SA26-0000004", model.AccountClosed, "0", day0, nil)
	f.add(t, "001SA26-0000005", model.AccountBlocked, "10", day0, nil)

	sum, err = f.accounts.SumActiveBalances(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "150.75", sum.StringFixed(2))

	other := uint(99)
	sum, err = f.accounts.SumActiveBalances(ctx, &other)
	require.NoError(t, err)
	assert.True(t, sum.IsZero())

	n, err := f.accounts.CountByStatus(ctx, model.AccountActive)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = f.accounts.CountActiveByCustomer(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = f.accounts.CountByBranch(ctx, f.branch.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

func TestAccountRepoListFilters(t *testing.T) {
	f := newRepoFixture(t)
	f.add(t, "001SA26-0000001", model.AccountActive, "0", day0, nil)
	f.add(t, "001SA26-0000002", model.AccountFrozen, "0", day0, nil)
	f.add(t, "001SA26-0000003", model.AccountActive, "0", day0, nil)

	rows, total, err := f.accounts.List(context.Background(), AccountFilter{Status: model.AccountActive}, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "001SA26-0000003", rows[0].AccountNumber)
	require.NotNil(t, rows[0].Branch)
	assert.Equal(t, "001", rows[0].Branch.BranchCode)

	rows, total, err = f.accounts.List(context.Background(), AccountFilter{Keyword: "0000002"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.AccountFrozen, rows[0].Status)
}

func TestTransactionManagerRollsBack(t *testing.T) {
	f := newRepoFixture(t)
	boom := errors.New("boom")

	err := f.tx.RunInTx(context.Background(), func(txCtx context.Context) error {
		require.NoError(t, f.tx.LockKey(txCtx, "acct:001SA26"))
		a := &model.Account{AccountNumber: "001SA26-0000001", AccountName: "x", CustomerID: f.customer.ID,
			AccountTypeID: f.typ.ID, BranchID: f.branch.ID, Currency: "PHP", OpenDate: day0, Status: model.AccountActive}
		require.NoError(t, f.accounts.Create(txCtx, a))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := f.accounts.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLockKeyOutsideTransaction(t *testing.T) {
	f := newRepoFixture(t)

	assert.Error(t, f.tx.LockKey(context.Background(), "acct:001SA26"))
}

func TestAccountRepoMaxNumberTreatsWildcardsLiterally(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()
	f.add(t, "001SA26-0000007", model.AccountActive, "0", day0, nil)

	for _, prefix := range []string{"0_1SA26-", "0%SA26-", `001SA26\`} {
		max, err := f.accounts.MaxNumberWithPrefix(ctx, prefix)
		require.NoError(t, err)
		assert.Empty(t, max, prefix)
	}

	max, err := f.accounts.MaxNumberWithPrefix(ctx, "001SA26-")
	require.NoError(t, err)
	assert.Equal(t, "001SA26-0000007", max)
}
