package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"secbank-cbs/internal/audit"
	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// fakeTx runs fn inline. LockKey holds a per-key mutex until RunInTx returns,
// like a transaction-scoped advisory lock.
type fakeTx struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type heldLocks struct{ unlock []func() }

type heldLocksKey struct{}

func newFakeTx() *fakeTx { return &fakeTx{locks: map[string]*sync.Mutex{}} }

func (f *fakeTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	held := &heldLocks{}
	defer func() {
		for _, u := range held.unlock {
			u()
		}
	}()
	return fn(context.WithValue(ctx, heldLocksKey{}, held))
}

func (f *fakeTx) LockKey(ctx context.Context, key string) error {
	held, ok := ctx.Value(heldLocksKey{}).(*heldLocks)
	if !ok {
		return errors.New("lock outside transaction")
	}
	f.mu.Lock()
	m, ok := f.locks[key]
	if !ok {
		m = &sync.Mutex{}
		f.locks[key] = m
	}
	f.mu.Unlock()
	m.Lock()
	held.unlock = append(held.unlock, m.Unlock)
	return nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingEmitter) LogAction(_ context.Context, ev audit.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingEmitter) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Action)
	}
	return out
}

// memAccounts enforces the unique account number like the real index.
type memAccounts struct {
	repository.AccountRepository
	mu         sync.Mutex
	rows       map[uint]model.Account
	nextID     uint
	creates    int
	duplicates int // next N creates fail with ErrDuplicate
}

func newMemAccounts() *memAccounts { return &memAccounts{rows: map[uint]model.Account{}} }

func (m *memAccounts) Create(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.duplicates > 0 {
		m.duplicates--
		return repository.ErrDuplicate
	}
	for _, row := range m.rows {
		if row.AccountNumber == a.AccountNumber {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	a.ID = m.nextID
	m.rows[a.ID] = *accountSnapshot(a)
	return nil
}

func (m *memAccounts) Update(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[a.ID]; !ok {
		return repository.ErrNotFound
	}
	m.rows[a.ID] = *accountSnapshot(a)
	return nil
}

func (m *memAccounts) FindByID(_ context.Context, id uint) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (m *memAccounts) FindByIDForUpdate(ctx context.Context, id uint) (*model.Account, error) {
	return m.FindByID(ctx, id)
}

func (m *memAccounts) MaxNumberWithPrefix(_ context.Context, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := ""
	for _, row := range m.rows {
		if strings.HasPrefix(row.AccountNumber, prefix) && row.AccountNumber > max {
			max = row.AccountNumber
		}
	}
	return max, nil
}

func (m *memAccounts) FindDormancyCandidates(_ context.Context, cutoff time.Time, limit int) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint
	for id, row := range m.rows {
		if row.Status != model.AccountActive {
			continue
		}
		last := row.OpenDate
		if row.LastTransactionDate != nil {
			last = *row.LastTransactionDate
		}
		if last.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *memAccounts) CountByStatus(_ context.Context, status model.AccountStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *memAccounts) CountActiveByCustomer(_ context.Context, customerID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.CustomerID != customerID {
			continue
		}
		switch row.Status {
		case model.AccountActive, model.AccountDormant, model.AccountFrozen:
			n++
		}
	}
	return n, nil
}

func (m *memAccounts) SumActiveBalances(_ context.Context, branchID *uint) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, row := range m.rows {
		if row.Status != model.AccountActive {
			continue
		}
		if branchID != nil && row.BranchID != *branchID {
			continue
		}
		sum = sum.Add(row.CurrentBalance)
	}
	return sum, nil
}

func (m *memAccounts) numbers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row.AccountNumber)
	}
	sort.Strings(out)
	return out
}

// put stores a row as-is, bypassing numbering.
func (m *memAccounts) put(a model.Account) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.rows[a.ID] = a
	return a.ID
}

type memCustomers struct {
	repository.CustomerRepository
	mu     sync.Mutex
	rows   map[uint]model.Customer
	nextID uint
}

func newMemCustomers(seed ...model.Customer) *memCustomers {
	m := &memCustomers{rows: map[uint]model.Customer{}}
	for _, c := range seed {
		if c.ID > m.nextID {
			m.nextID = c.ID
		}
		m.rows[c.ID] = c
	}
	return m
}

func (m *memCustomers) Create(_ context.Context, c *model.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.CustomerNumber == c.CustomerNumber {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	c.ID = m.nextID
	m.rows[c.ID] = *c
	return nil
}

func (m *memCustomers) Update(_ context.Context, c *model.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = *c
	return nil
}

func (m *memCustomers) FindByID(_ context.Context, id uint) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (m *memCustomers) FindByIDForUpdate(ctx context.Context, id uint) (*model.Customer, error) {
	return m.FindByID(ctx, id)
}

func (m *memCustomers) MaxNumberWithPrefix(_ context.Context, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := ""
	for _, row := range m.rows {
		if strings.HasPrefix(row.CustomerNumber, prefix) && row.CustomerNumber > max {
			max = row.CustomerNumber
		}
	}
	return max, nil
}

type memTypes struct {
	repository.AccountTypeRepository
	rows map[uint]model.AccountType
}

func (m *memTypes) FindByID(_ context.Context, id uint) (*model.AccountType, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

type memBranches struct {
	repository.BranchRepository
	rows map[uint]model.Branch
}

func (m *memBranches) FindByID(_ context.Context, id uint) (*model.Branch, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

type memUsers struct {
	repository.UserRepository
	mu       sync.Mutex
	rows     map[uint]model.User
	rowLocks *fakeTx
}

func newMemUsers(seed ...model.User) *memUsers {
	m := &memUsers{rows: map[uint]model.User{}, rowLocks: newFakeTx()}
	for _, u := range seed {
		m.rows[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByID(_ context.Context, id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (m *memUsers) FindByIDWithRoles(ctx context.Context, id uint) (*model.User, error) {
	return m.FindByID(ctx, id)
}

// FindByIDForUpdate holds the row until the surrounding RunInTx returns.
func (m *memUsers) FindByIDForUpdate(ctx context.Context, id uint) (*model.User, error) {
	if err := m.rowLocks.LockKey(ctx, fmt.Sprintf("user:%d", id)); err != nil {
		return nil, err
	}
	return m.FindByID(ctx, id)
}

func (m *memUsers) SaveLoginState(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	row.Status = u.Status
	row.FailedLoginAttempts = u.FailedLoginAttempts
	row.LockedUntil = u.LockedUntil
	row.LastLoginAt = u.LastLoginAt
	row.LastLoginIP = u.LastLoginIP
	row.UpdatedBy = u.UpdatedBy
	m.rows[u.ID] = row
	return nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Username == username {
			return &row, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[u.ID] = *u
	return nil
}

func (m *memUsers) FindExpiredLocks(_ context.Context, now time.Time) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, row := range m.rows {
		if row.Status == model.UserStatusLocked && row.LockedUntil != nil && !row.LockedUntil.After(now) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memUsers) get(id uint) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}
