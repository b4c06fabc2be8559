package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"secbank-cbs/internal/model"
	"secbank-cbs/internal/repository"
	"secbank-cbs/pkg/clock"
)

// DashboardStats is the landing page summary.
type DashboardStats struct {
	TotalUsers         int64           `json:"totalUsers"`
	ActiveUsers        int64           `json:"activeUsers"`
	LockedUsers        int64           `json:"lockedUsers"`
	TotalRoles         int64           `json:"totalRoles"`
	TotalPermissions   int64           `json:"totalPermissions"`
	TotalBranches      int64           `json:"totalBranches"`
	ActiveBranches     int64           `json:"activeBranches"`
	TotalCustomers     int64           `json:"totalCustomers"`
	TotalAccounts      int64           `json:"totalAccounts"`
	ActiveAccounts     int64           `json:"activeAccounts"`
	TotalActiveBalance decimal.Decimal `json:"totalActiveBalance"`
	TodayAuditLogs     int64           `json:"todayAuditLogs"`
	TotalAuditLogs     int64           `json:"totalAuditLogs"`
}

type DashboardService interface {
	Stats(ctx context.Context) (*DashboardStats, error)
}

type dashboardService struct {
	users     repository.UserRepository
	roles     repository.RoleRepository
	branches  repository.BranchRepository
	customers repository.CustomerRepository
	accounts  repository.AccountRepository
	logs      repository.AuditRepository
	clock     clock.Clock
}

func NewDashboardService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	branches repository.BranchRepository,
	customers repository.CustomerRepository,
	accounts repository.AccountRepository,
	logs repository.AuditRepository,
	clk clock.Clock,
) DashboardService {
	return &dashboardService{
		users:     users,
		roles:     roles,
		branches:  branches,
		customers: customers,
		accounts:  accounts,
		logs:      logs,
		clock:     clk,
	}
}

// Stats runs the independent counts concurrently; each goroutine owns one field.
func (s *dashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	var st DashboardStats
	g, gctx := errgroup.WithContext(ctx)

	count := func(dst *int64, name string, fn func(context.Context) (int64, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			if err != nil {
				return fmt.Errorf("count %s: %w", name, err)
			}
			*dst = n
			return nil
		})
	}

	count(&st.TotalUsers, "users", s.users.Count)
	count(&st.ActiveUsers, "active users", func(ctx context.Context) (int64, error) {
		return s.users.CountByStatus(ctx, model.UserStatusActive)
	})
	count(&st.LockedUsers, "locked users", func(ctx context.Context) (int64, error) {
		return s.users.CountByStatus(ctx, model.UserStatusLocked)
	})
	count(&st.TotalRoles, "roles", s.roles.Count)
	count(&st.TotalPermissions, "permissions", s.roles.CountPermissions)
	count(&st.TotalBranches, "branches", s.branches.Count)
	count(&st.ActiveBranches, "active branches", func(ctx context.Context) (int64, error) {
		return s.branches.CountByStatus(ctx, model.BranchStatusActive)
	})
	count(&st.TotalCustomers, "customers", s.customers.Count)
	count(&st.TotalAccounts, "accounts", s.accounts.Count)
	count(&st.ActiveAccounts, "active accounts", func(ctx context.Context) (int64, error) {
		return s.accounts.CountByStatus(ctx, model.AccountActive)
	})
	count(&st.TodayAuditLogs, "audit logs today", func(ctx context.Context) (int64, error) {
		return s.logs.CountSince(ctx, clock.Today(s.clock))
	})
	count(&st.TotalAuditLogs, "audit logs", s.logs.Count)
	g.Go(func() error {
		sum, err := s.accounts.SumActiveBalances(gctx, nil)
		if err != nil {
			return fmt.Errorf("sum balances: %w", err)
		}
		st.TotalActiveBalance = sum
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}
