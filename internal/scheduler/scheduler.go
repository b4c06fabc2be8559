// Package scheduler runs the periodic maintenance jobs: the dormancy sweep
// and expiry of login lockouts.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"secbank-cbs/internal/config"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 10 * time.Minute

// DormancySweeper is satisfied by service.AccountService.
type DormancySweeper interface {
	SweepDormant(ctx context.Context, inactiveDays int) (int, error)
}

// LockoutReleaser is satisfied by service.UserService.
type LockoutReleaser interface {
	UnlockExpired(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron     *cron.Cron
	accounts DormancySweeper
	users    LockoutReleaser
	cfg      config.SchedulerConfig
	logger   *slog.Logger
}

// New registers the jobs. An invalid cron expression is reported here, not at Start.
func New(cfg config.SchedulerConfig, accounts DormancySweeper, users LockoutReleaser, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		accounts: accounts,
		users:    users,
		cfg:      cfg,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(cfg.DormancyCron, func() { s.run("dormancy_sweep", s.SweepDormant) }); err != nil {
		return nil, fmt.Errorf("invalid DORMANCY_CRON %q: %w", cfg.DormancyCron, err)
	}
	if _, err := s.cron.AddFunc(cfg.UnlockCron, func() { s.run("lockout_expiry", s.UnlockExpired) }); err != nil {
		return nil, fmt.Errorf("invalid UNLOCK_CRON %q: %w", cfg.UnlockCron, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "dormancy_cron", s.cfg.DormancyCron, "unlock_cron", s.cfg.UnlockCron)
}

// Stop stops new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with jobs still running")
	}
}

// SweepDormant marks inactive accounts DORMANT.
func (s *Scheduler) SweepDormant(ctx context.Context) (int, error) {
	return s.accounts.SweepDormant(ctx, s.cfg.DormancyDays)
}

// UnlockExpired reactivates users whose lockout has passed.
func (s *Scheduler) UnlockExpired(ctx context.Context) (int, error) {
	return s.users.UnlockExpired(ctx)
}

func (s *Scheduler) run(name string, job func(context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := job(ctx)
	if err != nil {
		s.logger.Error("scheduled job failed", "job", name, "error", err)
		return
	}
	s.logger.Info("scheduled job finished", "job", name, "affected", n, "took", time.Since(start))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
