package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

const accrualLockName = "accrual-close-all"

// ErrJobLocked is returned by RunOnce when another replica holds the job lock.
var ErrJobLocked = errors.New("accrual job is running elsewhere")

// AccrualCloser closes accrual periods for every disbursed loan.
type AccrualCloser interface {
	CloseAllPeriods(ctx context.Context, cutoff time.Time) (*usecase.BatchResult, error)
}

// Locker guards a job across replicas.
type Locker interface {
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, owner string) error
}

// Config for AccrualScheduler.
type Config struct {
	Closer AccrualCloser
	Locker Locker // optional; nil runs without cross-replica exclusion
	Logger zerolog.Logger
	// Spec is a standard five-field cron expression.
	Spec     string
	Owner    string
	LockTTL  time.Duration
	Location *time.Location
	Now      func() time.Time
}

// AccrualScheduler runs the daily batch accrual close. Each run closes
// periods through the previous calendar day.
type AccrualScheduler struct {
	closer   AccrualCloser
	locker   Locker
	logger   zerolog.Logger
	schedule cron.Schedule
	spec     string
	owner    string
	lockTTL  time.Duration
	location *time.Location
	now      func() time.Time
}

// New validates the cron spec and builds the scheduler.
func New(cfg Config) (*AccrualScheduler, error) {
	schedule, err := cron.ParseStandard(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("invalid accrual cron %q: %w", cfg.Spec, err)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	if cfg.Owner == "" {
		cfg.Owner = "loanledger"
	}

	return &AccrualScheduler{
		closer:   cfg.Closer,
		locker:   cfg.Locker,
		logger:   cfg.Logger.With().Str("component", "accrual_scheduler").Logger(),
		schedule: schedule,
		spec:     cfg.Spec,
		owner:    cfg.Owner,
		lockTTL:  cfg.LockTTL,
		location: cfg.Location,
		now:      cfg.Now,
	}, nil
}

// Next reports when the job fires after t.
func (s *AccrualScheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// Start runs the cron loop until ctx is cancelled and waits for a running
// batch to finish before returning.
func (s *AccrualScheduler) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.location))
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrJobLocked) {
			s.logger.Error().Err(err).Msg("accrual batch failed")
		}
	}))

	s.logger.Info().Str("spec", s.spec).Time("next", s.Next(s.now())).Msg("accrual scheduler started")
	c.Start()

	<-ctx.Done()
	s.logger.Info().Msg("accrual scheduler shutting down")
	<-c.Stop().Done()

	return ctx.Err()
}

// RunOnce closes periods through yesterday, relative to the scheduler's
// clock and location.
func (s *AccrualScheduler) RunOnce(ctx context.Context) (*usecase.BatchResult, error) {
	today := s.now().In(s.location)
	cutoff := domain.DateOnly(today).AddDate(0, 0, -1)

	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, accrualLockName, s.owner, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire job lock: %w", err)
		}
		if !acquired {
			s.logger.Info().Str("cutoff", cutoff.Format(time.DateOnly)).Msg("accrual batch skipped, lock held elsewhere")
			return nil, ErrJobLocked
		}
		defer func() {
			// Release on a fresh context so shutdown does not strand the lock.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := s.locker.Release(releaseCtx, accrualLockName, s.owner); err != nil {
				s.logger.Warn().Err(err).Msg("failed to release accrual job lock")
			}
		}()
	}

	return s.closer.CloseAllPeriods(ctx, cutoff)
}
