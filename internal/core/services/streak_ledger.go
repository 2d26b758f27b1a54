package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

// Clock returns the current instant. Services never call time.Now directly.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// StreakLedger owns every write to a habit's streaks. Each operation runs
// under the habit's lock and inside one store unit of work.
type StreakLedger struct {
	store  domain.Store
	locks  *keyedMutex
	logger *zap.Logger
}

func NewStreakLedger(store domain.Store, logger *zap.Logger) *StreakLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreakLedger{
		store:  store,
		locks:  newKeyedMutex(),
		logger: logger.Named("ledger"),
	}
}

// withHabit runs fn as one unit of work while holding the habit's lock, so
// two writers in this process never interleave on the same habit.
func (l *StreakLedger) withHabit(ctx context.Context, habitID string, fn func(tx domain.Store) error) error {
	unlock := l.locks.Lock(habitID)
	defer unlock()
	return l.store.Atomic(ctx, fn)
}

// activeStreak returns the single active streak, nil when there is none.
func activeStreak(ctx context.Context, tx domain.Store, habitID string) (*domain.Streak, error) {
	active, err := tx.Streaks().ListActive(ctx, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active streak: %w", err)
	}
	switch len(active) {
	case 0:
		return nil, nil
	case 1:
		return active[0], nil
	default:
		return nil, fmt.Errorf("%w: habit %s has %d active streaks", domain.ErrInvariantViolation, habitID, len(active))
	}
}

// RecordCheckoff appends a checkoff at `at` and moves the habit's streak
// forward, or closes it and starts a new one when continuity broke.
func (l *StreakLedger) RecordCheckoff(ctx context.Context, habitID string, at time.Time) (*domain.CheckoffOutcome, error) {
	var outcome *domain.CheckoffOutcome
	err := l.withHabit(ctx, habitID, func(tx domain.Store) error {
		var err error
		outcome, err = recordCheckoff(ctx, tx, habitID, at)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("checkoff recorded",
		zap.String("habit_id", habitID),
		zap.Stringer("continuity", outcome.Continuity),
		zap.Int("length", outcome.Streak.Length),
	)
	return outcome, nil
}

func recordCheckoff(ctx context.Context, tx domain.Store, habitID string, at time.Time) (*domain.CheckoffOutcome, error) {
	at = at.UTC()

	habit, err := tx.Habits().GetForUpdate(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if !habit.Active {
		return nil, domain.ErrHabitNotActive
	}

	current, err := activeStreak(ctx, tx, habitID)
	if err != nil {
		return nil, err
	}
	fresh := current == nil
	if fresh {
		// Habits created outside the ledger may lack their initial streak.
		current = domain.NewStreak(habitID, at, 0)
		if err := tx.Streaks().Create(ctx, current); err != nil {
			return nil, fmt.Errorf("failed to open streak: %w", err)
		}
	}

	var last *time.Time
	latest, err := tx.Checkoffs().Latest(ctx, habitID)
	switch {
	case err == nil:
		last = &latest.CheckedOffAt
	case errors.Is(err, domain.ErrCheckoffNotFound):
	default:
		return nil, fmt.Errorf("failed to load last checkoff: %w", err)
	}

	continuity, err := domain.EvaluateContinuity(habit.Periodicity, last, at)
	if err != nil {
		return nil, err
	}

	outcome := &domain.CheckoffOutcome{Continuity: continuity}

	switch {
	case continuity != domain.ContinuityBroken, fresh:
		if err := current.Increment(); err != nil {
			return nil, err
		}
		if err := tx.Streaks().Update(ctx, current); err != nil {
			return nil, fmt.Errorf("failed to extend streak: %w", err)
		}
	default:
		// The broken streak ends at its last checkoff, not at the moment the break is noticed.
		if err := current.Close(*last); err != nil {
			return nil, err
		}
		if err := tx.Streaks().Update(ctx, current); err != nil {
			return nil, fmt.Errorf("failed to close streak: %w", err)
		}
		outcome.Closed = current

		current = domain.NewStreak(habitID, at, 1)
		if err := tx.Streaks().Create(ctx, current); err != nil {
			return nil, fmt.Errorf("failed to open streak: %w", err)
		}
	}

	checkoff := domain.NewCheckoff(habitID, at)
	if err := tx.Checkoffs().Create(ctx, checkoff); err != nil {
		return nil, fmt.Errorf("failed to append checkoff: %w", err)
	}

	outcome.Checkoff = checkoff
	outcome.Streak = current
	return outcome, nil
}

// OpenInitialStreak creates the length-0 streak a new habit starts with.
func (l *StreakLedger) OpenInitialStreak(ctx context.Context, habitID string, createdOn time.Time) (*domain.Streak, error) {
	var opened *domain.Streak
	err := l.withHabit(ctx, habitID, func(tx domain.Store) error {
		var err error
		opened, err = openInitialStreak(ctx, tx, habitID, createdOn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return opened, nil
}

func openInitialStreak(ctx context.Context, tx domain.Store, habitID string, createdOn time.Time) (*domain.Streak, error) {
	if _, err := tx.Habits().GetForUpdate(ctx, habitID); err != nil {
		return nil, err
	}

	current, err := activeStreak(ctx, tx, habitID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, fmt.Errorf("%w: habit %s already has an active streak", domain.ErrInvariantViolation, habitID)
	}

	s := domain.NewStreak(habitID, createdOn, 0)
	if err := tx.Streaks().Create(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to open streak: %w", err)
	}
	return s, nil
}

// CloseStreak ends the active streak without opening a replacement.
func (l *StreakLedger) CloseStreak(ctx context.Context, habitID string, endedOn time.Time) (*domain.Streak, error) {
	var closed *domain.Streak
	err := l.withHabit(ctx, habitID, func(tx domain.Store) error {
		var err error
		closed, err = closeActiveStreak(ctx, tx, habitID, endedOn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

func closeActiveStreak(ctx context.Context, tx domain.Store, habitID string, endedOn time.Time) (*domain.Streak, error) {
	current, err := activeStreak(ctx, tx, habitID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNoActiveStreak
	}

	if err := current.Close(endedOn); err != nil {
		return nil, err
	}
	if err := tx.Streaks().Update(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to close streak: %w", err)
	}
	return current, nil
}
