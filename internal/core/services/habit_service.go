package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

type HabitService struct {
	store  domain.Store
	ledger *StreakLedger
	clock  Clock
	logger *zap.Logger
}

func NewHabitService(store domain.Store, ledger *StreakLedger, clock Clock, logger *zap.Logger) *HabitService {
	if clock == nil {
		clock = systemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HabitService{
		store:  store,
		ledger: ledger,
		clock:  clock,
		logger: logger.Named("habits"),
	}
}

type CreateHabitInput struct {
	Task        string
	Periodicity string
	// Origin defaults to user.
	Origin string
}

type UpdateHabitInput struct {
	ID          string
	Task        *string
	Periodicity *string
}

func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error) {
	periodicity, err := domain.ParsePeriodicity(input.Periodicity)
	if err != nil {
		return nil, err
	}

	origin := domain.OriginUser
	if strings.TrimSpace(input.Origin) != "" {
		if origin, err = domain.ParseOrigin(input.Origin); err != nil {
			return nil, err
		}
	}

	habit, err := domain.NewHabit(input.Task, periodicity, origin, s.clock())
	if err != nil {
		return nil, err
	}

	err = s.ledger.withHabit(ctx, habit.ID, func(tx domain.Store) error {
		if err := tx.Habits().Create(ctx, habit); err != nil {
			return fmt.Errorf("failed to create habit: %w", err)
		}
		_, err := openInitialStreak(ctx, tx, habit.ID, habit.CreatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("habit created",
		zap.String("habit_id", habit.ID),
		zap.String("periodicity", string(habit.Periodicity)),
		zap.String("origin", string(habit.Origin)),
	)
	return habit, nil
}

func (s *HabitService) Get(ctx context.Context, id string) (*domain.Habit, error) {
	return s.store.Habits().GetByID(ctx, id)
}

// Update renames and/or reperiodizes an active habit. Existing streaks keep
// their lengths; the new periodicity applies from the next checkoff.
func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	var periodicity *domain.Periodicity
	if input.Periodicity != nil {
		p, err := domain.ParsePeriodicity(*input.Periodicity)
		if err != nil {
			return nil, err
		}
		periodicity = &p
	}

	var habit *domain.Habit
	err := s.ledger.withHabit(ctx, input.ID, func(tx domain.Store) error {
		var err error
		habit, err = tx.Habits().GetForUpdate(ctx, input.ID)
		if err != nil {
			return err
		}
		if err := habit.Update(input.Task, periodicity, s.clock()); err != nil {
			return err
		}
		return tx.Habits().Update(ctx, habit)
	})
	if err != nil {
		return nil, err
	}

	return habit, nil
}

// Deactivate soft-deletes the habit and closes its active streak in the same
// unit of work. Checkoffs and streaks stay queryable.
func (s *HabitService) Deactivate(ctx context.Context, id string) (*domain.Habit, error) {
	var habit *domain.Habit
	err := s.ledger.withHabit(ctx, id, func(tx domain.Store) error {
		var err error
		habit, err = tx.Habits().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		now := s.clock()
		if err := habit.Deactivate(now); err != nil {
			return err
		}
		if err := tx.Habits().Update(ctx, habit); err != nil {
			return err
		}

		if _, err := closeActiveStreak(ctx, tx, id, now); err != nil && !errors.Is(err, domain.ErrNoActiveStreak) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("habit deactivated", zap.String("habit_id", id))
	return habit, nil
}
