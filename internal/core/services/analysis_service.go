package services

import (
	"context"
	"fmt"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

// AnalysisService answers read-only questions about habits and streaks.
// Every query takes an explicit scope.
type AnalysisService struct {
	store domain.Store
}

func NewAnalysisService(store domain.Store) *AnalysisService {
	return &AnalysisService{store: store}
}

func (s *AnalysisService) ListHabits(ctx context.Context, scope domain.Scope) ([]*domain.Habit, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.store.Habits().List(ctx, domain.HabitFilter{Scope: scope})
}

func (s *AnalysisService) HabitsByPeriodicity(ctx context.Context, periodicity domain.Periodicity, scope domain.Scope) ([]*domain.Habit, error) {
	if err := periodicity.Validate(); err != nil {
		return nil, err
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.store.Habits().List(ctx, domain.HabitFilter{Scope: scope, Periodicity: periodicity})
}

// LongestStreak returns the longest streak among habits in scope.
func (s *AnalysisService) LongestStreak(ctx context.Context, scope domain.Scope) (*domain.StreakReport, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.longest(ctx, domain.StreakFilter{Scope: scope})
}

// LongestStreakForHabit returns the habit's longest streak. A habit outside
// the scope reports ErrNoStreakData, an unknown one ErrHabitNotFound.
func (s *AnalysisService) LongestStreakForHabit(ctx context.Context, habitID string, scope domain.Scope) (*domain.StreakReport, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.Habits().GetByID(ctx, habitID); err != nil {
		return nil, err
	}
	return s.longest(ctx, domain.StreakFilter{Scope: scope, HabitID: habitID})
}

func (s *AnalysisService) longest(ctx context.Context, filter domain.StreakFilter) (*domain.StreakReport, error) {
	streak, err := s.store.Streaks().Longest(ctx, filter)
	if err != nil {
		return nil, err
	}

	habit, err := s.store.Habits().GetByID(ctx, streak.HabitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load habit of streak %s: %w", streak.ID, err)
	}
	return domain.NewStreakReport(habit, streak), nil
}

// StreakHistory lists all streaks of a habit, oldest first, regardless of scope.
func (s *AnalysisService) StreakHistory(ctx context.Context, habitID string) ([]*domain.Streak, error) {
	if _, err := s.store.Habits().GetByID(ctx, habitID); err != nil {
		return nil, err
	}
	return s.store.Streaks().ListByHabitID(ctx, habitID)
}

// Overview summarises every habit in scope, in creation order.
func (s *AnalysisService) Overview(ctx context.Context, scope domain.Scope) ([]domain.HabitSummary, error) {
	habits, err := s.ListHabits(ctx, scope)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.HabitSummary, 0, len(habits))
	for _, h := range habits {
		summary := domain.HabitSummary{
			Habit: h,
			Unit:  h.Periodicity.Unit(),
		}

		streaks, err := s.store.Streaks().ListByHabitID(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		for _, st := range streaks {
			if st.Active {
				summary.CurrentStreak = st.Length
			}
			if st.Length > summary.BestStreak {
				summary.BestStreak = st.Length
			}
		}

		checkoffs, err := s.store.Checkoffs().ListByHabitID(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		summary.TotalCheckoffs = len(checkoffs)
		if n := len(checkoffs); n > 0 {
			summary.LastCheckedOff = &checkoffs[n-1].CheckedOffAt
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}
