package repository

import (
	"errors"
	"sort"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

var (
	ErrDuplicateRecord = errors.New("record already exists")
	ErrStreakNotFound  = errors.New("streak not found")
)

func copyHabit(h *domain.Habit) *domain.Habit {
	c := *h
	if h.DeletedAt != nil {
		t := *h.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func copyStreak(s *domain.Streak) *domain.Streak {
	c := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// The sorts are stable so insertion order decides between equal timestamps.

func sortHabitsByCreation(habits []*domain.Habit) {
	sort.SliceStable(habits, func(i, j int) bool {
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})
}

func sortCheckoffs(checkoffs []*domain.Checkoff) {
	sort.SliceStable(checkoffs, func(i, j int) bool {
		return checkoffs[i].CheckedOffAt.Before(checkoffs[j].CheckedOffAt)
	})
}

func sortStreaksByStart(streaks []*domain.Streak) {
	sort.SliceStable(streaks, func(i, j int) bool {
		return streaks[i].StartedAt.Before(streaks[j].StartedAt)
	})
}
