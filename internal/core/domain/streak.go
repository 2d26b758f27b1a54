package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoStreakData       = errors.New("no streak data")
	ErrNoActiveStreak     = errors.New("habit has no active streak")
	ErrStreakClosed       = errors.New("streak is already closed")
	ErrInvariantViolation = errors.New("invariant violation")
)

// Streak is a run of checkoffs that satisfied the habit's continuity rule.
// EndedAt is nil while the streak is ongoing.
type Streak struct {
	ID        string     `json:"id"`
	HabitID   string     `json:"habit_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Length    int        `json:"length"`
	Active    bool       `json:"active"`
}

func NewStreak(habitID string, startedAt time.Time, length int) *Streak {
	if length < 0 {
		length = 0
	}
	return &Streak{
		ID:        uuid.NewString(),
		HabitID:   habitID,
		StartedAt: startedAt.UTC(),
		Length:    length,
		Active:    true,
	}
}

func (s *Streak) Increment() error {
	if !s.Active {
		return ErrStreakClosed
	}
	s.Length++
	return nil
}

// Close ends the streak at endedAt, which is when the streak actually died,
// not necessarily when the break was noticed.
func (s *Streak) Close(endedAt time.Time) error {
	if !s.Active {
		return ErrStreakClosed
	}
	endedAt = endedAt.UTC()
	s.Active = false
	s.EndedAt = &endedAt
	return nil
}

// Longer orders streaks for "longest" queries: greater length first,
// then earlier start.
func (s *Streak) Longer(other *Streak) bool {
	if s.Length != other.Length {
		return s.Length > other.Length
	}
	return s.StartedAt.Before(other.StartedAt)
}
