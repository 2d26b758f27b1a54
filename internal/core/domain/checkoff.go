package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCheckoffNotFound = errors.New("checkoff not found")
	ErrInvalidCheckoff  = errors.New("invalid checkoff data")
)

// Checkoff records one completion of a habit. Checkoffs are never modified.
type Checkoff struct {
	ID           string    `json:"id"`
	HabitID      string    `json:"habit_id"`
	CheckedOffAt time.Time `json:"checked_off_at"`
}

func NewCheckoff(habitID string, at time.Time) *Checkoff {
	return &Checkoff{
		ID:           uuid.NewString(),
		HabitID:      habitID,
		CheckedOffAt: at.UTC(),
	}
}

func (c *Checkoff) Validate() error {
	if strings.TrimSpace(c.HabitID) == "" {
		return errors.Join(ErrInvalidCheckoff, errors.New("habit_id is required"))
	}
	if c.CheckedOffAt.IsZero() {
		return errors.Join(ErrInvalidCheckoff, errors.New("checked_off_at is required"))
	}
	return nil
}

// CheckoffOutcome is what a single checkoff did to the habit's streaks.
type CheckoffOutcome struct {
	Continuity Continuity `json:"continuity"`
	Checkoff   *Checkoff  `json:"checkoff"`
	Streak     *Streak    `json:"streak"`
	Closed     *Streak    `json:"closed_streak,omitempty"`
}
