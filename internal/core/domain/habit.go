package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrHabitTaskEmpty   = errors.New("habit task cannot be empty")
	ErrHabitTaskTooLong = errors.New("habit task is too long (max 100 chars)")
	ErrHabitNotActive   = errors.New("habit is not active")
)

const (
	MaxTaskLen = 100
)

type Habit struct {
	ID          string      `json:"id"`
	Task        string      `json:"task"`
	Periodicity Periodicity `json:"periodicity"`
	Origin      Origin      `json:"origin"`
	Active      bool        `json:"active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
}

func validateTask(task string) (string, error) {
	trimmed := strings.TrimSpace(task)
	if trimmed == "" {
		return "", ErrHabitTaskEmpty
	}
	if utf8.RuneCountInString(trimmed) > MaxTaskLen {
		return "", ErrHabitTaskTooLong
	}
	return trimmed, nil
}

func NewHabit(task string, periodicity Periodicity, origin Origin, now time.Time) (*Habit, error) {
	cleanTask, err := validateTask(task)
	if err != nil {
		return nil, err
	}
	if err := periodicity.Validate(); err != nil {
		return nil, err
	}
	if err := origin.Validate(); err != nil {
		return nil, err
	}

	now = now.UTC()

	return &Habit{
		ID:          uuid.New().String(),
		Task:        cleanTask,
		Periodicity: periodicity,
		Origin:      origin,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Update renames and/or reperiodizes the habit. Nil arguments keep the current value.
func (h *Habit) Update(task *string, periodicity *Periodicity, now time.Time) error {
	if !h.Active {
		return ErrHabitNotActive
	}

	newTask := h.Task
	if task != nil {
		cleanTask, err := validateTask(*task)
		if err != nil {
			return err
		}
		newTask = cleanTask
	}

	newPeriodicity := h.Periodicity
	if periodicity != nil {
		if err := periodicity.Validate(); err != nil {
			return err
		}
		newPeriodicity = *periodicity
	}

	h.Task = newTask
	h.Periodicity = newPeriodicity
	h.UpdatedAt = now.UTC()

	return nil
}

// Deactivate soft-deletes the habit. History stays queryable.
func (h *Habit) Deactivate(now time.Time) error {
	if !h.Active {
		return ErrHabitNotActive
	}

	now = now.UTC()
	h.Active = false
	h.DeletedAt = &now
	h.UpdatedAt = now
	return nil
}
