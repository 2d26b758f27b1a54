package domain

import (
	"context"
	"errors"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
)

// HabitFilter narrows habit listings. An empty Periodicity matches every cadence.
type HabitFilter struct {
	Scope       Scope
	Periodicity Periodicity
}

// StreakFilter narrows streak queries. An empty HabitID matches every habit in scope.
type StreakFilter struct {
	Scope   Scope
	HabitID string
}

type HabitRepository interface {
	// Create persists a new habit definition in the storage.
	Create(ctx context.Context, habit *Habit) error

	// GetByID retrieves a habit by its unique identifier, active or not.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// GetForUpdate is GetByID plus a row lock held until the surrounding unit of work ends.
	GetForUpdate(ctx context.Context, id string) (*Habit, error)

	// List returns matching habits ordered by creation.
	List(ctx context.Context, filter HabitFilter) ([]*Habit, error)

	// Update modifies the state of an existing habit.
	Update(ctx context.Context, habit *Habit) error
}

type CheckoffRepository interface {
	// Create appends a checkoff to the habit's log.
	Create(ctx context.Context, checkoff *Checkoff) error

	// Latest returns the most recent checkoff, or ErrCheckoffNotFound.
	Latest(ctx context.Context, habitID string) (*Checkoff, error)

	// ListByHabitID returns the whole log in chronological order.
	ListByHabitID(ctx context.Context, habitID string) ([]*Checkoff, error)
}

type StreakRepository interface {
	Create(ctx context.Context, streak *Streak) error
	Update(ctx context.Context, streak *Streak) error

	// ListActive returns every active streak of the habit. Anything but zero or
	// one result means the ledger invariant is broken.
	ListActive(ctx context.Context, habitID string) ([]*Streak, error)

	// ListByHabitID returns all streaks of the habit ordered by start.
	ListByHabitID(ctx context.Context, habitID string) ([]*Streak, error)

	// Longest returns the longest matching streak (ties: earliest start, then
	// insertion order), or ErrNoStreakData.
	Longest(ctx context.Context, filter StreakFilter) (*Streak, error)
}

// Store groups the repositories behind one persistence handle.
type Store interface {
	Habits() HabitRepository
	Checkoffs() CheckoffRepository
	Streaks() StreakRepository

	// Atomic runs fn as one unit of work. Every repository call made through
	// the Store handed to fn commits or rolls back together; fn must not use
	// the outer Store.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}
