package repository

import (
	"context"
	"sync"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

var _ domain.Store = (*InMemoryStore)(nil)

type memoryState struct {
	habits     map[string]*domain.Habit
	habitOrder []string
	checkoffs  map[string][]*domain.Checkoff
	streaks    []*domain.Streak
}

func newMemoryState() *memoryState {
	return &memoryState{
		habits:    make(map[string]*domain.Habit),
		checkoffs: make(map[string][]*domain.Checkoff),
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		habits:     make(map[string]*domain.Habit, len(s.habits)),
		habitOrder: append([]string(nil), s.habitOrder...),
		checkoffs:  make(map[string][]*domain.Checkoff, len(s.checkoffs)),
		streaks:    make([]*domain.Streak, 0, len(s.streaks)),
	}
	for id, h := range s.habits {
		c.habits[id] = copyHabit(h)
	}
	for id, list := range s.checkoffs {
		c.checkoffs[id] = append([]*domain.Checkoff(nil), list...)
	}
	for _, st := range s.streaks {
		c.streaks = append(c.streaks, copyStreak(st))
	}
	return c
}

// memoryAccess hides whether the state is the shared one (locked) or a
// transaction's private copy (unlocked).
type memoryAccess interface {
	read(fn func(*memoryState) error) error
	write(fn func(*memoryState) error) error
}

// InMemoryStore keeps everything in process memory. Atomic works on a copy of
// the state and swaps it in on success, so a failed unit leaves no trace.
type InMemoryStore struct {
	mu    sync.RWMutex
	state *memoryState
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		state: newMemoryState(),
	}
}

func (s *InMemoryStore) read(fn func(*memoryState) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *InMemoryStore) write(fn func(*memoryState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *InMemoryStore) Habits() domain.HabitRepository {
	return &memoryHabitRepository{acc: s}
}

func (s *InMemoryStore) Checkoffs() domain.CheckoffRepository {
	return &memoryCheckoffRepository{acc: s}
}

func (s *InMemoryStore) Streaks() domain.StreakRepository {
	return &memoryStreakRepository{acc: s}
}

func (s *InMemoryStore) Atomic(ctx context.Context, fn func(tx domain.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}

	s.state = tx.state
	return nil
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) read(fn func(*memoryState) error) error  { return fn(t.state) }
func (t *memoryTx) write(fn func(*memoryState) error) error { return fn(t.state) }

func (t *memoryTx) Habits() domain.HabitRepository {
	return &memoryHabitRepository{acc: t}
}

func (t *memoryTx) Checkoffs() domain.CheckoffRepository {
	return &memoryCheckoffRepository{acc: t}
}

func (t *memoryTx) Streaks() domain.StreakRepository {
	return &memoryStreakRepository{acc: t}
}

func (t *memoryTx) Atomic(ctx context.Context, fn func(tx domain.Store) error) error {
	return fn(t)
}

type memoryHabitRepository struct {
	acc memoryAccess
}

func (r *memoryHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	return r.acc.write(func(s *memoryState) error {
		if _, exists := s.habits[habit.ID]; exists {
			return ErrDuplicateRecord
		}
		s.habits[habit.ID] = copyHabit(habit)
		s.habitOrder = append(s.habitOrder, habit.ID)
		return nil
	})
}

func (r *memoryHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	var found *domain.Habit
	err := r.acc.read(func(s *memoryState) error {
		h, ok := s.habits[id]
		if !ok {
			return domain.ErrHabitNotFound
		}
		found = copyHabit(h)
		return nil
	})
	return found, err
}

// GetForUpdate needs no extra locking: Atomic already holds the store's write lock.
func (r *memoryHabitRepository) GetForUpdate(ctx context.Context, id string) (*domain.Habit, error) {
	return r.GetByID(ctx, id)
}

func (r *memoryHabitRepository) List(ctx context.Context, filter domain.HabitFilter) ([]*domain.Habit, error) {
	habits := []*domain.Habit{}
	err := r.acc.read(func(s *memoryState) error {
		for _, id := range s.habitOrder {
			h := s.habits[id]
			if !filter.Scope.Matches(h) {
				continue
			}
			if filter.Periodicity != "" && h.Periodicity != filter.Periodicity {
				continue
			}
			habits = append(habits, copyHabit(h))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortHabitsByCreation(habits)
	return habits, nil
}

func (r *memoryHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	return r.acc.write(func(s *memoryState) error {
		if _, ok := s.habits[habit.ID]; !ok {
			return domain.ErrHabitNotFound
		}
		s.habits[habit.ID] = copyHabit(habit)
		return nil
	})
}

type memoryCheckoffRepository struct {
	acc memoryAccess
}

func (r *memoryCheckoffRepository) Create(ctx context.Context, checkoff *domain.Checkoff) error {
	if err := checkoff.Validate(); err != nil {
		return err
	}
	return r.acc.write(func(s *memoryState) error {
		if _, ok := s.habits[checkoff.HabitID]; !ok {
			return domain.ErrHabitNotFound
		}
		c := *checkoff
		s.checkoffs[checkoff.HabitID] = append(s.checkoffs[checkoff.HabitID], &c)
		return nil
	})
}

func (r *memoryCheckoffRepository) Latest(ctx context.Context, habitID string) (*domain.Checkoff, error) {
	var latest *domain.Checkoff
	err := r.acc.read(func(s *memoryState) error {
		for _, c := range s.checkoffs[habitID] {
			if latest == nil || !c.CheckedOffAt.Before(latest.CheckedOffAt) {
				latest = c
			}
		}
		if latest == nil {
			return domain.ErrCheckoffNotFound
		}
		cp := *latest
		latest = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

func (r *memoryCheckoffRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.Checkoff, error) {
	list := []*domain.Checkoff{}
	err := r.acc.read(func(s *memoryState) error {
		for _, c := range s.checkoffs[habitID] {
			cp := *c
			list = append(list, &cp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortCheckoffs(list)
	return list, nil
}

type memoryStreakRepository struct {
	acc memoryAccess
}

func (r *memoryStreakRepository) Create(ctx context.Context, streak *domain.Streak) error {
	return r.acc.write(func(s *memoryState) error {
		if _, ok := s.habits[streak.HabitID]; !ok {
			return domain.ErrHabitNotFound
		}
		for _, existing := range s.streaks {
			if existing.ID == streak.ID {
				return ErrDuplicateRecord
			}
		}
		s.streaks = append(s.streaks, copyStreak(streak))
		return nil
	})
}

func (r *memoryStreakRepository) Update(ctx context.Context, streak *domain.Streak) error {
	return r.acc.write(func(s *memoryState) error {
		for i, existing := range s.streaks {
			if existing.ID == streak.ID {
				s.streaks[i] = copyStreak(streak)
				return nil
			}
		}
		return ErrStreakNotFound
	})
}

func (r *memoryStreakRepository) ListActive(ctx context.Context, habitID string) ([]*domain.Streak, error) {
	return r.collect(func(st *domain.Streak) bool {
		return st.HabitID == habitID && st.Active
	})
}

func (r *memoryStreakRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.Streak, error) {
	list, err := r.collect(func(st *domain.Streak) bool {
		return st.HabitID == habitID
	})
	if err != nil {
		return nil, err
	}
	sortStreaksByStart(list)
	return list, nil
}

func (r *memoryStreakRepository) Longest(ctx context.Context, filter domain.StreakFilter) (*domain.Streak, error) {
	var best *domain.Streak
	err := r.acc.read(func(s *memoryState) error {
		for _, st := range s.streaks {
			if filter.HabitID != "" && st.HabitID != filter.HabitID {
				continue
			}
			h, ok := s.habits[st.HabitID]
			if !ok || !filter.Scope.Matches(h) {
				continue
			}
			// Strict comparison keeps the earlier-inserted streak on a full tie.
			if best == nil || st.Longer(best) {
				best = st
			}
		}
		if best == nil {
			return domain.ErrNoStreakData
		}
		best = copyStreak(best)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return best, nil
}

func (r *memoryStreakRepository) collect(match func(*domain.Streak) bool) ([]*domain.Streak, error) {
	list := []*domain.Streak{}
	err := r.acc.read(func(s *memoryState) error {
		for _, st := range s.streaks {
			if match(st) {
				list = append(list, copyStreak(st))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}
