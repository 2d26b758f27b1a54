package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

var (
	userActive   = domain.Scope{Origin: domain.OriginUser, Active: true}
	userInactive = domain.Scope{Origin: domain.OriginUser, Active: false}
	demoActive   = domain.Scope{Origin: domain.OriginPredefined, Active: true}
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 8, 0, 0, 0, time.UTC)
}

func assertSameInstant(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "expected %s, got %s", want, got)
}

func mustHabit(t *testing.T, store domain.Store, task string, p domain.Periodicity, origin domain.Origin, created time.Time) *domain.Habit {
	t.Helper()
	h, err := domain.NewHabit(task, p, origin, created)
	require.NoError(t, err)
	require.NoError(t, store.Habits().Create(context.Background(), h))
	return h
}

// runStoreContract exercises behaviour every domain.Store implementation shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) domain.Store) {
	ctx := context.Background()

	t.Run("Success: Create and Get habit", func(t *testing.T) {
		store := newStore(t)
		h := mustHabit(t, store, "Meditate", domain.PeriodicityDaily, domain.OriginUser, day(1))

		got, err := store.Habits().GetByID(ctx, h.ID)
		require.NoError(t, err)
		assert.Equal(t, h.ID, got.ID)
		assert.Equal(t, "Meditate", got.Task)
		assert.Equal(t, domain.PeriodicityDaily, got.Periodicity)
		assert.Equal(t, domain.OriginUser, got.Origin)
		assert.True(t, got.Active)
		assertSameInstant(t, day(1), got.CreatedAt)
		assert.Nil(t, got.DeletedAt)

		locked, err := store.Habits().GetForUpdate(ctx, h.ID)
		require.NoError(t, err)
		assert.Equal(t, h.ID, locked.ID)
	})

	t.Run("Fail: Get unknown habit", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Habits().GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})

	t.Run("Success: List filters by scope and periodicity in creation order", func(t *testing.T) {
		store := newStore(t)
		second := mustHabit(t, store, "Read", domain.PeriodicityWeekly, domain.OriginUser, day(2))
		first := mustHabit(t, store, "Run", domain.PeriodicityDaily, domain.OriginUser, day(1))
		mustHabit(t, store, "Demo", domain.PeriodicityDaily, domain.OriginPredefined, day(1))
		gone := mustHabit(t, store, "Gone", domain.PeriodicityDaily, domain.OriginUser, day(3))

		require.NoError(t, gone.Deactivate(day(4)))
		require.NoError(t, store.Habits().Update(ctx, gone))

		all, err := store.Habits().List(ctx, domain.HabitFilter{Scope: userActive})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, first.ID, all[0].ID)
		assert.Equal(t, second.ID, all[1].ID)

		daily, err := store.Habits().List(ctx, domain.HabitFilter{Scope: userActive, Periodicity: domain.PeriodicityDaily})
		require.NoError(t, err)
		require.Len(t, daily, 1)
		assert.Equal(t, first.ID, daily[0].ID)

		inactive, err := store.Habits().List(ctx, domain.HabitFilter{Scope: userInactive})
		require.NoError(t, err)
		require.Len(t, inactive, 1)
		assert.Equal(t, gone.ID, inactive[0].ID)
		require.NotNil(t, inactive[0].DeletedAt)
		assertSameInstant(t, day(4), *inactive[0].DeletedAt)

		none, err := store.Habits().List(ctx, domain.HabitFilter{Scope: demoActive, Periodicity: domain.PeriodicityMonthly})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Fail: Update unknown habit", func(t *testing.T) {
		store := newStore(t)
		h, err := domain.NewHabit("Ghost", domain.PeriodicityDaily, domain.OriginUser, day(1))
		require.NoError(t, err)
		assert.ErrorIs(t, store.Habits().Update(ctx, h), domain.ErrHabitNotFound)
	})

	t.Run("Success: Checkoff log order and latest", func(t *testing.T) {
		store := newStore(t)
		h := mustHabit(t, store, "Stretch", domain.PeriodicityDaily, domain.OriginUser, day(1))

		_, err := store.Checkoffs().Latest(ctx, h.ID)
		assert.ErrorIs(t, err, domain.ErrCheckoffNotFound)

		late := domain.NewCheckoff(h.ID, day(3))
		early := domain.NewCheckoff(h.ID, day(2))
		tieA := domain.NewCheckoff(h.ID, day(3))
		for _, c := range []*domain.Checkoff{late, early, tieA} {
			require.NoError(t, store.Checkoffs().Create(ctx, c))
		}

		list, err := store.Checkoffs().ListByHabitID(ctx, h.ID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, early.ID, list[0].ID)
		assert.Equal(t, late.ID, list[1].ID)
		assert.Equal(t, tieA.ID, list[2].ID)

		latest, err := store.Checkoffs().Latest(ctx, h.ID)
		require.NoError(t, err)
		assert.Equal(t, tieA.ID, latest.ID)
		assertSameInstant(t, day(3), latest.CheckedOffAt)
	})

	t.Run("Fail: Checkoff for unknown habit", func(t *testing.T) {
		store := newStore(t)
		err := store.Checkoffs().Create(ctx, domain.NewCheckoff("missing", day(1)))
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})

	t.Run("Fail: Checkoff without timestamp", func(t *testing.T) {
		store := newStore(t)
		h := mustHabit(t, store, "Stretch", domain.PeriodicityDaily, domain.OriginUser, day(1))
		err := store.Checkoffs().Create(ctx, &domain.Checkoff{ID: "c1", HabitID: h.ID})
		assert.ErrorIs(t, err, domain.ErrInvalidCheckoff)
	})

	t.Run("Success: Streak lifecycle", func(t *testing.T) {
		store := newStore(t)
		h := mustHabit(t, store, "Journal", domain.PeriodicityDaily, domain.OriginUser, day(1))

		s := domain.NewStreak(h.ID, day(1), 0)
		require.NoError(t, store.Streaks().Create(ctx, s))

		active, err := store.Streaks().ListActive(ctx, h.ID)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, 0, active[0].Length)
		assert.Nil(t, active[0].EndedAt)

		require.NoError(t, s.Increment())
		require.NoError(t, s.Close(day(2)))
		require.NoError(t, store.Streaks().Update(ctx, s))

		active, err = store.Streaks().ListActive(ctx, h.ID)
		require.NoError(t, err)
		assert.Empty(t, active)

		next := domain.NewStreak(h.ID, day(5), 1)
		require.NoError(t, store.Streaks().Create(ctx, next))

		all, err := store.Streaks().ListByHabitID(ctx, h.ID)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, s.ID, all[0].ID)
		assert.False(t, all[0].Active)
		assert.Equal(t, 1, all[0].Length)
		require.NotNil(t, all[0].EndedAt)
		assertSameInstant(t, day(2), *all[0].EndedAt)
		assert.Equal(t, next.ID, all[1].ID)
		assert.True(t, all[1].Active)
	})

	t.Run("Fail: Update unknown streak", func(t *testing.T) {
		store := newStore(t)
		h := mustHabit(t, store, "Journal", domain.PeriodicityDaily, domain.OriginUser, day(1))
		err := store.Streaks().Update(ctx, domain.NewStreak(h.ID, day(1), 0))
		assert.ErrorIs(t, err, ErrStreakNotFound)
	})

	t.Run("Fail: Streak for unknown habit", func(t *testing.T) {
		store := newStore(t)
		err := store.Streaks().Create(ctx, domain.NewStreak("missing", day(1), 0))
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})

	t.Run("Success: Longest honours scope and tie-break", func(t *testing.T) {
		store := newStore(t)
		a := mustHabit(t, store, "A", domain.PeriodicityDaily, domain.OriginUser, day(1))
		b := mustHabit(t, store, "B", domain.PeriodicityDaily, domain.OriginUser, day(1))
		demo := mustHabit(t, store, "Demo", domain.PeriodicityDaily, domain.OriginPredefined, day(1))

		_, err := store.Streaks().Longest(ctx, domain.StreakFilter{Scope: userActive})
		assert.ErrorIs(t, err, domain.ErrNoStreakData)

		later := closedStreak(a.ID, day(10), 5)
		earlier := closedStreak(b.ID, day(3), 5)
		sameStartSecond := domain.NewStreak(a.ID, day(3), 5)
		shorter := closedStreak(b.ID, day(1), 2)
		demoLong := domain.NewStreak(demo.ID, day(1), 40)
		for _, s := range []*domain.Streak{later, earlier, sameStartSecond, shorter, demoLong} {
			require.NoError(t, store.Streaks().Create(ctx, s))
		}

		best, err := store.Streaks().Longest(ctx, domain.StreakFilter{Scope: userActive})
		require.NoError(t, err)
		assert.Equal(t, earlier.ID, best.ID, "equal length and start: first inserted wins")

		forA, err := store.Streaks().Longest(ctx, domain.StreakFilter{Scope: userActive, HabitID: a.ID})
		require.NoError(t, err)
		assert.Equal(t, sameStartSecond.ID, forA.ID)

		forDemo, err := store.Streaks().Longest(ctx, domain.StreakFilter{Scope: demoActive})
		require.NoError(t, err)
		assert.Equal(t, demoLong.ID, forDemo.ID)

		_, err = store.Streaks().Longest(ctx, domain.StreakFilter{Scope: userInactive})
		assert.ErrorIs(t, err, domain.ErrNoStreakData)

		_, err = store.Streaks().Longest(ctx, domain.StreakFilter{Scope: userActive, HabitID: demo.ID})
		assert.ErrorIs(t, err, domain.ErrNoStreakData)
	})

	t.Run("Success: Atomic commits every write", func(t *testing.T) {
		store := newStore(t)
		var id string
		err := store.Atomic(ctx, func(tx domain.Store) error {
			h := mustHabit(t, tx, "Swim", domain.PeriodicityWeekly, domain.OriginUser, day(1))
			id = h.ID
			return tx.Streaks().Create(ctx, domain.NewStreak(h.ID, day(1), 0))
		})
		require.NoError(t, err)

		_, err = store.Habits().GetByID(ctx, id)
		require.NoError(t, err)
		active, err := store.Streaks().ListActive(ctx, id)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("Fail: Atomic rolls back on error", func(t *testing.T) {
		store := newStore(t)
		boom := errors.New("boom")
		var id string
		err := store.Atomic(ctx, func(tx domain.Store) error {
			h := mustHabit(t, tx, "Swim", domain.PeriodicityWeekly, domain.OriginUser, day(1))
			id = h.ID
			if err := tx.Streaks().Create(ctx, domain.NewStreak(h.ID, day(1), 0)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = store.Habits().GetByID(ctx, id)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})

	t.Run("Success: Nested Atomic joins the outer unit", func(t *testing.T) {
		store := newStore(t)
		boom := errors.New("boom")
		var id string
		err := store.Atomic(ctx, func(tx domain.Store) error {
			if err := tx.Atomic(ctx, func(inner domain.Store) error {
				id = mustHabit(t, inner, "Nested", domain.PeriodicityDaily, domain.OriginUser, day(1)).ID
				return nil
			}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = store.Habits().GetByID(ctx, id)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})
}

func closedStreak(habitID string, start time.Time, length int) *domain.Streak {
	s := domain.NewStreak(habitID, start, length)
	_ = s.Close(start.AddDate(0, 0, length))
	return s
}

func TestInMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) domain.Store {
		return NewInMemoryStore()
	})
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	h := mustHabit(t, store, "Copy", domain.PeriodicityDaily, domain.OriginUser, day(1))

	h.Task = "mutated after create"
	got, err := store.Habits().GetByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Copy", got.Task)

	got.Task = "mutated after read"
	again, err := store.Habits().GetByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Copy", again.Task)
}

func TestInMemoryStore_AtomicHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewInMemoryStore().Atomic(ctx, func(tx domain.Store) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
