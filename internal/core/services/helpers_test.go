package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/services"
)

func ptr[T any](v T) *T {
	return &v
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) Enqueue(habitID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, habitID)
}

type app struct {
	store     domain.Store
	clock     *fakeClock
	ledger    *services.StreakLedger
	habits    *services.HabitService
	checkoffs *services.CheckoffService
	analysis  *services.AnalysisService
	audits    *recordingQueue
}

func newApp(store domain.Store) *app {
	clock := &fakeClock{now: date(2024, time.January, 10)}
	ledger := services.NewStreakLedger(store, nil)
	audits := &recordingQueue{}
	return &app{
		store:     store,
		clock:     clock,
		ledger:    ledger,
		habits:    services.NewHabitService(store, ledger, clock.Now, nil),
		checkoffs: services.NewCheckoffService(store, ledger, audits, clock.Now, nil),
		analysis:  services.NewAnalysisService(store),
		audits:    audits,
	}
}

func newMemoryApp() *app {
	return newApp(repository.NewInMemoryStore())
}

// createOn creates a habit with the clock set to day.
func (a *app) createOn(t *testing.T, day time.Time, task, periodicity string) *domain.Habit {
	t.Helper()
	a.clock.Set(day)
	h, err := a.habits.Create(context.Background(), services.CreateHabitInput{Task: task, Periodicity: periodicity})
	require.NoError(t, err)
	return h
}

func (a *app) checkoffOn(t *testing.T, day time.Time, habitID string) *domain.CheckoffOutcome {
	t.Helper()
	a.clock.Set(day)
	out, err := a.checkoffs.Checkoff(context.Background(), habitID)
	require.NoError(t, err)
	return out
}

// checkoffDays checks the habit off on n consecutive days starting at start.
func (a *app) checkoffDays(t *testing.T, habitID string, start time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		a.checkoffOn(t, start.AddDate(0, 0, i), habitID)
	}
}

var errInjected = errors.New("injected storage failure")

// faultyStore fails checkoff appends, to prove the ledger's unit of work
// rolls back streak changes made earlier in the same unit.
type faultyStore struct {
	domain.Store
}

func (s faultyStore) Checkoffs() domain.CheckoffRepository {
	return faultyCheckoffs{s.Store.Checkoffs()}
}

func (s faultyStore) Atomic(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.Store.Atomic(ctx, func(tx domain.Store) error {
		return fn(faultyStore{tx})
	})
}

type faultyCheckoffs struct {
	domain.CheckoffRepository
}

func (faultyCheckoffs) Create(context.Context, *domain.Checkoff) error {
	return errInjected
}
