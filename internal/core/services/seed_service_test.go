package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/services"
)

const fixtureYAML = `
habits:
  - task: Drink water
    periodicity: daily
    created_at: 2024-01-01T08:00:00Z
    checkoffs:
      - 2024-01-02T08:00:00Z
      - 2024-01-01T08:00:00Z
      - 2024-01-05T08:00:00Z
  - task: Call family
    periodicity: weekly
    created_at: 2024-01-01T08:00:00Z
`

func TestParseFixture(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f, err := services.ParseFixture(strings.NewReader(fixtureYAML))
		require.NoError(t, err)
		require.Len(t, f.Habits, 2)
		assert.Equal(t, "Drink water", f.Habits[0].Task)
		assert.Len(t, f.Habits[0].Checkoffs, 3)
		assert.Empty(t, f.Habits[1].Checkoffs)
	})

	tests := []struct {
		name string
		doc  string
	}{
		{"Fail: empty document", ""},
		{"Fail: unknown key", "habits:\n  - task: x\n    color: red\n"},
		{"Fail: missing created_at", "habits:\n  - task: x\n    periodicity: daily\n"},
		{"Fail: checkoff before creation", "habits:\n  - task: x\n    periodicity: daily\n    created_at: 2024-02-01T00:00:00Z\n    checkoffs: [2024-01-01T00:00:00Z]\n"},
		{"Fail: checkoff after deactivation", "habits:\n  - task: x\n    periodicity: daily\n    created_at: 2024-01-01T00:00:00Z\n    deactivated_at: 2024-01-02T00:00:00Z\n    checkoffs: [2024-01-03T00:00:00Z]\n"},
		{"Fail: deactivated before creation", "habits:\n  - task: x\n    periodicity: daily\n    created_at: 2024-02-01T00:00:00Z\n    deactivated_at: 2024-01-01T00:00:00Z\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := services.ParseFixture(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, services.ErrInvalidFixture)
		})
	}
}

func TestSeedService_Seed(t *testing.T) {
	ctx := context.Background()
	predefined := domain.Scope{Origin: domain.OriginPredefined, Active: true}

	t.Run("Success: seeds once and replays checkoffs", func(t *testing.T) {
		store := repository.NewInMemoryStore()
		seeder := services.NewSeedService(store, nil)
		analysis := services.NewAnalysisService(store)

		f, err := services.ParseFixture(strings.NewReader(fixtureYAML))
		require.NoError(t, err)

		result, err := seeder.Seed(ctx, f)
		require.NoError(t, err)
		assert.False(t, result.Skipped)
		assert.Equal(t, 2, result.Habits)
		assert.Equal(t, 3, result.Checkoffs)

		habits, err := analysis.ListHabits(ctx, predefined)
		require.NoError(t, err)
		require.Len(t, habits, 2)

		streaks, err := analysis.StreakHistory(ctx, habits[0].ID)
		require.NoError(t, err)
		require.Len(t, streaks, 2)
		assert.Equal(t, 2, streaks[0].Length)
		assert.False(t, streaks[0].Active)
		assert.Equal(t, 1, streaks[1].Length)
		assert.True(t, streaks[1].Active)

		again, err := seeder.Seed(ctx, f)
		require.NoError(t, err)
		assert.True(t, again.Skipped)

		habits, err = analysis.ListHabits(ctx, predefined)
		require.NoError(t, err)
		assert.Len(t, habits, 2)
	})

	t.Run("Success: deactivated habit lands in the inactive scope", func(t *testing.T) {
		store := repository.NewInMemoryStore()
		seeder := services.NewSeedService(store, nil)
		analysis := services.NewAnalysisService(store)

		deactivated := date(2024, time.January, 31)
		f := &services.Fixture{Habits: []services.PredefinedHabit{{
			Task:          "Meditate",
			Periodicity:   "daily",
			CreatedAt:     date(2024, time.January, 10),
			Checkoffs:     []time.Time{date(2024, time.January, 10), date(2024, time.January, 11)},
			DeactivatedAt: &deactivated,
		}}}

		_, err := seeder.Seed(ctx, f)
		require.NoError(t, err)

		active, err := analysis.ListHabits(ctx, predefined)
		require.NoError(t, err)
		assert.Empty(t, active)

		inactive, err := analysis.ListHabits(ctx, domain.Scope{Origin: domain.OriginPredefined, Active: false})
		require.NoError(t, err)
		require.Len(t, inactive, 1)
		assert.NotNil(t, inactive[0].DeletedAt)

		streaks, err := analysis.StreakHistory(ctx, inactive[0].ID)
		require.NoError(t, err)
		require.Len(t, streaks, 1)
		assert.False(t, streaks[0].Active)
		assert.Equal(t, 2, streaks[0].Length)
		require.NotNil(t, streaks[0].EndedAt)
		assert.True(t, streaks[0].EndedAt.Equal(deactivated))

		again, err := seeder.Seed(ctx, f)
		require.NoError(t, err)
		assert.True(t, again.Skipped)
	})

	t.Run("Fail: invalid habit rolls back the whole fixture", func(t *testing.T) {
		store := repository.NewInMemoryStore()
		seeder := services.NewSeedService(store, nil)

		f := &services.Fixture{Habits: []services.PredefinedHabit{
			{Task: "Fine", Periodicity: "daily", CreatedAt: date(2024, time.January, 1)},
			{Task: "Broken", Periodicity: "hourly", CreatedAt: date(2024, time.January, 1)},
		}}

		_, err := seeder.Seed(ctx, f)
		assert.ErrorIs(t, err, domain.ErrInvalidPeriodicity)

		habits, err := services.NewAnalysisService(store).ListHabits(ctx, predefined)
		require.NoError(t, err)
		assert.Empty(t, habits)
	})
}
