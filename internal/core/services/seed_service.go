package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

var ErrInvalidFixture = errors.New("invalid predefined habit fixture")

type PredefinedHabit struct {
	Task        string      `yaml:"task"`
	Periodicity string      `yaml:"periodicity"`
	CreatedAt   time.Time   `yaml:"created_at"`
	Checkoffs   []time.Time `yaml:"checkoffs"`
	// DeactivatedAt, when set, seeds the habit as inactive with its streak closed.
	DeactivatedAt *time.Time `yaml:"deactivated_at"`
}

type Fixture struct {
	Habits []PredefinedHabit `yaml:"habits"`
}

// ParseFixture decodes a YAML fixture. Unknown keys are rejected.
func ParseFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidFixture)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}

	for i, h := range f.Habits {
		if h.CreatedAt.IsZero() {
			return nil, fmt.Errorf("%w: habit %d (%q) has no created_at", ErrInvalidFixture, i, h.Task)
		}
		for _, c := range h.Checkoffs {
			if c.Before(h.CreatedAt) {
				return nil, fmt.Errorf("%w: habit %q has a checkoff before its creation", ErrInvalidFixture, h.Task)
			}
			if h.DeactivatedAt != nil && c.After(*h.DeactivatedAt) {
				return nil, fmt.Errorf("%w: habit %q has a checkoff after its deactivation", ErrInvalidFixture, h.Task)
			}
		}
		if h.DeactivatedAt != nil && h.DeactivatedAt.Before(h.CreatedAt) {
			return nil, fmt.Errorf("%w: habit %q is deactivated before its creation", ErrInvalidFixture, h.Task)
		}
	}
	return &f, nil
}

type SeedResult struct {
	Skipped   bool
	Habits    int
	Checkoffs int
}

// SeedService loads the predefined habit set once.
type SeedService struct {
	store  domain.Store
	logger *zap.Logger
}

func NewSeedService(store domain.Store, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{
		store:  store,
		logger: logger.Named("seed"),
	}
}

func (s *SeedService) hasPredefined(ctx context.Context, tx domain.Store) (bool, error) {
	for _, active := range []bool{true, false} {
		scope := domain.Scope{Origin: domain.OriginPredefined, Active: active}
		existing, err := tx.Habits().List(ctx, domain.HabitFilter{Scope: scope})
		if err != nil {
			return false, err
		}
		if len(existing) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Seed inserts every fixture habit with origin predefined and replays its
// checkoffs through the ledger, so the streak rows follow the same rules as
// live checkoffs. Nothing is written when any predefined habit already exists.
// The whole fixture is one unit of work.
func (s *SeedService) Seed(ctx context.Context, fixture *Fixture) (SeedResult, error) {
	var result SeedResult

	err := s.store.Atomic(ctx, func(tx domain.Store) error {
		seeded, err := s.hasPredefined(ctx, tx)
		if err != nil {
			return err
		}
		if seeded {
			result.Skipped = true
			return nil
		}

		for _, ph := range fixture.Habits {
			p, err := domain.ParsePeriodicity(ph.Periodicity)
			if err != nil {
				return fmt.Errorf("habit %q: %w", ph.Task, err)
			}
			habit, err := domain.NewHabit(ph.Task, p, domain.OriginPredefined, ph.CreatedAt)
			if err != nil {
				return fmt.Errorf("habit %q: %w", ph.Task, err)
			}

			if err := tx.Habits().Create(ctx, habit); err != nil {
				return fmt.Errorf("failed to create habit %q: %w", ph.Task, err)
			}
			if _, err := openInitialStreak(ctx, tx, habit.ID, habit.CreatedAt); err != nil {
				return err
			}

			checkoffs := append([]time.Time(nil), ph.Checkoffs...)
			sort.Slice(checkoffs, func(i, j int) bool { return checkoffs[i].Before(checkoffs[j]) })

			for _, at := range checkoffs {
				if _, err := recordCheckoff(ctx, tx, habit.ID, at); err != nil {
					return fmt.Errorf("failed to replay checkoff for %q: %w", ph.Task, err)
				}
			}

			if ph.DeactivatedAt != nil {
				if err := deactivateSeeded(ctx, tx, habit, *ph.DeactivatedAt); err != nil {
					return fmt.Errorf("failed to deactivate %q: %w", ph.Task, err)
				}
			}

			result.Habits++
			result.Checkoffs += len(checkoffs)
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}

	if result.Skipped {
		s.logger.Info("predefined habits already present, skipping seed")
	} else {
		s.logger.Info("predefined habits seeded",
			zap.Int("habits", result.Habits),
			zap.Int("checkoffs", result.Checkoffs),
		)
	}
	return result, nil
}

func deactivateSeeded(ctx context.Context, tx domain.Store, habit *domain.Habit, at time.Time) error {
	if _, err := closeActiveStreak(ctx, tx, habit.ID, at); err != nil {
		return err
	}
	if err := habit.Deactivate(at); err != nil {
		return err
	}
	return tx.Habits().Update(ctx, habit)
}
