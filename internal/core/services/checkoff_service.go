package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

// AuditQueue receives habits whose streaks changed, for asynchronous verification.
type AuditQueue interface {
	Enqueue(habitID string)
}

type CheckoffService struct {
	store  domain.Store
	ledger *StreakLedger
	audits AuditQueue
	clock  Clock
	logger *zap.Logger
}

// NewCheckoffService wires the service. audits may be nil.
func NewCheckoffService(store domain.Store, ledger *StreakLedger, audits AuditQueue, clock Clock, logger *zap.Logger) *CheckoffService {
	if clock == nil {
		clock = systemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoffService{
		store:  store,
		ledger: ledger,
		audits: audits,
		clock:  clock,
		logger: logger.Named("checkoffs"),
	}
}

// Checkoff marks the habit done now.
func (s *CheckoffService) Checkoff(ctx context.Context, habitID string) (*domain.CheckoffOutcome, error) {
	outcome, err := s.ledger.RecordCheckoff(ctx, habitID, s.clock())
	if err != nil {
		return nil, err
	}

	if outcome.Closed != nil {
		s.logger.Info("streak broken",
			zap.String("habit_id", habitID),
			zap.Int("closed_length", outcome.Closed.Length),
		)
	}

	if s.audits != nil {
		s.audits.Enqueue(habitID)
	}

	return outcome, nil
}

// History lists every checkoff of the habit, oldest first.
func (s *CheckoffService) History(ctx context.Context, habitID string) ([]*domain.Checkoff, error) {
	if _, err := s.store.Habits().GetByID(ctx, habitID); err != nil {
		return nil, err
	}
	return s.store.Checkoffs().ListByHabitID(ctx, habitID)
}
