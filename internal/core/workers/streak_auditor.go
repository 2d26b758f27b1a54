package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

const (
	defaultQueueSize   = 100
	defaultParallelism = 4
)

type AuditJob struct {
	HabitID string
}

// AuditReport compares a habit's stored streaks with a replay of its
// checkoff log.
type AuditReport struct {
	HabitID        string   `json:"habit_id"`
	Task           string   `json:"task"`
	ActiveStreaks  int      `json:"active_streaks"`
	StoredLength   int      `json:"stored_length"`
	ReplayedLength int      `json:"replayed_length"`
	Violations     []string `json:"violations,omitempty"`
}

func (r AuditReport) Healthy() bool {
	return len(r.Violations) == 0
}

// Drifted reports a stored length that differs from the replay. This is
// expected after a periodicity change, so it is not a violation.
func (r AuditReport) Drifted() bool {
	return r.ActiveStreaks == 1 && r.StoredLength != r.ReplayedLength
}

// StreakAuditor re-checks the ledger invariants in the background.
type StreakAuditor struct {
	store  domain.Store
	logger *zap.Logger
	jobs   chan AuditJob
	done   chan struct{}
	once   sync.Once
}

func NewStreakAuditor(store domain.Store, logger *zap.Logger) *StreakAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreakAuditor{
		store:  store,
		logger: logger.Named("auditor"),
		jobs:   make(chan AuditJob, defaultQueueSize),
		done:   make(chan struct{}),
	}
}

// Start runs the job loop until ctx is cancelled. Calling it twice is a no-op.
func (w *StreakAuditor) Start(ctx context.Context) {
	w.once.Do(func() {
		go func() {
			defer close(w.done)
			w.logger.Info("streak auditor started")
			for {
				select {
				case job := <-w.jobs:
					w.processJob(ctx, job)
				case <-ctx.Done():
					w.logger.Info("streak auditor shutting down")
					return
				}
			}
		}()
	})
}

// Done is closed once the job loop has exited.
func (w *StreakAuditor) Done() <-chan struct{} {
	return w.done
}

// Enqueue never blocks; a full queue drops the job.
func (w *StreakAuditor) Enqueue(habitID string) {
	select {
	case w.jobs <- AuditJob{HabitID: habitID}:
	default:
		w.logger.Warn("audit queue full, dropping job", zap.String("habit_id", habitID))
	}
}

func (w *StreakAuditor) processJob(ctx context.Context, job AuditJob) {
	report, err := w.Audit(ctx, job.HabitID)
	if err != nil {
		w.logger.Error("audit failed", zap.String("habit_id", job.HabitID), zap.Error(err))
		return
	}
	w.logReport(report)
}

func (w *StreakAuditor) logReport(report AuditReport) {
	switch {
	case !report.Healthy():
		w.logger.Error("streak invariant violated",
			zap.String("habit_id", report.HabitID),
			zap.Strings("violations", report.Violations),
		)
	case report.Drifted():
		w.logger.Warn("stored streak length differs from replay",
			zap.String("habit_id", report.HabitID),
			zap.Int("stored", report.StoredLength),
			zap.Int("replayed", report.ReplayedLength),
		)
	default:
		w.logger.Debug("streak audit clean", zap.String("habit_id", report.HabitID))
	}
}

// Audit checks one habit. It only reads.
func (w *StreakAuditor) Audit(ctx context.Context, habitID string) (AuditReport, error) {
	habit, err := w.store.Habits().GetByID(ctx, habitID)
	if err != nil {
		return AuditReport{}, err
	}

	streaks, err := w.store.Streaks().ListByHabitID(ctx, habitID)
	if err != nil {
		return AuditReport{}, fmt.Errorf("failed to list streaks: %w", err)
	}

	checkoffs, err := w.store.Checkoffs().ListByHabitID(ctx, habitID)
	if err != nil {
		return AuditReport{}, fmt.Errorf("failed to list checkoffs: %w", err)
	}

	report := AuditReport{HabitID: habit.ID, Task: habit.Task}

	for _, s := range streaks {
		if s.Length < 0 {
			report.Violations = append(report.Violations, fmt.Sprintf("streak %s has negative length %d", s.ID, s.Length))
		}
		if !s.Active {
			if s.EndedAt == nil {
				report.Violations = append(report.Violations, fmt.Sprintf("closed streak %s has no end", s.ID))
			}
			continue
		}
		report.ActiveStreaks++
		report.StoredLength = s.Length
		if s.EndedAt != nil {
			report.Violations = append(report.Violations, fmt.Sprintf("active streak %s has an end", s.ID))
		}
	}

	switch {
	case report.ActiveStreaks > 1:
		report.Violations = append(report.Violations, fmt.Sprintf("%d active streaks", report.ActiveStreaks))
	case report.ActiveStreaks == 1 && !habit.Active:
		report.Violations = append(report.Violations, "inactive habit still has an active streak")
	}

	replayed, err := replayActiveLength(habit.Periodicity, checkoffs)
	if err != nil {
		return AuditReport{}, err
	}
	report.ReplayedLength = replayed

	return report, nil
}

// replayActiveLength walks the checkoff log with the continuity rules and
// returns the length the last streak should have.
func replayActiveLength(p domain.Periodicity, checkoffs []*domain.Checkoff) (int, error) {
	length := 0
	var last *domain.Checkoff
	for _, c := range checkoffs {
		var lastAt *time.Time
		if last != nil {
			lastAt = &last.CheckedOffAt
		}
		continuity, err := domain.EvaluateContinuity(p, lastAt, c.CheckedOffAt)
		if err != nil {
			return 0, err
		}
		if continuity == domain.ContinuityBroken {
			length = 1
		} else {
			length++
		}
		last = c
	}
	return length, nil
}

// AuditAll audits every habit in every scope with bounded parallelism and
// returns the reports in listing order.
func (w *StreakAuditor) AuditAll(ctx context.Context) ([]AuditReport, error) {
	var habits []*domain.Habit
	for _, origin := range []domain.Origin{domain.OriginUser, domain.OriginPredefined} {
		for _, active := range []bool{true, false} {
			list, err := w.store.Habits().List(ctx, domain.HabitFilter{
				Scope: domain.Scope{Origin: origin, Active: active},
			})
			if err != nil {
				return nil, err
			}
			habits = append(habits, list...)
		}
	}

	reports := make([]AuditReport, len(habits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultParallelism)

	for i, h := range habits {
		i, h := i, h
		g.Go(func() error {
			report, err := w.Audit(gctx, h.ID)
			if err != nil {
				return fmt.Errorf("audit of habit %s: %w", h.ID, err)
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range reports {
		w.logReport(r)
	}
	return reports, nil
}
