package domain

import "time"

// StreakReport pairs a streak with the habit it belongs to.
type StreakReport struct {
	Habit  *Habit  `json:"habit"`
	Streak *Streak `json:"streak"`
	Unit   string  `json:"unit"`
}

func NewStreakReport(h *Habit, s *Streak) *StreakReport {
	return &StreakReport{
		Habit:  h,
		Streak: s,
		Unit:   h.Periodicity.Unit(),
	}
}

// Ongoing reports whether the streak is still open.
func (r *StreakReport) Ongoing() bool {
	return r.Streak.EndedAt == nil
}

type HabitSummary struct {
	Habit          *Habit     `json:"habit"`
	CurrentStreak  int        `json:"current_streak"`
	BestStreak     int        `json:"best_streak"`
	TotalCheckoffs int        `json:"total_checkoffs"`
	LastCheckedOff *time.Time `json:"last_checked_off,omitempty"`
	Unit           string     `json:"unit"`
}
