package domain

import "time"

// Continuity is the verdict on whether a new checkoff extends the active streak.
type Continuity int

const (
	ContinuityFirstEver Continuity = iota + 1
	ContinuityContinuing
	ContinuityBroken
)

func (c Continuity) String() string {
	switch c {
	case ContinuityFirstEver:
		return "first_ever"
	case ContinuityContinuing:
		return "continuing"
	case ContinuityBroken:
		return "broken"
	default:
		return "unknown"
	}
}

func (c Continuity) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

const (
	dailyBreakAfterDays  = 2
	weeklyBreakAfterDays = 8
	monthlyBreakAfter    = 2
)

// EvaluateContinuity decides whether a checkoff at reference keeps the streak
// started before last alive. A nil last means the habit was never checked off.
// Only calendar dates matter; the time of day is ignored.
func EvaluateContinuity(p Periodicity, last *time.Time, reference time.Time) (Continuity, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if last == nil {
		return ContinuityFirstEver, nil
	}

	broken := false
	switch p {
	case PeriodicityDaily:
		broken = DaysBetween(*last, reference) >= dailyBreakAfterDays
	case PeriodicityWeekly:
		broken = DaysBetween(*last, reference) >= weeklyBreakAfterDays
	case PeriodicityMonthly:
		broken = MonthsBetween(*last, reference) >= monthlyBreakAfter
	}

	if broken {
		return ContinuityBroken, nil
	}
	return ContinuityContinuing, nil
}

// DaysBetween counts whole calendar days from the date of a to the date of b.
// Each date is read in its own location.
func DaysBetween(a, b time.Time) int {
	da := civilDate(a)
	db := civilDate(b)
	return int(db.Sub(da).Hours() / 24)
}

// MonthsBetween ignores the day of month entirely.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
