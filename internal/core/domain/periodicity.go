package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPeriodicity = errors.New("invalid periodicity (must be daily, weekly, or monthly)")
)

// Periodicity is the cadence a habit is expected to be performed at.
type Periodicity string

const (
	PeriodicityDaily   Periodicity = "daily"
	PeriodicityWeekly  Periodicity = "weekly"
	PeriodicityMonthly Periodicity = "monthly"
)

// ParsePeriodicity accepts the canonical names case-insensitively.
func ParsePeriodicity(raw string) (Periodicity, error) {
	p := Periodicity(strings.ToLower(strings.TrimSpace(raw)))
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("%w: %q", err, raw)
	}
	return p, nil
}

func (p Periodicity) Validate() error {
	switch p {
	case PeriodicityDaily, PeriodicityWeekly, PeriodicityMonthly:
		return nil
	default:
		return ErrInvalidPeriodicity
	}
}

// Unit is the human label for one period, used when reporting streak lengths.
func (p Periodicity) Unit() string {
	switch p {
	case PeriodicityDaily:
		return "day(s)"
	case PeriodicityWeekly:
		return "week(s)"
	case PeriodicityMonthly:
		return "month(s)"
	default:
		return ""
	}
}
