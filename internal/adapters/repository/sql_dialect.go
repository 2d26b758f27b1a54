package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

const (
	DriverSQLite   = "sqlite"
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"

	// Fixed width and always UTC, so SQLite text columns sort chronologically.
	storageTimeLayout = "2006-01-02 15:04:05.000000-07:00"

	oneActiveStreakIndex = "idx_streaks_one_active"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

type dialect struct {
	name        string
	driver      string
	placeholder squirrel.PlaceholderFormat
	lockSuffix  string
	textTimes   bool
}

func dialectFor(driverName string) (dialect, error) {
	switch driverName {
	case DriverSQLite:
		return dialect{
			name:        "sqlite",
			driver:      DriverSQLite,
			placeholder: squirrel.Question,
			textTimes:   true,
		}, nil
	case DriverPgx, DriverPostgres:
		return dialect{
			name:        "postgres",
			driver:      driverName,
			placeholder: squirrel.Dollar,
			lockSuffix:  "FOR UPDATE",
		}, nil
	default:
		return dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driverName)
	}
}

func (d dialect) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(d.placeholder)
}

func (d dialect) timeArg(t time.Time) any {
	if d.textTimes {
		return t.UTC().Format(storageTimeLayout)
	}
	return t.UTC()
}

func (d dialect) nullTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.timeArg(*t)
}

// timestamp scans both native time values (PostgreSQL) and the text
// representation stored by SQLite.
type timestamp struct {
	Time  time.Time
	Valid bool
}

var scanLayouts = []string{
	storageTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *timestamp) parse(raw string) error {
	for _, layout := range scanLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", raw)
}

func (t timestamp) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

var _ sql.Scanner = (*timestamp)(nil)

// translateError maps driver-specific constraint failures onto domain errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return translateConstraint(pgErr.Code, pgErr.ConstraintName, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return translateConstraint(string(pqErr.Code), pqErr.Constraint, err)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: streaks.habit_id"):
		return translateConstraint("23505", oneActiveStreakIndex, err)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return translateConstraint("23505", "", err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return translateConstraint("23503", "", err)
	}
	return err
}

func translateConstraint(code, constraint string, err error) error {
	switch code {
	case "23503":
		return fmt.Errorf("%w: referenced habit does not exist", domain.ErrHabitNotFound)
	case "23505":
		if constraint == oneActiveStreakIndex {
			return fmt.Errorf("%w: second active streak rejected by storage", domain.ErrInvariantViolation)
		}
		return fmt.Errorf("%w: %v", ErrDuplicateRecord, err)
	}
	return err
}
