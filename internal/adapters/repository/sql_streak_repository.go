package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

var streakColumns = []string{
	"id", "habit_id", "started_at", "ended_at", "current_length", "active",
}

type streakRow struct {
	ID        string    `db:"id"`
	HabitID   string    `db:"habit_id"`
	StartedAt timestamp `db:"started_at"`
	EndedAt   timestamp `db:"ended_at"`
	Length    int       `db:"current_length"`
	Active    bool      `db:"active"`
}

func (r streakRow) toDomain() *domain.Streak {
	return &domain.Streak{
		ID:        r.ID,
		HabitID:   r.HabitID,
		StartedAt: r.StartedAt.Time,
		EndedAt:   r.EndedAt.ptr(),
		Length:    r.Length,
		Active:    r.Active,
	}
}

func qualified(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return out
}

type sqlStreakRepository struct {
	ext     sqlx.ExtContext
	dialect dialect
}

func (r *sqlStreakRepository) Create(ctx context.Context, s *domain.Streak) error {
	query, args, err := r.dialect.builder().
		Insert("streaks").
		Columns(streakColumns...).
		Values(
			s.ID, s.HabitID, r.dialect.timeArg(s.StartedAt), r.dialect.nullTimeArg(s.EndedAt),
			s.Length, s.Active,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build streak insert: %w", err)
	}

	if _, err := r.ext.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert streak: %w", translateError(err))
	}
	return nil
}

func (r *sqlStreakRepository) Update(ctx context.Context, s *domain.Streak) error {
	query, args, err := r.dialect.builder().
		Update("streaks").
		Set("ended_at", r.dialect.nullTimeArg(s.EndedAt)).
		Set("current_length", s.Length).
		Set("active", s.Active).
		Where(squirrel.Eq{"id": s.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build streak update: %w", err)
	}

	res, err := r.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update query failed: %w", translateError(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStreakNotFound
	}
	return nil
}

func (r *sqlStreakRepository) ListActive(ctx context.Context, habitID string) ([]*domain.Streak, error) {
	return r.list(ctx, squirrel.Eq{"habit_id": habitID, "active": true})
}

func (r *sqlStreakRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.Streak, error) {
	return r.list(ctx, squirrel.Eq{"habit_id": habitID})
}

func (r *sqlStreakRepository) list(ctx context.Context, where squirrel.Eq) ([]*domain.Streak, error) {
	query, args, err := r.dialect.builder().
		Select(streakColumns...).
		From("streaks").
		Where(where).
		OrderBy("started_at ASC", "seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build streak listing: %w", err)
	}

	var rows []streakRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	streaks := make([]*domain.Streak, 0, len(rows))
	for _, row := range rows {
		streaks = append(streaks, row.toDomain())
	}
	return streaks, nil
}

func (r *sqlStreakRepository) Longest(ctx context.Context, filter domain.StreakFilter) (*domain.Streak, error) {
	where := squirrel.Eq{
		"h.origin": string(filter.Scope.Origin),
		"h.active": filter.Scope.Active,
	}
	if filter.HabitID != "" {
		where["s.habit_id"] = filter.HabitID
	}

	query, args, err := r.dialect.builder().
		Select(qualified("s", streakColumns)...).
		From("streaks s").
		Join("habits h ON h.id = s.habit_id").
		Where(where).
		OrderBy("s.current_length DESC", "s.started_at ASC", "s.seq ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build longest streak query: %w", err)
	}

	var row streakRow
	if err := sqlx.GetContext(ctx, r.ext, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoStreakData
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return row.toDomain(), nil
}
