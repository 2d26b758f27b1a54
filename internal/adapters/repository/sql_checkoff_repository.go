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

var checkoffColumns = []string{"id", "habit_id", "checked_off_at"}

type checkoffRow struct {
	ID           string    `db:"id"`
	HabitID      string    `db:"habit_id"`
	CheckedOffAt timestamp `db:"checked_off_at"`
}

func (r checkoffRow) toDomain() *domain.Checkoff {
	return &domain.Checkoff{
		ID:           r.ID,
		HabitID:      r.HabitID,
		CheckedOffAt: r.CheckedOffAt.Time,
	}
}

type sqlCheckoffRepository struct {
	ext     sqlx.ExtContext
	dialect dialect
}

func (r *sqlCheckoffRepository) Create(ctx context.Context, c *domain.Checkoff) error {
	if err := c.Validate(); err != nil {
		return err
	}

	query, args, err := r.dialect.builder().
		Insert("checkoffs").
		Columns(checkoffColumns...).
		Values(c.ID, c.HabitID, r.dialect.timeArg(c.CheckedOffAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build checkoff insert: %w", err)
	}

	if _, err := r.ext.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert checkoff: %w", translateError(err))
	}
	return nil
}

func (r *sqlCheckoffRepository) Latest(ctx context.Context, habitID string) (*domain.Checkoff, error) {
	query, args, err := r.dialect.builder().
		Select(checkoffColumns...).
		From("checkoffs").
		Where(squirrel.Eq{"habit_id": habitID}).
		OrderBy("checked_off_at DESC", "seq DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build checkoff query: %w", err)
	}

	var row checkoffRow
	if err := sqlx.GetContext(ctx, r.ext, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCheckoffNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return row.toDomain(), nil
}

func (r *sqlCheckoffRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.Checkoff, error) {
	query, args, err := r.dialect.builder().
		Select(checkoffColumns...).
		From("checkoffs").
		Where(squirrel.Eq{"habit_id": habitID}).
		OrderBy("checked_off_at ASC", "seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build checkoff listing: %w", err)
	}

	var rows []checkoffRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	checkoffs := make([]*domain.Checkoff, 0, len(rows))
	for _, row := range rows {
		checkoffs = append(checkoffs, row.toDomain())
	}
	return checkoffs, nil
}
