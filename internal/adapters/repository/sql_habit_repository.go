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

var habitColumns = []string{
	"id", "task", "periodicity", "origin", "active", "created_at", "updated_at", "deleted_at",
}

type habitRow struct {
	ID          string    `db:"id"`
	Task        string    `db:"task"`
	Periodicity string    `db:"periodicity"`
	Origin      string    `db:"origin"`
	Active      bool      `db:"active"`
	CreatedAt   timestamp `db:"created_at"`
	UpdatedAt   timestamp `db:"updated_at"`
	DeletedAt   timestamp `db:"deleted_at"`
}

func (r habitRow) toDomain() *domain.Habit {
	return &domain.Habit{
		ID:          r.ID,
		Task:        r.Task,
		Periodicity: domain.Periodicity(r.Periodicity),
		Origin:      domain.Origin(r.Origin),
		Active:      r.Active,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
		DeletedAt:   r.DeletedAt.ptr(),
	}
}

type sqlHabitRepository struct {
	ext     sqlx.ExtContext
	dialect dialect
}

func (r *sqlHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	query, args, err := r.dialect.builder().
		Insert("habits").
		Columns(habitColumns...).
		Values(
			h.ID, h.Task, string(h.Periodicity), string(h.Origin), h.Active,
			r.dialect.timeArg(h.CreatedAt), r.dialect.timeArg(h.UpdatedAt), r.dialect.nullTimeArg(h.DeletedAt),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build habit insert: %w", err)
	}

	if _, err := r.ext.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert habit: %w", translateError(err))
	}
	return nil
}

func (r *sqlHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	return r.get(ctx, id, "")
}

func (r *sqlHabitRepository) GetForUpdate(ctx context.Context, id string) (*domain.Habit, error) {
	return r.get(ctx, id, r.dialect.lockSuffix)
}

func (r *sqlHabitRepository) get(ctx context.Context, id, suffix string) (*domain.Habit, error) {
	q := r.dialect.builder().
		Select(habitColumns...).
		From("habits").
		Where(squirrel.Eq{"id": id})
	if suffix != "" {
		q = q.Suffix(suffix)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build habit query: %w", err)
	}

	var row habitRow
	if err := sqlx.GetContext(ctx, r.ext, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return row.toDomain(), nil
}

func (r *sqlHabitRepository) List(ctx context.Context, filter domain.HabitFilter) ([]*domain.Habit, error) {
	where := squirrel.Eq{
		"origin": string(filter.Scope.Origin),
		"active": filter.Scope.Active,
	}
	if filter.Periodicity != "" {
		where["periodicity"] = string(filter.Periodicity)
	}

	query, args, err := r.dialect.builder().
		Select(habitColumns...).
		From("habits").
		Where(where).
		OrderBy("created_at ASC", "seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build habit listing: %w", err)
	}

	var rows []habitRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	habits := make([]*domain.Habit, 0, len(rows))
	for _, row := range rows {
		habits = append(habits, row.toDomain())
	}
	return habits, nil
}

func (r *sqlHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	query, args, err := r.dialect.builder().
		Update("habits").
		Set("task", h.Task).
		Set("periodicity", string(h.Periodicity)).
		Set("active", h.Active).
		Set("updated_at", r.dialect.timeArg(h.UpdatedAt)).
		Set("deleted_at", r.dialect.nullTimeArg(h.DeletedAt)).
		Where(squirrel.Eq{"id": h.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build habit update: %w", err)
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
		return domain.ErrHabitNotFound
	}
	return nil
}
