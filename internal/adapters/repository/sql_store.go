package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var _ domain.Store = (*SQLStore)(nil)

// SQLStore persists habits, checkoffs and streaks in SQLite or PostgreSQL.
// A SQLStore returned by Atomic is bound to a transaction.
type SQLStore struct {
	db      *sqlx.DB
	tx      *sqlx.Tx
	dialect dialect
}

// NewSQLStore wraps an already opened connection. driverName selects the SQL dialect.
func NewSQLStore(db *sqlx.DB, driverName string) (*SQLStore, error) {
	d, err := dialectFor(driverName)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// ConnectSQLStore connects and tunes the pool for the driver without
// touching the schema.
func ConnectSQLStore(ctx context.Context, driverName, dsn string) (*SQLStore, error) {
	d, err := dialectFor(driverName)
	if err != nil {
		return nil, err
	}

	if d.textTimes {
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", d.name, err)
	}

	if d.textTimes {
		// SQLite has a single writer; one connection serialises checkoffs.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return &SQLStore{db: db, dialect: d}, nil
}

// OpenSQLStore connects and applies pending migrations.
func OpenSQLStore(ctx context.Context, driverName, dsn string) (*SQLStore, error) {
	store, err := ConnectSQLStore(ctx, driverName, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := store.Migrate(ctx); err != nil {
		store.db.Close()
		return nil, err
	}
	return store, nil
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

func (s *SQLStore) DriverName() string {
	return s.dialect.driver
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	if s.tx != nil {
		return errors.New("cannot close a transaction-bound store")
	}
	return s.db.Close()
}

func (s *SQLStore) ext() sqlx.ExtContext {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *SQLStore) Habits() domain.HabitRepository {
	return &sqlHabitRepository{ext: s.ext(), dialect: s.dialect}
}

func (s *SQLStore) Checkoffs() domain.CheckoffRepository {
	return &sqlCheckoffRepository{ext: s.ext(), dialect: s.dialect}
}

func (s *SQLStore) Streaks() domain.StreakRepository {
	return &sqlStreakRepository{ext: s.ext(), dialect: s.dialect}
}

func (s *SQLStore) Atomic(ctx context.Context, fn func(tx domain.Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&SQLStore{db: s.db, tx: tx, dialect: s.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
