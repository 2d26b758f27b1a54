package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

const (
	habitListKey = "kanso:habits"
	habitGenKey  = "kanso:habits:gen"
	habitListTTL = 30 * time.Minute
)

var _ domain.Store = (*CachedStore)(nil)

// CachedStore decorates a Store with a Redis read-through cache for habit
// listings. Any habit write bumps the cache generation and drops the listing
// hash; inside Atomic this happens after commit. Listings are stored under the
// generation they were read in, so a fill racing a write is never served.
type CachedStore struct {
	next   domain.Store
	cache  *redis.Client
	logger *zap.Logger
}

func NewCachedStore(next domain.Store, cache *redis.Client, logger *zap.Logger) *CachedStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStore{
		next:   next,
		cache:  cache,
		logger: logger.Named("cache"),
	}
}

func (s *CachedStore) invalidate(ctx context.Context) {
	pipe := s.cache.TxPipeline()
	pipe.Incr(ctx, habitGenKey)
	pipe.Del(ctx, habitListKey)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("failed to invalidate habit listings", zap.Error(err))
	}
}

// generation is 0 until the first write.
func (s *CachedStore) generation(ctx context.Context) (int64, error) {
	gen, err := s.cache.Get(ctx, habitGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (s *CachedStore) fill(ctx context.Context, gen int64, filter domain.HabitFilter, habits []*domain.Habit) {
	data, err := json.Marshal(habits)
	if err != nil {
		return
	}

	pipe := s.cache.TxPipeline()
	pipe.HSet(ctx, habitListKey, cacheField(gen, filter), data)
	pipe.Expire(ctx, habitListKey, habitListTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("redis set error", zap.Error(err))
	}
}

func (s *CachedStore) Habits() domain.HabitRepository {
	return &cachedHabitRepository{
		next:    s.next.Habits(),
		store:   s,
		onWrite: s.invalidate,
	}
}

func (s *CachedStore) Checkoffs() domain.CheckoffRepository {
	return s.next.Checkoffs()
}

func (s *CachedStore) Streaks() domain.StreakRepository {
	return s.next.Streaks()
}

func (s *CachedStore) Atomic(ctx context.Context, fn func(tx domain.Store) error) error {
	dirty := false
	err := s.next.Atomic(ctx, func(inner domain.Store) error {
		return fn(&cachedTx{inner: inner, dirty: &dirty})
	})
	if err == nil && dirty {
		s.invalidate(ctx)
	}
	return err
}

// cachedTx reads through the transaction and never populates the cache,
// since uncommitted rows must not leak into it.
type cachedTx struct {
	inner domain.Store
	dirty *bool
}

func (t *cachedTx) Habits() domain.HabitRepository {
	return &cachedHabitRepository{
		next:    t.inner.Habits(),
		onWrite: func(context.Context) { *t.dirty = true },
	}
}

func (t *cachedTx) Checkoffs() domain.CheckoffRepository {
	return t.inner.Checkoffs()
}

func (t *cachedTx) Streaks() domain.StreakRepository {
	return t.inner.Streaks()
}

func (t *cachedTx) Atomic(ctx context.Context, fn func(tx domain.Store) error) error {
	return fn(t)
}

type cachedHabitRepository struct {
	next domain.HabitRepository
	// store is nil inside a transaction.
	store   *CachedStore
	onWrite func(ctx context.Context)
}

func listField(filter domain.HabitFilter) string {
	p := string(filter.Periodicity)
	if p == "" {
		p = "*"
	}
	return filter.Scope.String() + ":" + p
}

func cacheField(gen int64, filter domain.HabitFilter) string {
	return fmt.Sprintf("%d|%s", gen, listField(filter))
}

func (r *cachedHabitRepository) List(ctx context.Context, filter domain.HabitFilter) ([]*domain.Habit, error) {
	if r.store == nil {
		return r.next.List(ctx, filter)
	}

	cache, logger := r.store.cache, r.store.logger

	gen, err := r.store.generation(ctx)
	if err != nil {
		logger.Warn("redis read error", zap.Error(err))
		return r.next.List(ctx, filter)
	}
	field := cacheField(gen, filter)

	val, err := cache.HGet(ctx, habitListKey, field).Result()
	if err == nil {
		var habits []*domain.Habit
		if err := json.Unmarshal([]byte(val), &habits); err == nil {
			return habits, nil
		}

		logger.Warn("corrupted habit listing, cleaning up", zap.String("field", field))
		cache.HDel(ctx, habitListKey, field)
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("redis read error", zap.Error(err))
	}

	habits, err := r.next.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	r.store.fill(ctx, gen, filter, habits)
	return habits, nil
}

func (r *cachedHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	return r.next.GetByID(ctx, id)
}

func (r *cachedHabitRepository) GetForUpdate(ctx context.Context, id string) (*domain.Habit, error) {
	return r.next.GetForUpdate(ctx, id)
}

func (r *cachedHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Create(ctx, habit); err != nil {
		return err
	}
	r.onWrite(ctx)
	return nil
}

func (r *cachedHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Update(ctx, habit); err != nil {
		return err
	}
	r.onWrite(ctx)
	return nil
}
