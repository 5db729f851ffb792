// Package memory implements the storage ports in process memory with the
// same atomicity guarantees as the PostgreSQL adapters. It backs tests and
// single-instance deployments without a database.
package memory

import (
	"context"
	"sync"

	"github.com/mysterybag/impact-hub/internal/application/command"
	"github.com/mysterybag/impact-hub/internal/domain/badge"
)

// DB groups the in-memory tables and provides per-user units of work.
type DB struct {
	progress   *progressTable
	challenges *challengeTable
	awards     *awardTable
	activity   *activityTable
	boards     *boardTable
	catalog    *catalogTable

	locks keyedMutex
}

// NewDB creates an empty database with the given badge catalog.
func NewDB(catalog []badge.Badge) *DB {
	return &DB{
		progress:   newProgressTable(),
		challenges: newChallengeTable(),
		awards:     newAwardTable(),
		activity:   newActivityTable(),
		boards:     newBoardTable(),
		catalog:    newCatalogTable(catalog),
	}
}

// Progress returns a non-transactional progress repository.
func (db *DB) Progress() *ProgressRepository {
	return &ProgressRepository{t: db.progress}
}

// Challenges returns a non-transactional challenge repository.
func (db *DB) Challenges() *ChallengeRepository {
	return &ChallengeRepository{t: db.challenges}
}

// Awards returns a non-transactional award repository.
func (db *DB) Awards() *AwardRepository {
	return &AwardRepository{t: db.awards}
}

// Activity returns a non-transactional activity log repository.
func (db *DB) Activity() *ActivityRepository {
	return &ActivityRepository{t: db.activity}
}

// Leaderboards returns the materialized board repository.
func (db *DB) Leaderboards() *LeaderboardRepository {
	return &LeaderboardRepository{t: db.boards}
}

// Catalog returns the badge catalog repository.
func (db *DB) Catalog() *CatalogRepository {
	return &CatalogRepository{t: db.catalog}
}

// WithinTx implements command.UnitOfWork. Calls for the same user are
// serialized; calls for different users never wait on each other. Writes
// are journaled and undone in reverse order if fn fails or panics.
func (db *DB) WithinTx(ctx context.Context, userID string, fn func(ctx context.Context, s command.Stores) error) (err error) {
	unlock, err := db.locks.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	j := &journal{}
	defer func() {
		if p := recover(); p != nil {
			j.rollback()
			panic(p)
		}
	}()

	stores := command.Stores{
		Progress:   &ProgressRepository{t: db.progress, j: j},
		Challenges: &ChallengeRepository{t: db.challenges, j: j},
		Awards:     &AwardRepository{t: db.awards, j: j},
		Activity:   &ActivityRepository{t: db.activity, j: j},
	}

	if err := fn(ctx, stores); err != nil {
		j.rollback()
		return err
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// JOURNAL
// ══════════════════════════════════════════════════════════════════════════════

type journal struct {
	undo []func()
}

// record is a no-op outside a unit of work.
func (j *journal) record(fn func()) {
	if j == nil {
		return
	}
	j.undo = append(j.undo, fn)
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYED MUTEX
// ══════════════════════════════════════════════════════════════════════════════

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// lock acquires the lock for key, giving up when ctx is done.
func (k *keyedMutex) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}

	return func() {
		<-l.ch
		k.release(key, l)
	}, nil
}

func (k *keyedMutex) release(key string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

var (
	_ command.UnitOfWork = (*DB)(nil)
)
