package progress

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/impact"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/retry"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

// DefaultMaxAttempts is the optimistic-concurrency retry ceiling.
const DefaultMaxAttempts = 5

// StoreConfig configures the progress store.
type StoreConfig struct {
	Calendar    timeutil.Calendar
	MaxAttempts int
	Logger      *slog.Logger
	Now         func() time.Time

	// Retrier overrides the backoff policy derived from MaxAttempts.
	Retrier *retry.Retrier
}

// Store is the single mutation entry point for UserProgress.
type Store struct {
	repo    Repository
	cal     timeutil.Calendar
	retrier *retry.Retrier
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates a Store over repo.
func NewStore(repo Repository, cfg StoreConfig) *Store {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	r := cfg.Retrier
	if r == nil {
		r = retry.OptimisticLockRetrier(cfg.MaxAttempts)
	}

	return &Store{
		repo:    repo,
		cal:     cfg.Calendar,
		retrier: r,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
}

// ApplyDelta atomically applies delta to the user's record, creating it on
// the first event. On version conflicts it re-reads and retries with
// backoff; once the ceiling is reached it fails with an error matching
// shared.ErrConcurrencyExhausted. It returns the stored snapshot and its
// difference from the snapshot it replaced.
func (s *Store) ApplyDelta(ctx context.Context, userID string, delta impact.Delta, occurredAt time.Time) (UserProgress, Change, error) {
	var (
		result UserProgress
		change Change
	)

	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		prev, err := s.load(ctx, userID)
		if err != nil {
			return retry.Permanent(err)
		}

		next := Next(s.cal, prev, delta, occurredAt)
		now := s.now().UTC()
		next.UpdatedAt = now

		if !prev.IsPersisted() {
			next.CreatedAt = now
			next.Version = 1
			err = s.repo.Create(ctx, &next)
			if errors.Is(err, shared.ErrAlreadyExists) {
				return retry.Retryable(shared.ErrConcurrentModification)
			}
		} else {
			next.Version = prev.Version + 1
			err = s.repo.CompareAndSwap(ctx, &next, prev.Version)
			if errors.Is(err, shared.ErrConcurrentModification) {
				return retry.Retryable(err)
			}
		}
		if err != nil {
			return retry.Permanent(err)
		}

		result = next
		change = Diff(prev, next)
		return nil
	})

	if errors.Is(err, retry.ErrExhausted) {
		s.logger.Warn("progress update gave up after repeated conflicts",
			"user_id", userID,
			"attempts", s.retrier.MaxAttempts(),
		)
		return UserProgress{}, Change{}, shared.WrapError("progress", "ApplyDelta", shared.ErrConcurrencyExhausted,
			"too many concurrent updates", err)
	}
	if err != nil {
		return UserProgress{}, Change{}, err
	}

	return result, change, nil
}

// Get returns the user's record, or the zero level-1 record when the user
// has no activity yet. It never creates rows.
func (s *Store) Get(ctx context.Context, userID string) (UserProgress, error) {
	return s.load(ctx, userID)
}

func (s *Store) load(ctx context.Context, userID string) (UserProgress, error) {
	p, err := s.repo.Get(ctx, userID)
	if shared.IsNotFound(err) {
		return New(userID), nil
	}
	if err != nil {
		return UserProgress{}, err
	}
	return *p, nil
}
