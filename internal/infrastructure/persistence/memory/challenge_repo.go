package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mysterybag/impact-hub/internal/domain/challenge"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

var _ challenge.Repository = (*ChallengeRepository)(nil)

type challengeKey struct {
	userID string
	typ    challenge.Type
	week   int64
}

func keyOf(k challenge.Key) challengeKey {
	return challengeKey{userID: k.UserID, typ: k.Type, week: k.WeekStart.Unix()}
}

type challengeTable struct {
	mu   sync.RWMutex
	rows map[challengeKey]challenge.WeeklyChallenge
}

func newChallengeTable() *challengeTable {
	return &challengeTable{rows: make(map[challengeKey]challenge.WeeklyChallenge)}
}

// ChallengeRepository implements challenge.Repository.
type ChallengeRepository struct {
	t *challengeTable
	j *journal
}

// NewChallengeRepository creates a standalone repository, mainly for tests.
func NewChallengeRepository() *ChallengeRepository {
	return &ChallengeRepository{t: newChallengeTable()}
}

// AddProgress implements challenge.Repository.
func (r *ChallengeRepository) AddProgress(ctx context.Context, key challenge.Key, goal, by float64, at time.Time) (*challenge.WeeklyChallenge, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	k := keyOf(key)
	before, existed := r.t.rows[k]
	row := before
	if !existed {
		row = challenge.Empty(key, goal)
		row.ID = uuid.NewString()
		row.CreatedAt = at
	}
	row.CurrentValue += by
	row.UpdatedAt = at
	r.t.rows[k] = row

	r.j.record(func() {
		r.t.mu.Lock()
		defer r.t.mu.Unlock()
		if existed {
			r.t.rows[k] = before
		} else {
			delete(r.t.rows, k)
		}
	})

	out := row
	return &out, nil
}

// MarkCompleted implements challenge.Repository.
func (r *ChallengeRepository) MarkCompleted(ctx context.Context, key challenge.Key, at time.Time) (bool, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	k := keyOf(key)
	row, ok := r.t.rows[k]
	if !ok || row.IsCompleted || row.CurrentValue < row.GoalValue {
		return false, nil
	}

	before := row
	completedAt := at
	row.IsCompleted = true
	row.CompletedAt = &completedAt
	row.UpdatedAt = at
	r.t.rows[k] = row

	r.j.record(func() {
		r.t.mu.Lock()
		r.t.rows[k] = before
		r.t.mu.Unlock()
	})
	return true, nil
}

// Get implements challenge.Repository.
func (r *ChallengeRepository) Get(ctx context.Context, key challenge.Key) (*challenge.WeeklyChallenge, error) {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()

	row, ok := r.t.rows[keyOf(key)]
	if !ok {
		return nil, shared.NewDomainError("challenge", "Get", shared.ErrNotFound, "no challenge for week")
	}
	return &row, nil
}

// ListByWeek implements challenge.Repository.
func (r *ChallengeRepository) ListByWeek(ctx context.Context, challengeType challenge.Type, weekStart time.Time) ([]challenge.WeeklyChallenge, error) {
	return r.filter(func(c challenge.WeeklyChallenge) bool {
		return c.ChallengeType == challengeType && c.WeekStart.Equal(weekStart)
	}), nil
}

// ListByWeekRange implements challenge.Repository.
func (r *ChallengeRepository) ListByWeekRange(ctx context.Context, challengeType challenge.Type, from, to time.Time) ([]challenge.WeeklyChallenge, error) {
	return r.filter(func(c challenge.WeeklyChallenge) bool {
		return c.ChallengeType == challengeType && !c.WeekStart.Before(from) && c.WeekStart.Before(to)
	}), nil
}

func (r *ChallengeRepository) filter(keep func(challenge.WeeklyChallenge) bool) []challenge.WeeklyChallenge {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()

	out := make([]challenge.WeeklyChallenge, 0)
	for _, c := range r.t.rows {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
