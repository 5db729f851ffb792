package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mysterybag/impact-hub/internal/domain/progress"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

var _ progress.Repository = (*ProgressRepository)(nil)

type progressTable struct {
	mu   sync.RWMutex
	rows map[string]progress.UserProgress
}

func newProgressTable() *progressTable {
	return &progressTable{rows: make(map[string]progress.UserProgress)}
}

// ProgressRepository implements progress.Repository.
type ProgressRepository struct {
	t *progressTable
	j *journal
}

// NewProgressRepository creates a standalone repository, mainly for tests.
func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{t: newProgressTable()}
}

// Get implements progress.Repository.
func (r *ProgressRepository) Get(ctx context.Context, userID string) (*progress.UserProgress, error) {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()

	p, ok := r.t.rows[userID]
	if !ok {
		return nil, shared.NewDomainError("progress", "Get", shared.ErrNotFound, "no progress for user")
	}
	return &p, nil
}

// Create implements progress.Repository.
func (r *ProgressRepository) Create(ctx context.Context, p *progress.UserProgress) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	if _, exists := r.t.rows[p.UserID]; exists {
		return shared.NewDomainError("progress", "Create", shared.ErrAlreadyExists, "progress already exists")
	}
	row := *p
	row.Version = 1
	r.t.rows[p.UserID] = row
	p.Version = 1

	userID := p.UserID
	r.j.record(func() {
		r.t.mu.Lock()
		delete(r.t.rows, userID)
		r.t.mu.Unlock()
	})
	return nil
}

// CompareAndSwap implements progress.Repository.
func (r *ProgressRepository) CompareAndSwap(ctx context.Context, p *progress.UserProgress, expectedVersion int64) error {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	current, ok := r.t.rows[p.UserID]
	if !ok || current.Version != expectedVersion {
		return shared.NewDomainError("progress", "CompareAndSwap", shared.ErrConcurrentModification, "version changed")
	}

	row := *p
	row.Version = expectedVersion + 1
	r.t.rows[p.UserID] = row
	p.Version = row.Version

	r.j.record(func() {
		r.t.mu.Lock()
		r.t.rows[current.UserID] = current
		r.t.mu.Unlock()
	})
	return nil
}

// ListTopByMeals implements progress.Repository.
func (r *ProgressRepository) ListTopByMeals(ctx context.Context, limit int) ([]progress.UserProgress, error) {
	r.t.mu.RLock()
	out := make([]progress.UserProgress, 0, len(r.t.rows))
	for _, p := range r.t.rows {
		out = append(out, p)
	}
	r.t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalMealsSaved != out[j].TotalMealsSaved {
			return out[i].TotalMealsSaved > out[j].TotalMealsSaved
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored records.
func (r *ProgressRepository) Count() int {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()
	return len(r.t.rows)
}
