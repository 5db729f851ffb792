package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/activity"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

var _ activity.Repository = (*ActivityRepository)(nil)

type activityTable struct {
	mu   sync.RWMutex
	rows map[string]activity.Entry // by event id
}

func newActivityTable() *activityTable {
	return &activityTable{rows: make(map[string]activity.Entry)}
}

// ActivityRepository implements activity.Repository.
type ActivityRepository struct {
	t *activityTable
	j *journal
}

// NewActivityRepository creates a standalone repository, mainly for tests.
func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{t: newActivityTable()}
}

// RecordIfNew implements activity.Repository.
func (r *ActivityRepository) RecordIfNew(ctx context.Context, entry activity.Entry) (bool, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	if _, exists := r.t.rows[entry.EventID]; exists {
		return false, nil
	}
	r.t.rows[entry.EventID] = entry

	eventID := entry.EventID
	r.j.record(func() {
		r.t.mu.Lock()
		delete(r.t.rows, eventID)
		r.t.mu.Unlock()
	})
	return true, nil
}

// GetByEventID implements activity.Repository.
func (r *ActivityRepository) GetByEventID(ctx context.Context, eventID string) (*activity.Entry, error) {
	r.t.mu.RLock()
	defer r.t.mu.RUnlock()

	e, ok := r.t.rows[eventID]
	if !ok {
		return nil, shared.ErrActivityNotFound
	}
	return &e, nil
}

// ListByUser implements activity.Repository.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, limit int) ([]activity.Entry, error) {
	r.t.mu.RLock()
	out := make([]activity.Entry, 0)
	for _, e := range r.t.rows {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	r.t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PruneOlderThan implements activity.Repository.
func (r *ActivityRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()

	var n int64
	for id, e := range r.t.rows {
		if e.RecordedAt.Before(cutoff) {
			delete(r.t.rows, id)
			n++
		}
	}
	return n, nil
}
