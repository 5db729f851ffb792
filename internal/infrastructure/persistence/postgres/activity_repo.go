package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mysterybag/impact-hub/internal/domain/activity"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

var _ activity.Repository = (*ActivityRepository)(nil)

// ActivityRepository implements activity.Repository using PostgreSQL.
type ActivityRepository struct {
	q Querier
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(q Querier) *ActivityRepository {
	return &ActivityRepository{q: q}
}

// RecordIfNew implements activity.Repository.
func (r *ActivityRepository) RecordIfNew(ctx context.Context, entry activity.Entry) (bool, error) {
	data, err := entry.Data.Marshal()
	if err != nil {
		return false, fmt.Errorf("failed to marshal activity data: %w", err)
	}

	tag, err := r.q.Exec(ctx, `
		INSERT INTO user_activity_log (id, event_id, user_id, activity_type, activity_data, points_earned, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING
	`,
		entry.ID,
		entry.EventID,
		entry.UserID,
		string(entry.ActivityType),
		data,
		entry.PointsEarned,
		entry.RecordedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, storageError("activity", "RecordIfNew", err)
	}
	return tag.RowsAffected() == 1, nil
}

const activityColumns = `id::text, event_id, user_id, activity_type, activity_data, points_earned, recorded_at`

// GetByEventID implements activity.Repository.
func (r *ActivityRepository) GetByEventID(ctx context.Context, eventID string) (*activity.Entry, error) {
	row := r.q.QueryRow(ctx, `SELECT `+activityColumns+` FROM user_activity_log WHERE event_id = $1`, eventID)

	e, err := scanEntry(row)
	if IsNoRows(err) {
		return nil, shared.ErrActivityNotFound
	}
	if err != nil {
		return nil, storageError("activity", "GetByEventID", err)
	}
	return e, nil
}

// ListByUser implements activity.Repository.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, limit int) ([]activity.Entry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+activityColumns+`
		FROM user_activity_log
		WHERE user_id = $1
		ORDER BY recorded_at DESC
		LIMIT NULLIF($2::int, 0)
	`, userID, limit)
	if err != nil {
		return nil, storageError("activity", "ListByUser", err)
	}
	defer rows.Close()

	var out []activity.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storageError("activity", "ListByUser", err)
		}
		out = append(out, *e)
	}
	return out, storageError("activity", "ListByUser", rows.Err())
}

// PruneOlderThan implements activity.Repository.
func (r *ActivityRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM user_activity_log WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, storageError("activity", "PruneOlderThan", err)
	}
	return tag.RowsAffected(), nil
}

func scanEntry(row pgx.Row) (*activity.Entry, error) {
	var (
		e    activity.Entry
		typ  string
		data []byte
	)
	if err := row.Scan(&e.ID, &e.EventID, &e.UserID, &typ, &data, &e.PointsEarned, &e.RecordedAt); err != nil {
		return nil, err
	}

	decoded, err := activity.UnmarshalData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode activity data: %w", err)
	}
	e.ActivityType = activity.Type(typ)
	e.Data = decoded
	return &e, nil
}
