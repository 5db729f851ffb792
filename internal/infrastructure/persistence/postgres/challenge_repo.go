package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mysterybag/impact-hub/internal/domain/challenge"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

var _ challenge.Repository = (*ChallengeRepository)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeRepository implements challenge.Repository for PostgreSQL.
// week_start_date is a DATE; the calendar turns it back into midnight of the
// reference zone.
type ChallengeRepository struct {
	q   Querier
	cal timeutil.Calendar
}

// NewChallengeRepository creates a new ChallengeRepository.
func NewChallengeRepository(q Querier, cal timeutil.Calendar) *ChallengeRepository {
	return &ChallengeRepository{q: q, cal: cal}
}

const challengeColumns = `
	id::text, user_id, challenge_type, week_start_date, goal_value, current_value,
	is_completed, completed_at, created_at, updated_at
`

// AddProgress implements challenge.Repository with a single upsert, so
// concurrent increments never overwrite each other.
func (r *ChallengeRepository) AddProgress(ctx context.Context, key challenge.Key, goal, by float64, at time.Time) (*challenge.WeeklyChallenge, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO weekly_challenges (
			id, user_id, challenge_type, week_start_date, goal_value, current_value, created_at, updated_at
		) VALUES ($1, $2, $3, $4::date, $5, $6, $7, $7)
		ON CONFLICT (user_id, challenge_type, week_start_date) DO UPDATE SET
			current_value = weekly_challenges.current_value + EXCLUDED.current_value,
			updated_at = EXCLUDED.updated_at
		RETURNING `+challengeColumns,
		uuid.NewString(),
		key.UserID,
		string(key.Type),
		r.cal.FormatDateStr(key.WeekStart),
		goal,
		by,
		at,
	)

	c, err := r.scan(row)
	if err != nil {
		return nil, storageError("challenge", "AddProgress", err)
	}
	return c, nil
}

// MarkCompleted implements challenge.Repository.
func (r *ChallengeRepository) MarkCompleted(ctx context.Context, key challenge.Key, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE weekly_challenges
		SET is_completed = TRUE, completed_at = $4, updated_at = $4
		WHERE user_id = $1 AND challenge_type = $2 AND week_start_date = $3::date
		  AND is_completed = FALSE AND current_value >= goal_value
	`,
		key.UserID,
		string(key.Type),
		r.cal.FormatDateStr(key.WeekStart),
		at,
	)
	if err != nil {
		return false, storageError("challenge", "MarkCompleted", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get implements challenge.Repository.
func (r *ChallengeRepository) Get(ctx context.Context, key challenge.Key) (*challenge.WeeklyChallenge, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+challengeColumns+`
		FROM weekly_challenges
		WHERE user_id = $1 AND challenge_type = $2 AND week_start_date = $3::date
	`, key.UserID, string(key.Type), r.cal.FormatDateStr(key.WeekStart))

	c, err := r.scan(row)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("challenge", "Get", shared.ErrNotFound, "no challenge for week")
	}
	if err != nil {
		return nil, storageError("challenge", "Get", err)
	}
	return c, nil
}

// ListByWeek implements challenge.Repository.
func (r *ChallengeRepository) ListByWeek(ctx context.Context, challengeType challenge.Type, weekStart time.Time) ([]challenge.WeeklyChallenge, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+challengeColumns+`
		FROM weekly_challenges
		WHERE challenge_type = $1 AND week_start_date = $2::date
	`, string(challengeType), r.cal.FormatDateStr(weekStart))
	if err != nil {
		return nil, storageError("challenge", "ListByWeek", err)
	}
	return r.collect(rows, "ListByWeek")
}

// ListByWeekRange implements challenge.Repository.
func (r *ChallengeRepository) ListByWeekRange(ctx context.Context, challengeType challenge.Type, from, to time.Time) ([]challenge.WeeklyChallenge, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+challengeColumns+`
		FROM weekly_challenges
		WHERE challenge_type = $1 AND week_start_date >= $2::date AND week_start_date < $3::date
	`, string(challengeType), r.cal.FormatDateStr(from), r.cal.FormatDateStr(to))
	if err != nil {
		return nil, storageError("challenge", "ListByWeekRange", err)
	}
	return r.collect(rows, "ListByWeekRange")
}

func (r *ChallengeRepository) collect(rows pgx.Rows, op string) ([]challenge.WeeklyChallenge, error) {
	defer rows.Close()

	var out []challenge.WeeklyChallenge
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, storageError("challenge", op, err)
		}
		out = append(out, *c)
	}
	return out, storageError("challenge", op, rows.Err())
}

func (r *ChallengeRepository) scan(row pgx.Row) (*challenge.WeeklyChallenge, error) {
	var (
		c        challenge.WeeklyChallenge
		typ      string
		weekDate time.Time
	)
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&typ,
		&weekDate,
		&c.GoalValue,
		&c.CurrentValue,
		&c.IsCompleted,
		&c.CompletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ChallengeType = challenge.Type(typ)
	c.WeekStart = r.cal.Date(weekDate.Year(), weekDate.Month(), weekDate.Day())
	return &c, nil
}
