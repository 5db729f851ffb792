package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mysterybag/impact-hub/internal/domain/progress"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

var _ progress.Repository = (*ProgressRepository)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	q Querier
}

// NewProgressRepository creates a new ProgressRepository over a pool or a
// transaction.
func NewProgressRepository(q Querier) *ProgressRepository {
	return &ProgressRepository{q: q}
}

const progressColumns = `
	user_id, total_meals_saved, total_co2_saved, total_money_saved::float8,
	total_water_saved, experience_points, level, experience_to_next_level,
	current_streak, longest_streak, last_activity_at, version, created_at, updated_at
`

// Get implements progress.Repository.
func (r *ProgressRepository) Get(ctx context.Context, userID string) (*progress.UserProgress, error) {
	row := r.q.QueryRow(ctx, `SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1`, userID)

	p, err := scanProgress(row)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("progress", "Get", shared.ErrNotFound, "no progress for user")
	}
	if err != nil {
		return nil, storageError("progress", "Get", err)
	}
	return p, nil
}

// Create implements progress.Repository. ON CONFLICT keeps a lost insert
// race from aborting the surrounding transaction.
func (r *ProgressRepository) Create(ctx context.Context, p *progress.UserProgress) error {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO user_progress (
			user_id, total_meals_saved, total_co2_saved, total_money_saved,
			total_water_saved, experience_points, level, experience_to_next_level,
			current_streak, longest_streak, last_activity_at, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, $12, $13)
		ON CONFLICT (user_id) DO NOTHING
	`,
		p.UserID,
		p.TotalMealsSaved,
		p.TotalCO2Saved,
		p.TotalMoneySaved,
		p.TotalWaterSaved,
		p.ExperiencePoints,
		p.Level,
		p.ExperienceToNextLevel,
		p.CurrentStreak,
		p.LongestStreak,
		nullTime(p.LastActivityAt),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("progress", "Create", shared.ErrAlreadyExists, "progress already exists")
		}
		return storageError("progress", "Create", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("progress", "Create", shared.ErrAlreadyExists, "progress already exists")
	}

	p.Version = 1
	return nil
}

// CompareAndSwap implements progress.Repository.
func (r *ProgressRepository) CompareAndSwap(ctx context.Context, p *progress.UserProgress, expectedVersion int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE user_progress SET
			total_meals_saved = $3,
			total_co2_saved = $4,
			total_money_saved = $5,
			total_water_saved = $6,
			experience_points = $7,
			level = $8,
			experience_to_next_level = $9,
			current_streak = $10,
			longest_streak = $11,
			last_activity_at = $12,
			updated_at = $13,
			version = version + 1
		WHERE user_id = $1 AND version = $2
	`,
		p.UserID,
		expectedVersion,
		p.TotalMealsSaved,
		p.TotalCO2Saved,
		p.TotalMoneySaved,
		p.TotalWaterSaved,
		p.ExperiencePoints,
		p.Level,
		p.ExperienceToNextLevel,
		p.CurrentStreak,
		p.LongestStreak,
		nullTime(p.LastActivityAt),
		p.UpdatedAt,
	)
	if err != nil {
		return storageError("progress", "CompareAndSwap", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("progress", "CompareAndSwap", shared.ErrConcurrentModification, "version changed")
	}

	p.Version = expectedVersion + 1
	return nil
}

// ListTopByMeals implements progress.Repository.
func (r *ProgressRepository) ListTopByMeals(ctx context.Context, limit int) ([]progress.UserProgress, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+progressColumns+`
		FROM user_progress
		ORDER BY total_meals_saved DESC, user_id ASC
		LIMIT NULLIF($1::int, 0)
	`, limit)
	if err != nil {
		return nil, storageError("progress", "ListTopByMeals", err)
	}
	defer rows.Close()

	var out []progress.UserProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, storageError("progress", "ListTopByMeals", err)
		}
		out = append(out, *p)
	}
	return out, storageError("progress", "ListTopByMeals", rows.Err())
}

func scanProgress(row pgx.Row) (*progress.UserProgress, error) {
	var (
		p            progress.UserProgress
		lastActivity *time.Time
	)
	err := row.Scan(
		&p.UserID,
		&p.TotalMealsSaved,
		&p.TotalCO2Saved,
		&p.TotalMoneySaved,
		&p.TotalWaterSaved,
		&p.ExperiencePoints,
		&p.Level,
		&p.ExperienceToNextLevel,
		&p.CurrentStreak,
		&p.LongestStreak,
		&lastActivity,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastActivity != nil {
		p.LastActivityAt = *lastActivity
	}
	return &p, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
