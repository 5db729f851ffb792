package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mysterybag/impact-hub/internal/domain/badge"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
)

var (
	_ badge.CatalogRepository = (*CatalogRepository)(nil)
	_ badge.AwardRepository   = (*AwardRepository)(nil)
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements badge.CatalogRepository for PostgreSQL.
type CatalogRepository struct {
	q Querier
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(q Querier) *CatalogRepository {
	return &CatalogRepository{q: q}
}

// Seed upserts the given badges. Existing rows keep their id and get the
// new name, description, requirement and active flag.
func (r *CatalogRepository) Seed(ctx context.Context, badges []badge.Badge) error {
	if len(badges) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, b := range badges {
		batch.Queue(`
			INSERT INTO badges (id, name, description, requirement_type, requirement_value, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				requirement_type = EXCLUDED.requirement_type,
				requirement_value = EXCLUDED.requirement_value,
				is_active = EXCLUDED.is_active
		`, b.ID, b.Name, b.Description, string(b.RequirementType), b.RequirementValue, b.IsActive)
	}

	br := r.q.SendBatch(ctx, batch)
	defer br.Close()

	for _, b := range badges {
		if _, err := br.Exec(); err != nil {
			return storageError("badge", "Seed", fmt.Errorf("badge %s: %w", b.ID, err))
		}
	}
	return nil
}

// ListActive implements badge.CatalogRepository.
func (r *CatalogRepository) ListActive(ctx context.Context) ([]badge.Badge, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, description, requirement_type, requirement_value, is_active
		FROM badges
		WHERE is_active
		ORDER BY id
	`)
	if err != nil {
		return nil, storageError("badge", "ListActive", err)
	}
	defer rows.Close()

	var out []badge.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, storageError("badge", "ListActive", err)
		}
		out = append(out, *b)
	}
	return out, storageError("badge", "ListActive", rows.Err())
}

// GetByID implements badge.CatalogRepository.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*badge.Badge, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, name, description, requirement_type, requirement_value, is_active
		FROM badges
		WHERE id = $1
	`, id)

	b, err := scanBadge(row)
	if IsNoRows(err) {
		return nil, shared.ErrBadgeNotFound
	}
	if err != nil {
		return nil, storageError("badge", "GetByID", err)
	}
	return b, nil
}

func scanBadge(row pgx.Row) (*badge.Badge, error) {
	var (
		b   badge.Badge
		req string
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &req, &b.RequirementValue, &b.IsActive); err != nil {
		return nil, err
	}
	b.RequirementType = badge.RequirementType(req)
	return &b, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// AWARDS
// ══════════════════════════════════════════════════════════════════════════════

// AwardRepository implements badge.AwardRepository for PostgreSQL. The
// (user_id, badge_id) unique constraint is the only duplicate check.
type AwardRepository struct {
	q Querier
}

// NewAwardRepository creates a new AwardRepository.
func NewAwardRepository(q Querier) *AwardRepository {
	return &AwardRepository{q: q}
}

// Insert implements badge.AwardRepository.
func (r *AwardRepository) Insert(ctx context.Context, award badge.UserBadge) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO user_badges (user_id, badge_id, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`, award.UserID, award.BadgeID, award.EarnedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, storageError("badge", "Insert", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByUser implements badge.AwardRepository.
func (r *AwardRepository) ListByUser(ctx context.Context, userID string) ([]badge.UserBadge, error) {
	rows, err := r.q.Query(ctx, `
		SELECT user_id, badge_id, earned_at
		FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at, badge_id
	`, userID)
	if err != nil {
		return nil, storageError("badge", "ListByUser", err)
	}
	defer rows.Close()

	var out []badge.UserBadge
	for rows.Next() {
		var ub badge.UserBadge
		if err := rows.Scan(&ub.UserID, &ub.BadgeID, &ub.EarnedAt); err != nil {
			return nil, storageError("badge", "ListByUser", err)
		}
		out = append(out, ub)
	}
	return out, storageError("badge", "ListByUser", rows.Err())
}
