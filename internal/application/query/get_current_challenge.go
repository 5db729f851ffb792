package query

import (
	"context"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/challenge"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CURRENT CHALLENGE QUERY
// Returns this week's row for one challenge type.
// ══════════════════════════════════════════════════════════════════════════════

// GetCurrentChallengeQuery contains the parameters of a challenge lookup.
type GetCurrentChallengeQuery struct {
	UserID        string
	ChallengeType string

	// At selects the week. Zero means now.
	At time.Time
}

// ChallengeDTO is the wire view of a WeeklyChallenge.
type ChallengeDTO struct {
	UserID        string     `json:"user_id"`
	ChallengeType string     `json:"challenge_type"`
	WeekStartDate string     `json:"week_start_date"`
	GoalValue     float64    `json:"goal_value"`
	CurrentValue  float64    `json:"current_value"`
	Remaining     float64    `json:"remaining"`
	IsCompleted   bool       `json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// GetCurrentChallengeHandler handles GetCurrentChallengeQuery.
type GetCurrentChallengeHandler struct {
	tracker *challenge.Tracker
	cal     timeutil.Calendar
	now     func() time.Time
}

// NewGetCurrentChallengeHandler creates a new GetCurrentChallengeHandler.
func NewGetCurrentChallengeHandler(repo challenge.Repository, defs []challenge.Definition, cal timeutil.Calendar) *GetCurrentChallengeHandler {
	if defs == nil {
		defs = challenge.DefaultDefinitions()
	}
	return &GetCurrentChallengeHandler{
		tracker: challenge.NewTracker(repo, challenge.NewCatalog(defs), cal),
		cal:     cal,
		now:     time.Now,
	}
}

// Handle executes the query.
func (h *GetCurrentChallengeHandler) Handle(ctx context.Context, q GetCurrentChallengeQuery) (*ChallengeDTO, error) {
	if _, err := shared.NewUserID(q.UserID); err != nil {
		return nil, err
	}
	at := q.At
	if at.IsZero() {
		at = h.now()
	}

	row, err := h.tracker.Current(ctx, q.UserID, challenge.Type(q.ChallengeType), at)
	if err != nil {
		if shared.IsValidation(err) {
			return nil, err
		}
		return nil, shared.WrapError("query", "GetCurrentChallenge", shared.ErrStorageUnavailable, "failed to load challenge", err)
	}

	return &ChallengeDTO{
		UserID:        row.UserID,
		ChallengeType: string(row.ChallengeType),
		WeekStartDate: h.cal.FormatDateStr(row.WeekStart),
		GoalValue:     row.GoalValue,
		CurrentValue:  row.CurrentValue,
		Remaining:     row.Remaining(),
		IsCompleted:   row.IsCompleted,
		CompletedAt:   row.CompletedAt,
	}, nil
}
