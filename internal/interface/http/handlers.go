package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mysterybag/impact-hub/internal/application/command"
	"github.com/mysterybag/impact-hub/internal/application/query"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROOT / HEALTH
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"service": "impact-hub",
		"version": s.config.Version,
		"endpoints": []string{
			"POST /api/v1/events/order-completed",
			"GET /api/v1/users/:id/progress",
			"GET /api/v1/users/:id/badges",
			"GET /api/v1/users/:id/challenges/:type",
			"GET /api/v1/leaderboard",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	status := s.deps.HealthChecker.Check(c.Request.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (s *Server) handleReady(c *gin.Context) {
	status := s.deps.HealthChecker.Check(c.Request.Context())
	if !status.Ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "message": status.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

func (s *Server) handleLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alive": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// ORDER INGEST
// ══════════════════════════════════════════════════════════════════════════════

// orderCompletedRequest is the inbound JSON body.
type orderCompletedRequest struct {
	EventID    string     `json:"event_id"`
	UserID     string     `json:"user_id"`
	OrderTotal *float64   `json:"order_total"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// outcomeResponse is the JSON view of a processed event.
type outcomeResponse struct {
	EventID   string             `json:"event_id"`
	UserID    string             `json:"user_id"`
	Status    command.Status     `json:"status"`
	Retryable bool               `json:"retryable,omitempty"`
	Error     string             `json:"error,omitempty"`
	Progress  *query.ProgressDTO `json:"progress,omitempty"`

	LeveledUp           bool                   `json:"leveled_up"`
	ExperienceGained    int                    `json:"experience_gained,omitempty"`
	CompletedChallenges []query.ChallengeDTO   `json:"completed_challenges,omitempty"`
	AwardedBadges       []awardedBadgeResponse `json:"awarded_badges,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

type awardedBadgeResponse struct {
	BadgeID string `json:"badge_id"`
	Name    string `json:"name"`
}

func (s *Server) newOutcomeResponse(o *command.CompleteOrderOutcome) outcomeResponse {
	resp := outcomeResponse{
		EventID:     o.EventID,
		UserID:      o.UserID,
		Status:      o.Status,
		Retryable:   o.Retryable,
		LeveledUp:   o.LeveledUp(),
		ProcessedAt: o.ProcessedAt,
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	if o.Status != command.StatusCompleted {
		return resp
	}

	dto := query.NewProgressDTO(o.Progress)
	resp.Progress = &dto
	resp.ExperienceGained = o.Change.ExperienceGained

	for _, ch := range o.CompletedChallenges {
		resp.CompletedChallenges = append(resp.CompletedChallenges, query.ChallengeDTO{
			UserID:        ch.UserID,
			ChallengeType: string(ch.ChallengeType),
			WeekStartDate: s.deps.Calendar.FormatDateStr(ch.WeekStart),
			GoalValue:     ch.GoalValue,
			CurrentValue:  ch.CurrentValue,
			IsCompleted:   ch.IsCompleted,
			CompletedAt:   ch.CompletedAt,
		})
	}
	for _, b := range o.AwardedBadges {
		resp.AwardedBadges = append(resp.AwardedBadges, awardedBadgeResponse{BadgeID: b.ID, Name: b.Name})
	}
	return resp
}

// handleOrderCompleted applies one order-completion event. Rejected events
// answer 422, failed ones 503 so the producer redelivers with the same id.
func (s *Server) handleOrderCompleted(c *gin.Context) {
	var req orderCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSONError(c, http.StatusBadRequest, APIError{Code: "invalid_body", Message: err.Error()})
		return
	}

	cmd := command.CompleteOrderCommand{
		EventID:    req.EventID,
		UserID:     req.UserID,
		OrderTotal: req.OrderTotal,
	}
	if req.OccurredAt != nil {
		cmd.OccurredAt = *req.OccurredAt
	}

	outcome, _ := s.deps.CompleteOrder.Handle(c.Request.Context(), cmd)
	resp := s.newOutcomeResponse(outcome)

	switch outcome.Status {
	case command.StatusRejected:
		writeJSONError(c, http.StatusUnprocessableEntity, APIError{Code: "rejected", Message: resp.Error})
	case command.StatusFailed:
		writeJSONError(c, http.StatusServiceUnavailable, APIError{Code: "failed", Message: resp.Error, Retryable: outcome.Retryable})
	default:
		writeJSON(c, http.StatusOK, resp)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetProgress(c *gin.Context) {
	dto, err := s.deps.GetProgress.Handle(c.Request.Context(), query.GetProgressQuery{UserID: c.Param("id")})
	if err != nil {
		s.writeQueryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, dto)
}

func (s *Server) handleGetBadges(c *gin.Context) {
	res, err := s.deps.GetBadges.Handle(c.Request.Context(), query.GetBadgesQuery{UserID: c.Param("id")})
	if err != nil {
		s.writeQueryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (s *Server) handleGetChallenge(c *gin.Context) {
	dto, err := s.deps.GetCurrentChallenge.Handle(c.Request.Context(), query.GetCurrentChallengeQuery{
		UserID:        c.Param("id"),
		ChallengeType: c.Param("type"),
	})
	if err != nil {
		s.writeQueryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, dto)
}

func (s *Server) handleGetLeaderboard(c *gin.Context) {
	q := query.GetLeaderboardQuery{Period: c.DefaultQuery("period", "weekly")}

	if raw := c.Query("start"); raw != "" {
		start, err := s.deps.Calendar.ParseDate(raw)
		if err != nil {
			writeJSONError(c, http.StatusBadRequest, APIError{Code: "invalid_start", Message: "start must be YYYY-MM-DD"})
			return
		}
		q.Start = start
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeJSONError(c, http.StatusBadRequest, APIError{Code: "invalid_limit", Message: "limit must be an integer"})
			return
		}
		q.Limit = limit
	}

	res, err := s.deps.GetLeaderboard.Handle(c.Request.Context(), q)
	if err != nil {
		s.writeQueryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// writeQueryError maps domain error kinds to status codes.
func (s *Server) writeQueryError(c *gin.Context, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: err.Error()})
	case shared.IsNotFound(err):
		writeJSONError(c, http.StatusNotFound, APIError{Code: "not_found", Message: err.Error()})
	case shared.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		writeJSONError(c, http.StatusServiceUnavailable, APIError{Code: "unavailable", Message: err.Error(), Retryable: true})
	default:
		logger.FromContext(c.Request.Context()).Error("query failed", "path", c.FullPath(), "error", err)
		writeJSONError(c, http.StatusInternalServerError, APIError{Code: "internal_error", Message: "Internal server error"})
	}
}
