package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mysterybag/impact-hub/internal/application/command"
	"github.com/mysterybag/impact-hub/internal/application/query"
	"github.com/mysterybag/impact-hub/internal/domain/badge"
	"github.com/mysterybag/impact-hub/internal/domain/leaderboard"
	"github.com/mysterybag/impact-hub/internal/infrastructure/persistence/memory"
	"github.com/mysterybag/impact-hub/internal/interface/http/handlers"
	"github.com/mysterybag/impact-hub/pkg/logger"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func newTestServer(t *testing.T, cfg Config, health handlers.HealthChecker) *Server {
	t.Helper()

	cal := timeutil.Default()
	db := memory.NewDB(badge.DefaultCatalog())
	log := logger.Discard()

	return NewServer(cfg, Dependencies{
		CompleteOrder: command.NewCompleteOrderHandler(db, db.Catalog(), nil, command.CompleteOrderHandlerConfig{
			Calendar: cal,
			Logger:   log,
		}),
		GetProgress:         query.NewGetProgressHandler(db.Progress()),
		GetBadges:           query.NewGetBadgesHandler(db.Awards(), db.Catalog()),
		GetCurrentChallenge: query.NewGetCurrentChallengeHandler(db.Challenges(), nil, cal),
		GetLeaderboard: query.NewGetLeaderboardHandler(nil, db.Leaderboards(),
			leaderboard.NewRepositorySource(db.Progress(), db.Challenges(), cal), cal, log),
		Calendar:      cal,
		HealthChecker: health,
		Logger:        log,
	})
}

func do(t *testing.T, s *Server, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func order(eventID, userID string, total any) map[string]any {
	return map[string]any{
		"event_id":    eventID,
		"user_id":     userID,
		"order_total": total,
		"occurred_at": "2025-03-12T18:30:00Z",
	}
}

func TestOrderCompleted_AppliesThenSkipsDuplicate(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	rec, env := do(t, s, http.MethodPost, "/api/v1/events/order-completed", order("evt-1", "user-1", 12.5), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(handlers.HeaderRequestID))

	var out outcomeResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, command.StatusCompleted, out.Status)
	require.NotNil(t, out.Progress)
	assert.Equal(t, 1, out.Progress.TotalMealsSaved)
	assert.NotEmpty(t, out.AwardedBadges)

	rec, env = do(t, s, http.MethodPost, "/api/v1/events/order-completed", order("evt-1", "user-1", 12.5), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, command.StatusSkipped, out.Status)

	rec, env = do(t, s, http.MethodGet, "/api/v1/users/user-1/progress", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dto query.ProgressDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, 1, dto.TotalMealsSaved)
}

func TestOrderCompleted_Rejected(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	rec, env := do(t, s, http.MethodPost, "/api/v1/events/order-completed", order("evt-1", "user-1", -3), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "rejected", env.Error.Code)

	missing := order("evt-2", "user-1", nil)
	delete(missing, "order_total")
	rec, _ = do(t, s, http.MethodPost, "/api/v1/events/order-completed", missing, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/order-completed", bytes.NewBufferString("{not json"))
	raw := httptest.NewRecorder()
	s.Handler().ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestOrderCompleted_RequiresIngestKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	s := newTestServer(t, Config{IngestAPIKeyHash: string(hash)}, nil)
	path := "/api/v1/events/order-completed"

	rec, env := do(t, s, http.MethodPost, path, order("evt-1", "user-1", 10), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, env.Data)

	rec, _ = do(t, s, http.MethodPost, path, order("evt-1", "user-1", 10), map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, s, http.MethodPost, path, order("evt-1", "user-1", 10), map[string]string{"X-API-Key": "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, http.MethodPost, path, order("evt-2", "user-1", 10), map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Reads stay open.
	rec, _ = do(t, s, http.MethodGet, "/api/v1/users/user-1/badges", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQueries_UnknownUserAndValidation(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	rec, env := do(t, s, http.MethodGet, "/api/v1/users/ghost/progress", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dto query.ProgressDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, 1, dto.Level)
	assert.Zero(t, dto.TotalMealsSaved)

	rec, env = do(t, s, http.MethodGet, "/api/v1/users/ghost/challenges/meals_saved", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ch query.ChallengeDTO
	require.NoError(t, json.Unmarshal(env.Data, &ch))
	assert.Equal(t, 5.0, ch.GoalValue)
	assert.False(t, ch.IsCompleted)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/users/ghost/challenges/juggling", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/leaderboard?period=yearly", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/leaderboard?start=12-03-2025", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/leaderboard?limit=ten", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaderboard_LiveCompile(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	path := "/api/v1/events/order-completed"

	do(t, s, http.MethodPost, path, order("a1", "alice", 10), nil)
	do(t, s, http.MethodPost, path, order("b1", "bob", 10), nil)
	do(t, s, http.MethodPost, path, order("b2", "bob", 10), nil)

	rec, env := do(t, s, http.MethodGet, "/api/v1/leaderboard?period=all_time&limit=5", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var board query.GetLeaderboardResult
	require.NoError(t, json.Unmarshal(env.Data, &board))
	assert.Equal(t, query.SourceLive, board.Source)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "bob", board.Entries[0].UserID)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, 2, board.Entries[0].MealsSaved)
	assert.Equal(t, "alice", board.Entries[1].UserID)
}

func TestHealthEndpoints(t *testing.T) {
	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("database", func(context.Context) error { return nil })
	s := newTestServer(t, Config{}, checker)

	rec, _ := do(t, s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, s, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	checker.AddCheck("cache", func(context.Context) error { return errors.New("connection refused") })

	rec, _ = do(t, s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status handlers.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Checks["cache"].Healthy)
	assert.True(t, status.Checks["database"].Healthy)
	assert.Equal(t, "Some checks failed: cache", status.Message)

	rec, _ = do(t, s, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/live", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecovery(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	s.engine.GET("/boom", func(*gin.Context) { panic("boom") })

	rec, env := do(t, s, http.MethodGet, "/boom", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "internal_error", env.Error.Code)
}
