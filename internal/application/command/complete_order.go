// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/activity"
	"github.com/mysterybag/impact-hub/internal/domain/badge"
	"github.com/mysterybag/impact-hub/internal/domain/challenge"
	"github.com/mysterybag/impact-hub/internal/domain/impact"
	"github.com/mysterybag/impact-hub/internal/domain/progress"
	"github.com/mysterybag/impact-hub/internal/domain/shared"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE ORDER COMMAND
// Turns one order-completion event into progress, challenge, badge and
// activity-log writes committed as a single unit, then publishes outcome
// notifications.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteOrderCommand is the inbound order-completion event.
type CompleteOrderCommand struct {
	// EventID is the producer's unique id, used for idempotency.
	EventID string

	// UserID is the customer who collected the bag.
	UserID string

	// OrderTotal is the retail value of the bag. Nil when missing.
	OrderTotal *float64

	// OccurredAt is when the order completed.
	OccurredAt time.Time
}

func (c CompleteOrderCommand) event() impact.OrderCompleted {
	return impact.OrderCompleted{
		EventID:    c.EventID,
		UserID:     c.UserID,
		OrderTotal: c.OrderTotal,
		OccurredAt: c.OccurredAt,
	}
}

// Status is the terminal state of one processed event.
type Status string

const (
	StatusSkipped   Status = "skipped"
	StatusRejected  Status = "rejected"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
)

// CompleteOrderOutcome reports what happened to one event.
type CompleteOrderOutcome struct {
	EventID string
	UserID  string
	Status  Status

	// Retryable is set on failed outcomes the producer may redeliver with
	// the same event id.
	Retryable bool

	// Progress is the snapshot after this event. Empty unless completed.
	Progress progress.UserProgress

	// Change is the difference this event made to Progress.
	Change progress.Change

	// CompletedChallenges holds the rows this event pushed over their goal.
	CompletedChallenges []challenge.WeeklyChallenge

	// AwardedBadges holds the badges newly inserted for this event.
	AwardedBadges []badge.Badge

	// Prior is the recorded entry of the original delivery on a skip, when
	// it could be read back.
	Prior *activity.Entry

	// Err is the rejection or failure cause.
	Err error

	ProcessedAt time.Time
}

// LeveledUp reports whether this event raised the user's level.
func (o *CompleteOrderOutcome) LeveledUp() bool {
	return o.Status == StatusCompleted && o.Change.LeveledUp()
}

// errDuplicate aborts the unit of work when the event id is already logged.
var errDuplicate = shared.NewDomainError("activity", "RecordIfNew", shared.ErrAlreadyProcessed, "event already recorded")

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CompleteOrderHandlerConfig configures the handler.
type CompleteOrderHandlerConfig struct {
	// Challenges are applied on every event. Defaults to the built-in set.
	Challenges []challenge.Definition

	// Calendar defines days and weeks. The zero value uses the default zone.
	Calendar timeutil.Calendar

	// MaxAttempts bounds optimistic-concurrency retries on progress writes.
	MaxAttempts int

	// StorageTimeout bounds all storage work for one event.
	StorageTimeout time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// DefaultCompleteOrderHandlerConfig returns default configuration.
func DefaultCompleteOrderHandlerConfig() CompleteOrderHandlerConfig {
	return CompleteOrderHandlerConfig{
		Challenges:     challenge.DefaultDefinitions(),
		Calendar:       timeutil.Default(),
		MaxAttempts:    progress.DefaultMaxAttempts,
		StorageTimeout: 5 * time.Second,
	}
}

// CompleteOrderHandler handles CompleteOrderCommand.
type CompleteOrderHandler struct {
	uow        UnitOfWork
	catalog    badge.CatalogRepository
	publisher  EventPublisher
	challenges []challenge.Definition
	lookup     challenge.Catalog
	cal        timeutil.Calendar
	attempts   int
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewCompleteOrderHandler creates a new CompleteOrderHandler. publisher may
// be nil, in which case no notifications are sent.
func NewCompleteOrderHandler(
	uow UnitOfWork,
	catalog badge.CatalogRepository,
	publisher EventPublisher,
	config CompleteOrderHandlerConfig,
) *CompleteOrderHandler {
	defaults := DefaultCompleteOrderHandlerConfig()
	if config.Challenges == nil {
		config.Challenges = defaults.Challenges
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.StorageTimeout <= 0 {
		config.StorageTimeout = defaults.StorageTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &CompleteOrderHandler{
		uow:        uow,
		catalog:    catalog,
		publisher:  publisher,
		challenges: config.Challenges,
		lookup:     challenge.NewCatalog(config.Challenges),
		cal:        config.Calendar,
		attempts:   config.MaxAttempts,
		timeout:    config.StorageTimeout,
		logger:     config.Logger.With("component", "complete_order"),
		now:        config.Now,
	}
}

// Handle processes one event. The returned outcome is never nil. The error
// is non-nil exactly when the outcome is rejected or failed.
func (h *CompleteOrderHandler) Handle(ctx context.Context, cmd CompleteOrderCommand) (*CompleteOrderOutcome, error) {
	outcome := &CompleteOrderOutcome{
		EventID: cmd.EventID,
		UserID:  cmd.UserID,
	}

	evt := cmd.event()
	delta, err := impact.Calculate(evt)
	if err != nil {
		return h.finish(outcome, err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	catalog, err := h.catalog.ListActive(ctx)
	if err != nil {
		return h.finish(outcome, fmt.Errorf("load badge catalog: %w", err))
	}

	var (
		snapshot  progress.UserProgress
		change    progress.Change
		completed []challenge.WeeklyChallenge
		awarded   []badge.Badge
	)

	err = h.uow.WithinTx(ctx, cmd.UserID, func(ctx context.Context, s Stores) error {
		// Reset per attempt so a rolled-back run leaves nothing behind.
		completed, awarded = nil, nil

		// Step 1: idempotency gate
		prior, err := s.Activity.GetByEventID(ctx, evt.EventID)
		if err == nil {
			outcome.Prior = prior
			return errDuplicate
		}
		if !shared.IsNotFound(err) {
			return fmt.Errorf("check event log: %w", err)
		}

		// Step 2: progress counters, level and streak
		store := progress.NewStore(s.Progress, progress.StoreConfig{
			Calendar:    h.cal,
			MaxAttempts: h.attempts,
			Logger:      h.logger,
			Now:         h.now,
		})
		snapshot, change, err = store.ApplyDelta(ctx, evt.UserID, delta, evt.OccurredAt)
		if err != nil {
			return fmt.Errorf("apply delta: %w", err)
		}

		// Step 3: weekly challenges
		tracker := challenge.NewTracker(s.Challenges, h.lookup, h.cal)
		for _, def := range h.challenges {
			row, just, err := tracker.ApplyChallengeProgress(ctx, evt.UserID, def.Type, def.Increment(delta), evt.OccurredAt)
			if err != nil {
				return fmt.Errorf("apply %s challenge: %w", def.Type, err)
			}
			if just {
				completed = append(completed, row)
			}
		}

		// Step 4: badges
		held, err := s.Awards.ListByUser(ctx, evt.UserID)
		if err != nil {
			return fmt.Errorf("list held badges: %w", err)
		}
		ledger := badge.NewLedger(s.Awards, catalog)
		earnedAt := h.now().UTC()
		for _, id := range badge.Missing(badge.Evaluate(catalog, snapshot), held) {
			res, err := ledger.Award(ctx, evt.UserID, id, earnedAt)
			if err != nil {
				return fmt.Errorf("award %s: %w", id, err)
			}
			if res.Awarded {
				awarded = append(awarded, res.Badge)
			}
		}

		// Step 5: activity log, last so the gate row carries the outcome
		entry := activity.NewEntry(evt.EventID, evt.UserID, activity.TypeOrderCompleted,
			h.entryData(evt, snapshot, change, completed, awarded), delta.Experience, h.now().UTC())
		accepted, err := s.Activity.RecordIfNew(ctx, entry)
		if err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
		if !accepted {
			return errDuplicate
		}
		return nil
	})

	if errors.Is(err, errDuplicate) && outcome.Prior == nil {
		outcome.Prior = h.lookupPrior(ctx, evt)
	}
	if err != nil {
		return h.finish(outcome, err)
	}

	outcome.Progress = snapshot
	outcome.Change = change
	outcome.CompletedChallenges = completed
	outcome.AwardedBadges = awarded

	res, _ := h.finish(outcome, nil)

	// Step 6: notifications, after commit
	h.notify(res)

	return res, nil
}

// finish classifies err into a terminal status and logs the outcome.
func (h *CompleteOrderHandler) finish(o *CompleteOrderOutcome, err error) (*CompleteOrderOutcome, error) {
	o.ProcessedAt = h.now().UTC()
	log := h.logger.With("event_id", o.EventID, "user_id", o.UserID)

	switch {
	case err == nil:
		o.Status = StatusCompleted
		log.Debug("order completion applied",
			"level", o.Progress.Level,
			"meals_saved", o.Progress.TotalMealsSaved,
			"badges_awarded", len(o.AwardedBadges),
			"challenges_completed", len(o.CompletedChallenges),
		)
		return o, nil

	case errors.Is(err, errDuplicate):
		o.Status = StatusSkipped
		log.Info("duplicate order completion skipped")
		return o, nil

	case shared.IsValidation(err):
		o.Status = StatusRejected
		o.Err = err
		log.Warn("order completion rejected", "error", err)
		return o, err

	default:
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, shared.ErrTimeout) {
			err = shared.WrapError("complete_order", "Handle", shared.ErrTimeout, "storage deadline exceeded", err)
		}
		o.Status = StatusFailed
		o.Retryable = shared.IsRetryable(err)
		o.Err = err
		log.Error("order completion failed", "error", err, "retryable", o.Retryable)
		return o, err
	}
}

func (h *CompleteOrderHandler) entryData(
	evt impact.OrderCompleted,
	snapshot progress.UserProgress,
	change progress.Change,
	completed []challenge.WeeklyChallenge,
	awarded []badge.Badge,
) activity.Data {
	data := activity.Data{
		OrderTotal: *evt.OrderTotal,
		OccurredAt: evt.OccurredAt,
		MealsSaved: change.MealsSaved,
		CO2Saved:   change.CO2Saved,
		WaterSaved: change.WaterSaved,
		MoneySaved: change.MoneySaved,
		LevelAfter: snapshot.Level,
	}
	for _, c := range completed {
		data.CompletedChallenges = append(data.CompletedChallenges, string(c.ChallengeType))
	}
	for _, b := range awarded {
		data.AwardedBadges = append(data.AwardedBadges, b.ID)
	}
	return data
}

// lookupPrior reads the winning delivery's entry after losing the final
// insert race. Best effort.
func (h *CompleteOrderHandler) lookupPrior(ctx context.Context, evt impact.OrderCompleted) *activity.Entry {
	var prior *activity.Entry
	_ = h.uow.WithinTx(ctx, evt.UserID, func(ctx context.Context, s Stores) error {
		entry, err := s.Activity.GetByEventID(ctx, evt.EventID)
		if err != nil {
			return err
		}
		prior = entry
		return nil
	})
	return prior
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Events builds the outcome notifications for a completed event.
func (o *CompleteOrderOutcome) Events() []shared.Event {
	if o.Status != StatusCompleted {
		return nil
	}

	var events []shared.Event
	at := o.ProcessedAt

	if o.Change.LeveledUp() {
		e := shared.NewLevelUpEvent(o.UserID, o.Change.OldLevel, o.Change.NewLevel, at)
		e.BaseEvent = e.WithCorrelationID(o.EventID)
		events = append(events, e)
	}
	for _, c := range o.CompletedChallenges {
		e := shared.NewChallengeCompletedEvent(o.UserID, string(c.ChallengeType), c.GoalValue, c.WeekStart, at)
		e.BaseEvent = e.WithCorrelationID(o.EventID)
		events = append(events, e)
	}
	for _, b := range o.AwardedBadges {
		e := shared.NewBadgeEarnedEvent(o.UserID, b.ID, b.Name, b.Description, at)
		e.BaseEvent = e.WithCorrelationID(o.EventID)
		events = append(events, e)
	}
	return events
}

// notify publishes fire-and-forget. Failures are logged and never change the
// outcome: the writes are already committed.
func (h *CompleteOrderHandler) notify(o *CompleteOrderOutcome) {
	if h.publisher == nil {
		return
	}
	for _, e := range o.Events() {
		if err := h.publisher.Publish(e); err != nil {
			h.logger.Warn("failed to publish notification",
				"event_id", o.EventID,
				"type", e.EventType(),
				"error", err,
			)
		}
	}
}
