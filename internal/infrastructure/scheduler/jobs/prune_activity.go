package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mysterybag/impact-hub/internal/domain/activity"
)

// PruneActivityJob deletes activity log entries older than the retention
// window. Pruned event ids are no longer deduplicated, so the window must
// exceed the longest redelivery delay of the order pipeline.
type PruneActivityJob struct {
	repo      activity.Repository
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewPruneActivityJob creates a new PruneActivityJob.
func NewPruneActivityJob(repo activity.Repository, retention time.Duration, logger *slog.Logger) *PruneActivityJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PruneActivityJob{
		repo:      repo,
		retention: retention,
		logger:    logger.With("job", "prune_activity_log"),
		now:       time.Now,
	}
}

// Name returns the job name.
func (j *PruneActivityJob) Name() string {
	return "prune_activity_log"
}

// Description returns a human-readable description.
func (j *PruneActivityJob) Description() string {
	return fmt.Sprintf("Deletes activity log entries older than %s", j.retention)
}

// Run executes the job.
func (j *PruneActivityJob) Run(ctx context.Context) error {
	if j.retention <= 0 {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	deleted, err := j.repo.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune activity log: %w", err)
	}

	j.logger.Info("activity log pruned", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	return nil
}
