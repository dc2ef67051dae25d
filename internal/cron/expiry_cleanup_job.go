package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/davidfuentes/questly-backend/pkg/logger"
)

type expiryReaper interface {
	ReapExpired(ctx context.Context, now time.Time) (int64, error)
}

// ExpiryCleanupJobParams configure the expiry cleanup job.
type ExpiryCleanupJobParams struct {
	Logger *logger.Logger
	Reaper expiryReaper
}

// NewExpiryCleanupJob builds the job that deletes notifications past their
// expiry timestamp.
func NewExpiryCleanupJob(params ExpiryCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reaper == nil {
		return nil, fmt.Errorf("reaper required")
	}
	return &expiryCleanupJob{
		logg:   params.Logger,
		reaper: params.Reaper,
		now:    time.Now,
	}, nil
}

type expiryCleanupJob struct {
	logg   *logger.Logger
	reaper expiryReaper
	now    func() time.Time
}

func (j *expiryCleanupJob) Name() string { return "notification-expiry-cleanup" }

func (j *expiryCleanupJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	deleted, err := j.reaper.ReapExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("expiry cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       now,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "expiry cleanup complete")
	return nil
}
