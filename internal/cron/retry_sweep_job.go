package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/davidfuentes/questly-backend/pkg/logger"
)

type retrySweeper interface {
	SweepRetries(ctx context.Context, now time.Time) (int, error)
}

// RetrySweepJobParams configure the retry sweep job.
type RetrySweepJobParams struct {
	Logger  *logger.Logger
	Sweeper retrySweeper
}

// NewRetrySweepJob builds the job that re-dispatches notifications whose
// retry is due.
func NewRetrySweepJob(params RetrySweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	return &retrySweepJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		now:     time.Now,
	}, nil
}

type retrySweepJob struct {
	logg    *logger.Logger
	sweeper retrySweeper
	now     func() time.Time
}

func (j *retrySweepJob) Name() string { return "notification-retry-sweep" }

func (j *retrySweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	processed, err := j.sweeper.SweepRetries(ctx, now)
	if err != nil {
		return fmt.Errorf("retry sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"sweep_time": now,
		"processed":  processed,
	})
	j.logg.Info(logCtx, "retry sweep complete")
	return nil
}
