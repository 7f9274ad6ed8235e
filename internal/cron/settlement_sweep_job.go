package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mikeeeeee-blip/himora-sub001/internal/settlement"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/logger"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/metrics"
)

type sweeper interface {
	Sweep(ctx context.Context, now time.Time) (settlement.Outcome, error)
}

// SettlementSweepJobParams configure the settlement sweep job.
type SettlementSweepJobParams struct {
	Logger           *logger.Logger
	Sweeper          sweeper
	Metrics          *metrics.SettlementMetrics
	BusinessDaysOnly bool
}

// NewSettlementSweepJob wraps the settlement sweeper as a cron job.
func NewSettlementSweepJob(params SettlementSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	return &settlementSweepJob{
		logg:             params.Logger,
		sweeper:          params.Sweeper,
		metrics:          params.Metrics,
		businessDaysOnly: params.BusinessDaysOnly,
		now:              time.Now,
	}, nil
}

type settlementSweepJob struct {
	logg             *logger.Logger
	sweeper          sweeper
	metrics          *metrics.SettlementMetrics
	businessDaysOnly bool
	now              func() time.Time
}

func (j *settlementSweepJob) Name() string { return "settlement-sweep" }

func (j *settlementSweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	if j.businessDaysOnly {
		if weekday := now.Weekday(); weekday == time.Saturday || weekday == time.Sunday {
			j.logg.Info(ctx, "skipping settlement sweep on non-business day")
			return nil
		}
	}

	outcome, err := j.sweeper.Sweep(ctx, now)
	if err != nil {
		return fmt.Errorf("settlement sweep: %w", err)
	}
	if j.metrics != nil {
		j.metrics.AddSettled(outcome.SettledCount)
		j.metrics.AddNotReady(outcome.NotReadyCount)
		j.metrics.AddFailed(outcome.FailedCount)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"settled":   outcome.SettledCount,
		"not_ready": outcome.NotReadyCount,
		"failed":    outcome.FailedCount,
	})
	j.logg.Info(logCtx, "settlement sweep job complete")
	return nil
}
