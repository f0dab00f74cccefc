// Package jobs holds the scheduled job implementations.
package jobs

import (
	"context"
	"errors"

	"github.com/marchino/etfwatch/internal/pipeline"
	"github.com/marchino/etfwatch/pkg/logger"
)

// MarketUpdateJob runs the instrument update pass on its intraday
// schedule.
type MarketUpdateJob struct {
	runner   *pipeline.Runner
	schedule string
	logger   *logger.Logger
}

// NewMarketUpdateJob creates the market update job.
func NewMarketUpdateJob(runner *pipeline.Runner, schedule string, log *logger.Logger) *MarketUpdateJob {
	return &MarketUpdateJob{runner: runner, schedule: schedule, logger: log}
}

// Name returns the job name.
func (j *MarketUpdateJob) Name() string { return "market-update" }

// Schedule returns the cron expression.
func (j *MarketUpdateJob) Schedule() string { return j.schedule }

// Run submits one pass. A pass already in flight (for example from an
// API trigger) is not an error; the snapshot upsert is idempotent per
// (symbol, date).
func (j *MarketUpdateJob) Run(ctx context.Context) error {
	_, err := j.runner.Submit(ctx)
	if errors.Is(err, pipeline.ErrPassInFlight) {
		j.logger.Info("Update pass already in flight, skipping scheduled run")
		return nil
	}
	return err
}
