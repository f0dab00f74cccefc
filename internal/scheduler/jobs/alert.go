package jobs

import (
	"context"
	"time"

	"github.com/marchino/etfwatch/internal/alert"
	"github.com/marchino/etfwatch/internal/pipeline"
	"github.com/marchino/etfwatch/pkg/logger"
)

// AlertCheckJob runs one alert-evaluation cycle per trading day: a
// fresh pass, then the tier evaluation over its alert-basis values.
type AlertCheckJob struct {
	runner    *pipeline.Runner
	evaluator *alert.Evaluator
	schedule  string
	logger    *logger.Logger
}

// NewAlertCheckJob creates the alert check job.
func NewAlertCheckJob(runner *pipeline.Runner, evaluator *alert.Evaluator, schedule string, log *logger.Logger) *AlertCheckJob {
	return &AlertCheckJob{
		runner:    runner,
		evaluator: evaluator,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name.
func (j *AlertCheckJob) Name() string { return "alert-check" }

// Schedule returns the cron expression.
func (j *AlertCheckJob) Schedule() string { return j.schedule }

// Run executes one evaluation cycle. The evaluator itself re-checks
// the weekday and the daily window, so a misconfigured schedule cannot
// cause duplicate or off-hours alerts.
func (j *AlertCheckJob) Run(ctx context.Context) error {
	output := j.runner.Run(ctx)
	outcome := j.evaluator.Evaluate(ctx, time.Now(), output.AlertValues())

	j.logger.WithFields(map[string]interface{}{
		"reason": outcome.Reason,
		"fired":  outcome.Fired,
	}).Info("Alert cycle completed")
	return nil
}
