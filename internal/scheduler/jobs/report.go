package jobs

import (
	"context"

	"github.com/marchino/etfwatch/internal/pipeline"
	"github.com/marchino/etfwatch/internal/report"
)

// MonthlyReportJob sends the Telegram variation report on the first
// day of each month.
type MonthlyReportJob struct {
	runner   *pipeline.Runner
	reporter *report.Reporter
	schedule string
}

// NewMonthlyReportJob creates the monthly report job.
func NewMonthlyReportJob(runner *pipeline.Runner, reporter *report.Reporter, schedule string) *MonthlyReportJob {
	return &MonthlyReportJob{runner: runner, reporter: reporter, schedule: schedule}
}

// Name returns the job name.
func (j *MonthlyReportJob) Name() string { return "monthly-report" }

// Schedule returns the cron expression.
func (j *MonthlyReportJob) Schedule() string { return j.schedule }

// Run refreshes the data and sends the report.
func (j *MonthlyReportJob) Run(ctx context.Context) error {
	output := j.runner.Run(ctx)
	return j.reporter.Send(ctx, output)
}
