package jobs

import (
	"context"

	"github.com/marchino/etfwatch/internal/backup"
)

// BackupJob dumps the close-price history once a month.
type BackupJob struct {
	manager  *backup.Manager
	schedule string
}

// NewBackupJob creates the backup job.
func NewBackupJob(manager *backup.Manager, schedule string) *BackupJob {
	return &BackupJob{manager: manager, schedule: schedule}
}

// Name returns the job name.
func (j *BackupJob) Name() string { return "history-backup" }

// Schedule returns the cron expression.
func (j *BackupJob) Schedule() string { return j.schedule }

// Run produces the SQL dump.
func (j *BackupJob) Run(ctx context.Context) error {
	return j.manager.Run(ctx)
}
