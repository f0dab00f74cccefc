// Package backup writes a month-stamped SQL dump of the close-price
// history and optionally commits it to a GitHub repository.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marchino/etfwatch/internal/store"
	"github.com/marchino/etfwatch/pkg/logger"
)

// historyTable is the dumped table name.
const historyTable = "previous_close"

// HistoryDump is the slice of the repository the backup needs.
type HistoryDump interface {
	AllOrdered(ctx context.Context) ([]store.CloseRow, error)
}

// Manager produces SQL backups of the close-price history.
type Manager struct {
	history   HistoryDump
	dataDir   string
	committer *GitHubCommitter // optional
	logger    *logger.Logger
	now       func() time.Time
}

// NewManager creates a backup manager. committer may be nil.
func NewManager(history HistoryDump, dataDir string, committer *GitHubCommitter, log *logger.Logger) *Manager {
	return &Manager{
		history:   history,
		dataDir:   dataDir,
		committer: committer,
		logger:    log,
		now:       time.Now,
	}
}

// Run dumps the history to data/backup_close_YYYY_MM.sql and commits
// it when a committer is configured. An empty table is a failure: a
// backup of nothing means the read went wrong.
func (m *Manager) Run(ctx context.Context) error {
	now := m.now()
	filename := fmt.Sprintf("backup_close_%s.sql", now.Format("2006_01"))
	path := filepath.Join(m.dataDir, filename)

	m.logger.Infof("SQL backup started: %s", filename)

	rows, err := m.history.AllOrdered(ctx)
	if err != nil {
		return fmt.Errorf("read close history: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("backup aborted: close history is empty")
	}

	if err := os.MkdirAll(m.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	if err := os.WriteFile(path, []byte(renderDump(rows, now)), 0o644); err != nil {
		return fmt.Errorf("write backup file: %w", err)
	}

	if m.committer != nil {
		msg := fmt.Sprintf("Close history backup %s", now.Format("2006-01"))
		if err := m.committer.CommitFile(ctx, path, msg); err != nil {
			return fmt.Errorf("commit backup: %w", err)
		}
	}

	m.logger.Infof("SQL backup completed: %s (%d rows)", path, len(rows))
	return nil
}

// renderDump builds a restorable SQL script: truncate, then one INSERT
// per row.
func renderDump(rows []store.CloseRow, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- AUTOMATIC BACKUP: %s\n", historyTable)
	fmt.Fprintf(&b, "-- DATE: %s\n\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "TRUNCATE TABLE %s;\n\n", historyTable)

	for _, row := range rows {
		dailyChange := "NULL"
		if row.DailyChange != nil {
			dailyChange = fmt.Sprintf("%.2f", *row.DailyChange)
		}
		fmt.Fprintf(&b,
			"INSERT INTO %s (symbol, label, snapshot_date, close_value, daily_change) VALUES ('%s', '%s', '%s', %.2f, %s);\n",
			historyTable,
			escapeSQL(row.Symbol),
			escapeSQL(row.Label),
			row.SnapshotDate.Format("2006-01-02"),
			row.CloseValue,
			dailyChange,
		)
	}
	return b.String()
}

// escapeSQL doubles single quotes for SQL string literals.
func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
