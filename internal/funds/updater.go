package funds

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marchino/etfwatch/internal/scrape"
	"github.com/marchino/etfwatch/pkg/logger"
)

// Publisher pushes the NAV snapshot somewhere durable after an update.
type Publisher interface {
	CommitFile(ctx context.Context, path, message string) error
}

// Updater scrapes all configured fund NAVs into a CSV snapshot.
type Updater struct {
	client    *scrape.Client
	fundsPath string
	outDir    string
	publisher Publisher // optional
	logger    *logger.Logger
}

// NewUpdater creates a fund updater. publisher may be nil.
func NewUpdater(client *scrape.Client, fundsPath, outDir string, publisher Publisher, log *logger.Logger) *Updater {
	return &Updater{
		client:    client,
		fundsPath: fundsPath,
		outDir:    outDir,
		publisher: publisher,
		logger:    log,
	}
}

// Run fetches every fund NAV and rewrites the snapshot CSV. One fund's
// failure is recorded as "N/D" and never aborts the rest.
func (u *Updater) Run(ctx context.Context) error {
	u.logger.Info("Fund NAV update started")

	fundList, err := Load(u.fundsPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(u.outDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	outPath := filepath.Join(u.outDir, "funds_nav.csv")
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create NAV snapshot: %w", err)
	}
	defer out.Close()

	writer := csv.NewWriter(out)
	writer.Comma = ';'
	defer writer.Flush()

	if err := writer.Write([]string{"timestamp", "name", "isin", "nav_text", "nav_value"}); err != nil {
		return fmt.Errorf("write NAV header: %w", err)
	}

	for _, fund := range fundList {
		record := u.fetchOne(ctx, fund)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write NAV row for %s: %w", fund.ISIN, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush NAV snapshot: %w", err)
	}

	if u.publisher != nil {
		msg := fmt.Sprintf("Update fund NAV snapshot %s", time.Now().Format("2006-01-02"))
		if err := u.publisher.CommitFile(ctx, outPath, msg); err != nil {
			u.logger.WithError(err).Warn("Fund NAV snapshot publish failed")
		}
	}

	u.logger.Infof("Fund NAV update completed: %d funds", len(fundList))
	return nil
}

func (u *Updater) fetchOne(ctx context.Context, fund Fund) []string {
	timestamp := time.Now().Format(time.RFC3339)

	if fund.URL == "" {
		u.logger.Warnf("%s (%s): missing URL", fund.Name, fund.ISIN)
		return []string{timestamp, fund.Name, fund.ISIN, "NO_URL", ""}
	}

	raw, value, err := u.client.FetchFundNAV(ctx, fund.URL)
	if err != nil {
		u.logger.WithError(err).Warnf("%s (%s): NAV fetch failed", fund.Name, fund.ISIN)
		return []string{timestamp, fund.Name, fund.ISIN, "N/D", "N/D"}
	}

	u.logger.Infof("%s (%s): %s", fund.Name, fund.ISIN, raw)
	return []string{timestamp, fund.Name, fund.ISIN, raw, fmt.Sprintf("%.2f", value)}
}
