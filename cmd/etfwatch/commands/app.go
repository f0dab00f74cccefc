package commands

import (
	"fmt"
	"time"

	"github.com/marchino/etfwatch/internal/alert"
	"github.com/marchino/etfwatch/internal/backup"
	"github.com/marchino/etfwatch/internal/calendar"
	"github.com/marchino/etfwatch/internal/funds"
	"github.com/marchino/etfwatch/internal/market"
	"github.com/marchino/etfwatch/internal/notify"
	"github.com/marchino/etfwatch/internal/pipeline"
	"github.com/marchino/etfwatch/internal/report"
	"github.com/marchino/etfwatch/internal/scrape"
	"github.com/marchino/etfwatch/internal/store"
	"github.com/marchino/etfwatch/internal/variation"
	"github.com/marchino/etfwatch/pkg/config"
	"github.com/marchino/etfwatch/pkg/database"
	"github.com/marchino/etfwatch/pkg/httputil"
	"github.com/marchino/etfwatch/pkg/logger"
)

// app holds the wired components shared by all commands.
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB

	instruments []market.Instrument
	settings    alert.Settings

	runner      *pipeline.Runner
	evaluator   *alert.Evaluator
	reporter    *report.Reporter
	backups     *backup.Manager
	fundUpdater *funds.Updater
}

// newApp loads configuration and wires the full pipeline. Calendar or
// ladder configuration errors are fatal here, before any pass runs.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	instruments, err := market.LoadInstruments(cfg.InstrumentsPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load instruments: %w", err)
	}

	settings, err := alert.LoadSettings(cfg.Alert.ConfigPath, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load alert settings: %w", err)
	}

	cal, err := calendar.New(cfg.Market)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build trading calendar: %w", err)
	}

	scrapeHTTP := httputil.New(log, cfg.Scrape.Timeout).WithRateLimit(2, 1)
	notifyHTTP := httputil.New(log, 30*time.Second)

	scrapeClient := scrape.NewClient(cfg.Scrape, scrapeHTTP, log)
	closeRepo := store.NewCloseRepository(db.Pool)
	engine := variation.NewEngine(closeRepo, log)

	orch := pipeline.NewOrchestrator(scrapeClient, closeRepo, engine, cal, settings.Roles, log)
	runner := pipeline.NewRunner(orch, instruments, log)

	// Alerting
	loc, _ := time.LoadLocation(cfg.Market.Timezone) // validated by config.Load
	window, err := alert.NewWindow(loc, cfg.Alert.WindowStart, cfg.Alert.WindowEnd)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build alert window: %w", err)
	}
	webhook := notify.NewWebhook(cfg.Alert.WebhookURL, notifyHTTP, log)
	evaluator := alert.NewEvaluator(settings.Ladder, window, webhook, log)

	// Reporting and backup
	telegram := notify.NewTelegram(cfg.Telegram, notifyHTTP)
	reporter := report.NewReporter(telegram, log)
	committer := backup.NewGitHubCommitter(cfg.Backup, notifyHTTP, log)
	backups := backup.NewManager(closeRepo, cfg.DataDir, committer, log)

	// Fund NAV tracking
	var publisher funds.Publisher
	if committer != nil {
		publisher = committer
	}
	fundUpdater := funds.NewUpdater(scrapeClient, cfg.FundsPath, cfg.DataDir, publisher, log)

	return &app{
		cfg:         cfg,
		log:         log,
		db:          db,
		instruments: instruments,
		settings:    settings,
		runner:      runner,
		evaluator:   evaluator,
		reporter:    reporter,
		backups:     backups,
		fundUpdater: fundUpdater,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	a.db.Close()
}
