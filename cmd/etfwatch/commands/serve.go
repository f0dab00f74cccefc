package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marchino/etfwatch/internal/api"
	"github.com/marchino/etfwatch/internal/api/handlers"
	"github.com/marchino/etfwatch/internal/scheduler"
	"github.com/marchino/etfwatch/internal/scheduler/jobs"
)

// serveCmd starts the API server and the background scheduler.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and background jobs",
	Long: `Starts the HTTP API, the websocket market feed and the cron
scheduler (market updates, alert checks, monthly report, backup).

Endpoints:
  GET  /health              - Health check
  GET  /api/market-status   - Run a pass and return the aggregate
  POST /api/update-all      - Submit a background pass
  GET  /api/passes/{id}     - Pass status
  POST /api/update-funds    - Refresh fund NAVs
  GET  /ws/market           - Live pass results`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "override API port")
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if servePort != "" {
		app.cfg.Port = servePort
	}

	// Scheduler
	sched := scheduler.New(app.log)
	schedule := app.cfg.Schedule
	for _, job := range []scheduler.Job{
		jobs.NewMarketUpdateJob(app.runner, schedule.Update, app.log),
		jobs.NewAlertCheckJob(app.runner, app.evaluator, schedule.Alert, app.log),
		jobs.NewMonthlyReportJob(app.runner, app.reporter, schedule.Report),
		jobs.NewBackupJob(app.backups, schedule.Backup),
	} {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("register job: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// API server
	feed := api.NewFeed(app.runner, app.log)
	marketHandler := handlers.NewMarketHandler(app.runner, app.fundUpdater, app.log)
	router := api.NewRouter(marketHandler, feed, app.cfg.PublicDir, app.log)
	server := api.New(app.cfg, app.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		app.log.Infof("Received signal %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
