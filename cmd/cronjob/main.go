package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bikeshare-backend/internal/app"
	"bikeshare-backend/internal/config"
	"bikeshare-backend/internal/jobs"
	"bikeshare-backend/internal/logger"
	"bikeshare-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'dispatch-notifications', 'refresh-fx-rates', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Bikeshare Cronjob Runner...", "log_level", cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The server owns migrations; the runner only needs the schema in place.
	storage, err := app.OpenStorage(ctx, cfg, false)
	if err != nil {
		logger.Error("Failed to open storage", "error", err)
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer storage.Close()

	dispatcher, closeChannels, err := app.NewDispatcher(ctx, cfg, storage.Store)
	if err != nil {
		logger.Error("Failed to initialize notification channels", "error", err)
		log.Fatalf("Failed to initialize notification channels: %v", err)
	}
	defer closeChannels()

	var d jobs.NotificationDispatcher
	if dispatcher != nil {
		d = dispatcher
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(d, app.NewConverter(cfg), cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to register cron jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and reports whether the name was known
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "dispatch-notifications":
		jobRunner.DispatchNotifications()
	case "refresh-fx-rates":
		jobRunner.RefreshFXRates()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - dispatch-notifications\n")
		fmt.Printf("  - refresh-fx-rates\n")
		fmt.Printf("  - all\n")
		return false
	}
	return true
}
