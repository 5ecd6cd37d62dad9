package jobs

import (
	"context"
	"time"

	"bikeshare-backend/internal/config"
	"bikeshare-backend/internal/logger"
)

// NotificationDispatcher publishes pending hand-off notifications.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context) (int, error)
}

// RateWarmer refreshes cached FX rates.
type RateWarmer interface {
	Warm(ctx context.Context) (int, error)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	dispatcher NotificationDispatcher
	rates      RateWarmer
	config     *config.Config
	timeout    time.Duration
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(dispatcher NotificationDispatcher, rates RateWarmer, cfg *config.Config) *JobRunner {
	return &JobRunner{
		dispatcher: dispatcher,
		rates:      rates,
		config:     cfg,
		timeout:    time.Minute,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and a deadline
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	logger.Info("Starting job", "job", jobName)
	jobFunc(ctx)
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.RefreshFXRates()
	jr.DispatchNotifications()
}
