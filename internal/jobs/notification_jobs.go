package jobs

import (
	"context"

	"bikeshare-backend/internal/logger"
)

// DispatchNotifications publishes hand-off notifications that have not been
// delivered yet. Failed deliveries stay pending for the next run.
func (jr *JobRunner) DispatchNotifications() {
	jr.runWithRecovery("DispatchNotifications", func(ctx context.Context) {
		if jr.dispatcher == nil {
			logger.Debug("No notification channels configured, skipping dispatch")
			return
		}
		count, err := jr.dispatcher.Dispatch(ctx)
		if err != nil {
			logger.Error("Failed to dispatch notifications", "published", count, "error", err)
			return
		}
		logger.Info("Notifications dispatched", "count", count)
	})
}
