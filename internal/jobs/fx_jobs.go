package jobs

import (
	"context"

	"bikeshare-backend/internal/logger"
)

// RefreshFXRates pre-warms the rate cache so settlement never waits on the
// provider.
func (jr *JobRunner) RefreshFXRates() {
	jr.runWithRecovery("RefreshFXRates", func(ctx context.Context) {
		count, err := jr.rates.Warm(ctx)
		if err != nil {
			logger.Error("Failed to refresh FX rates", "error", err)
			return
		}
		logger.Info("FX rates refreshed", "currencies", count)
	})
}
