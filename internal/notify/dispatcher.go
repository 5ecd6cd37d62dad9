package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"
	"bikeshare-backend/internal/metrics"
	"bikeshare-backend/internal/repository"
)

const DefaultBatchSize = 100

// Channel delivers one hand-off notification to an outside system.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, note domain.Notification, customer *domain.Customer) error
}

// ErrSkipped is returned by a channel that has nothing to deliver for the
// customer, e.g. push without a registered device.
var ErrSkipped = errors.New("notify: channel skipped")

// Dispatcher publishes stored notifications to every enabled channel. A
// notification is marked published only once all channels accepted it, so a
// failed delivery is retried on the next run.
type Dispatcher struct {
	store     repository.Store
	channels  []Channel
	batchSize int
	now       func() time.Time
}

func NewDispatcher(store repository.Store, batchSize int, channels ...Channel) *Dispatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Dispatcher{
		store:     store,
		channels:  channels,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch runs one batch and returns how many notifications were published.
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	logger.EnterMethod("Dispatcher.Dispatch", "batchSize", d.batchSize, "channels", len(d.channels))

	pending, err := d.store.Notifications().ListUnpublished(ctx, d.batchSize)
	if err != nil {
		logger.ExitMethodWithError("Dispatcher.Dispatch", err)
		return 0, fmt.Errorf("list unpublished notifications: %w", err)
	}

	published := 0
	for _, note := range pending {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		customer, err := d.store.Customers().GetByID(ctx, note.CustomerID)
		if err != nil {
			logger.Warn("Skipping notification, customer lookup failed",
				"notificationID", note.ID, "customerID", note.CustomerID, "error", err)
			continue
		}
		if !d.deliver(ctx, note, customer) {
			continue
		}
		if err := d.store.Notifications().MarkPublished(ctx, note.ID, d.now()); err != nil {
			logger.Error("Failed to mark notification published", "notificationID", note.ID, "error", err)
			continue
		}
		published++
	}

	logger.ExitMethod("Dispatcher.Dispatch", "pending", len(pending), "published", published)
	return published, nil
}

func (d *Dispatcher) deliver(ctx context.Context, note domain.Notification, customer *domain.Customer) bool {
	ok := true
	for _, ch := range d.channels {
		err := ch.Deliver(ctx, note, customer)
		switch {
		case err == nil:
			metrics.NotificationsDispatchedTotal.WithLabelValues(ch.Name(), "sent").Inc()
		case errors.Is(err, ErrSkipped):
			metrics.NotificationsDispatchedTotal.WithLabelValues(ch.Name(), "skipped").Inc()
		default:
			ok = false
			metrics.NotificationsDispatchedTotal.WithLabelValues(ch.Name(), "failed").Inc()
			logger.Warn("Notification delivery failed",
				"channel", ch.Name(), "notificationID", note.ID, "error", err)
		}
	}
	return ok
}
