package postgres

import (
	"context"
	"database/sql"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/google/uuid"
)

type notificationRepository struct {
	q querier
}

const notificationColumns = `id, waiting_list_entry_id, customer_id, bike_id, message, sent_at, published_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	logger.DatabaseCall("INSERT", "notifications", "customerID", n.CustomerID, "bikeID", n.BikeID)
	query := `INSERT INTO notifications (waiting_list_entry_id, customer_id, bike_id, message, sent_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, n.EntryID, n.CustomerID, n.BikeID, n.Message, n.SentAt).Scan(&n.ID)
	if err != nil {
		return translateError(err, "create notification")
	}
	return nil
}

func (r *notificationRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE customer_id = $1 ORDER BY sent_at DESC, id DESC`
	rows, err := r.q.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, translateError(err, "list notifications")
	}
	return scanNotifications(rows)
}

// ListUnpublished returns the oldest notifications not yet pushed to any
// outbound channel.
func (r *notificationRepository) ListUnpublished(ctx context.Context, limit int) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE published_at IS NULL ORDER BY id LIMIT $1`
	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, translateError(err, "list unpublished notifications")
	}
	return scanNotifications(rows)
}

func (r *notificationRepository) MarkPublished(ctx context.Context, id int64, publishedAt time.Time) error {
	logger.DatabaseCall("UPDATE", "notifications", "notificationID", id)
	res, err := r.q.ExecContext(ctx, `UPDATE notifications SET published_at = $1 WHERE id = $2`, publishedAt, id)
	if err != nil {
		return translateError(err, "mark notification published")
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "notificationID", id)
	if err != nil {
		return translateError(err, "mark notification published")
	}
	if rows == 0 {
		return domain.NotFound("notification not found: %d", id)
	}
	return nil
}

func scanNotifications(rows *sql.Rows) ([]domain.Notification, error) {
	defer rows.Close()
	list := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.EntryID, &n.CustomerID, &n.BikeID, &n.Message, &n.SentAt, &n.PublishedAt); err != nil {
			return nil, translateError(err, "scan notification")
		}
		list = append(list, n)
	}
	return list, rows.Err()
}
