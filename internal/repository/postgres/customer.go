package postgres

import (
	"context"
	"database/sql"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/google/uuid"
)

type customerRepository struct {
	q querier
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT id, email, full_name, device_token, created_at FROM customers WHERE id = $1`
	logger.DatabaseCall("SELECT", "customers", "customerID", id)

	c := &domain.Customer{}
	var deviceToken sql.NullString
	err := r.q.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Email, &c.FullName, &deviceToken, &c.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "customer not found: %s", id)
	}
	c.DeviceToken = deviceToken.String
	return c, nil
}

func (r *customerRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, translateError(err, "check customer exists")
	}
	return exists, nil
}
