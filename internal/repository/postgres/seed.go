package postgres

import (
	"context"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"
)

// SeedCustomer inserts reference customer data; existing rows are left as is.
func (s *Store) SeedCustomer(ctx context.Context, c domain.Customer) error {
	logger.DatabaseCall("INSERT", "customers", "customerID", c.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, email, full_name, device_token)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (id) DO NOTHING`,
		c.ID, c.Email, c.FullName, c.DeviceToken)
	logger.DatabaseResult("INSERT", 0, err, "customerID", c.ID)
	return translateError(err, "seed customer")
}

// SeedBike inserts a bike with a fixed id and moves the id sequence past it.
func (s *Store) SeedBike(ctx context.Context, b domain.Bike) error {
	if b.Status == "" {
		b.Status = domain.BikeStatusAvailable
	}
	logger.DatabaseCall("INSERT", "bikes", "bikeID", b.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bikes (id, description, status, daily_rate_eur, provider_kind, provider_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		b.ID, b.Description, b.Status, b.DailyRateEur, b.Provider.Kind, b.Provider.ID)
	logger.DatabaseResult("INSERT", 0, err, "bikeID", b.ID)
	if err != nil {
		return translateError(err, "seed bike")
	}
	_, err = s.db.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('bikes', 'id'), (SELECT MAX(id) FROM bikes))`)
	return translateError(err, "advance bike sequence")
}
