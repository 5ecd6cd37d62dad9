package postgres

import (
	"context"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/google/uuid"
)

type rentalRepository struct {
	q querier
}

const rentalColumns = `id, bike_id, customer_id, status, start_at, end_at, total_amount_eur`

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	logger.EnterMethod("rentalRepository.Create", "bikeID", rt.BikeID, "customerID", rt.CustomerID)

	query := `INSERT INTO rentals (bike_id, customer_id, status, start_at, end_at, total_amount_eur)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, rt.BikeID, rt.CustomerID, rt.Status, rt.StartAt, rt.EndAt, rt.TotalAmountEur).Scan(&rt.ID)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.Create", err, "bikeID", rt.BikeID)
		return translateError(err, "create rental")
	}

	logger.ExitMethod("rentalRepository.Create", "rentalID", rt.ID)
	return nil
}

func (r *rentalRepository) GetByID(ctx context.Context, id int64) (*domain.Rental, error) {
	rt := &domain.Rental{}
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	err := r.q.QueryRowContext(ctx, query, id).Scan(&rt.ID, &rt.BikeID, &rt.CustomerID, &rt.Status, &rt.StartAt, &rt.EndAt, &rt.TotalAmountEur)
	if err != nil {
		return nil, notFoundOr(err, "rental not found: %d", id)
	}
	return rt, nil
}

// Close only transitions ACTIVE rentals, so a rental is closed exactly once.
func (r *rentalRepository) Close(ctx context.Context, id int64, endAt time.Time) error {
	logger.DatabaseCall("UPDATE", "rentals", "rentalID", id, "status", domain.RentalStatusClosed)
	res, err := r.q.ExecContext(ctx, `UPDATE rentals SET status = $1, end_at = $2 WHERE id = $3 AND status = $4`,
		domain.RentalStatusClosed, endAt, id, domain.RentalStatusActive)
	if err != nil {
		return translateError(err, "close rental")
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "rentalID", id)
	if err != nil {
		return translateError(err, "close rental")
	}
	if rows == 0 {
		return domain.BusinessRule("only ACTIVE rentals can be returned")
	}
	return nil
}

func (r *rentalRepository) ExistsActiveForBike(ctx context.Context, bikeID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rentals WHERE bike_id = $1 AND status = $2)`,
		bikeID, domain.RentalStatusActive).Scan(&exists)
	if err != nil {
		return false, translateError(err, "check active rental")
	}
	return exists, nil
}

func (r *rentalRepository) CountByBike(ctx context.Context, bikeID int64) (int64, error) {
	var count int64
	if err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM rentals WHERE bike_id = $1`, bikeID).Scan(&count); err != nil {
		return 0, translateError(err, "count rentals")
	}
	return count, nil
}

func (r *rentalRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE customer_id = $1 ORDER BY start_at DESC, id DESC`
	rows, err := r.q.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, translateError(err, "list rentals")
	}
	defer rows.Close()

	rentals := []domain.Rental{}
	for rows.Next() {
		var rt domain.Rental
		if err := rows.Scan(&rt.ID, &rt.BikeID, &rt.CustomerID, &rt.Status, &rt.StartAt, &rt.EndAt, &rt.TotalAmountEur); err != nil {
			return nil, translateError(err, "scan rental")
		}
		rentals = append(rentals, rt)
	}
	return rentals, rows.Err()
}
