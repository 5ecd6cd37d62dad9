package postgres

import (
	"context"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"
)

type bikeRepository struct {
	q querier
}

const bikeColumns = `id, description, status, daily_rate_eur, provider_kind, provider_id, created_at`

func scanBike(row interface{ Scan(...any) error }) (*domain.Bike, error) {
	b := &domain.Bike{}
	err := row.Scan(&b.ID, &b.Description, &b.Status, &b.DailyRateEur, &b.Provider.Kind, &b.Provider.ID, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bikeRepository) GetByID(ctx context.Context, id int64) (*domain.Bike, error) {
	logger.DatabaseCall("SELECT", "bikes", "bikeID", id)
	b, err := scanBike(r.q.QueryRowContext(ctx, `SELECT `+bikeColumns+` FROM bikes WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "bike not found: %d", id)
	}
	return b, nil
}

// LockForUpdate serializes every rent and return touching the bike until the
// caller's transaction ends.
func (r *bikeRepository) LockForUpdate(ctx context.Context, id int64) (*domain.Bike, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "bikes", "bikeID", id)
	b, err := scanBike(r.q.QueryRowContext(ctx, `SELECT `+bikeColumns+` FROM bikes WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFoundOr(err, "bike not found: %d", id)
	}
	return b, nil
}

func (r *bikeRepository) UpdateStatus(ctx context.Context, id int64, status domain.BikeStatus) error {
	logger.DatabaseCall("UPDATE", "bikes", "bikeID", id, "status", status)
	res, err := r.q.ExecContext(ctx, `UPDATE bikes SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return translateError(err, "update bike status")
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "bikeID", id)
	if err != nil {
		return translateError(err, "update bike status")
	}
	if rows == 0 {
		return domain.NotFound("bike not found: %d", id)
	}
	return nil
}
