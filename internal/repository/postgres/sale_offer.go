package postgres

import (
	"context"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/google/uuid"
)

type saleOfferRepository struct {
	q querier
}

const offerColumns = `id, bike_id, seller_kind, seller_id, status, asking_price_eur, listed_at, sold_at, buyer_id`

func scanOffer(row interface{ Scan(...any) error }) (*domain.SaleOffer, error) {
	o := &domain.SaleOffer{}
	var buyer uuid.NullUUID
	err := row.Scan(&o.ID, &o.BikeID, &o.Seller.Kind, &o.Seller.ID, &o.Status, &o.AskingPriceEur, &o.ListedAt, &o.SoldAt, &buyer)
	if err != nil {
		return nil, err
	}
	if buyer.Valid {
		o.BuyerID = &buyer.UUID
	}
	return o, nil
}

func (r *saleOfferRepository) Create(ctx context.Context, o *domain.SaleOffer) error {
	logger.DatabaseCall("INSERT", "sale_offers", "bikeID", o.BikeID)
	query := `INSERT INTO sale_offers (bike_id, seller_kind, seller_id, status, asking_price_eur, listed_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, o.BikeID, o.Seller.Kind, o.Seller.ID, o.Status, o.AskingPriceEur, o.ListedAt).Scan(&o.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.BusinessRule("bike %d already has a sale offer", o.BikeID)
		}
		return translateError(err, "create sale offer")
	}
	return nil
}

func (r *saleOfferRepository) GetByID(ctx context.Context, id int64) (*domain.SaleOffer, error) {
	o, err := scanOffer(r.q.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM sale_offers WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "sale offer not found: %d", id)
	}
	return o, nil
}

func (r *saleOfferRepository) ExistsForBike(ctx context.Context, bikeID int64) (bool, error) {
	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sale_offers WHERE bike_id = $1)`, bikeID).Scan(&exists); err != nil {
		return false, translateError(err, "check sale offer")
	}
	return exists, nil
}

func (r *saleOfferRepository) LockForUpdate(ctx context.Context, id int64) (*domain.SaleOffer, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "sale_offers", "offerID", id)
	o, err := scanOffer(r.q.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM sale_offers WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFoundOr(err, "sale offer not found: %d", id)
	}
	return o, nil
}

func (r *saleOfferRepository) MarkSold(ctx context.Context, id int64, buyerID uuid.UUID, soldAt time.Time) error {
	logger.DatabaseCall("UPDATE", "sale_offers", "offerID", id, "status", domain.SaleOfferStatusSold)
	res, err := r.q.ExecContext(ctx, `UPDATE sale_offers SET status = $1, buyer_id = $2, sold_at = $3 WHERE id = $4 AND status = $5`,
		domain.SaleOfferStatusSold, buyerID, soldAt, id, domain.SaleOfferStatusListed)
	if err != nil {
		return translateError(err, "mark offer sold")
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "offerID", id)
	if err != nil {
		return translateError(err, "mark offer sold")
	}
	if rows == 0 {
		return domain.BusinessRule("offer no longer available: %d", id)
	}
	return nil
}

func (r *saleOfferRepository) ListListed(ctx context.Context) ([]domain.SaleOffer, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+offerColumns+` FROM sale_offers WHERE status = $1 ORDER BY listed_at DESC, id DESC`,
		domain.SaleOfferStatusListed)
	if err != nil {
		return nil, translateError(err, "list sale offers")
	}
	defer rows.Close()

	offers := []domain.SaleOffer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, translateError(err, "scan sale offer")
		}
		offers = append(offers, *o)
	}
	return offers, rows.Err()
}
