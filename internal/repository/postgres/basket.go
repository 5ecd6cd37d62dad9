package postgres

import (
	"context"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/google/uuid"
)

type basketRepository struct {
	q querier
}

func (r *basketRepository) LockOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Basket, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "baskets", "customerID", customerID)
	query := `SELECT id, customer_id, status, created_at, updated_at FROM baskets
	          WHERE customer_id = $1 AND status = $2 FOR UPDATE`
	b := &domain.Basket{}
	err := r.q.QueryRowContext(ctx, query, customerID, domain.BasketStatusOpen).
		Scan(&b.ID, &b.CustomerID, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(err, "no open basket for customer %s", customerID)
	}
	return b, nil
}

func (r *basketRepository) Create(ctx context.Context, b *domain.Basket) error {
	logger.DatabaseCall("INSERT", "baskets", "customerID", b.CustomerID)
	query := `INSERT INTO baskets (customer_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, b.CustomerID, b.Status, b.CreatedAt, b.UpdatedAt).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Transient(err, "basket was opened concurrently, retry")
		}
		return translateError(err, "create basket")
	}
	return nil
}

func (r *basketRepository) ListItems(ctx context.Context, basketID int64) ([]domain.BasketItem, error) {
	query := `SELECT id, basket_id, offer_id, unit_price_eur_snapshot, added_at FROM basket_items
	          WHERE basket_id = $1 ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query, basketID)
	if err != nil {
		return nil, translateError(err, "list basket items")
	}
	defer rows.Close()

	items := []domain.BasketItem{}
	for rows.Next() {
		var it domain.BasketItem
		if err := rows.Scan(&it.ID, &it.BasketID, &it.OfferID, &it.UnitPriceEurSnapshot, &it.AddedAt); err != nil {
			return nil, translateError(err, "scan basket item")
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *basketRepository) AddItem(ctx context.Context, it *domain.BasketItem) error {
	logger.DatabaseCall("INSERT", "basket_items", "basketID", it.BasketID, "offerID", it.OfferID)
	query := `INSERT INTO basket_items (basket_id, offer_id, unit_price_eur_snapshot, added_at)
	          VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, it.BasketID, it.OfferID, it.UnitPriceEurSnapshot, it.AddedAt).Scan(&it.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.BusinessRule("offer %d is already in the basket", it.OfferID)
		}
		return translateError(err, "add basket item")
	}
	_, err = r.q.ExecContext(ctx, `UPDATE baskets SET updated_at = $1 WHERE id = $2`, it.AddedAt, it.BasketID)
	return translateError(err, "touch basket")
}

func (r *basketRepository) Close(ctx context.Context, basketID int64, at time.Time) error {
	logger.DatabaseCall("UPDATE", "baskets", "basketID", basketID, "status", domain.BasketStatusCheckedOut)
	res, err := r.q.ExecContext(ctx, `UPDATE baskets SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		domain.BasketStatusCheckedOut, at, basketID, domain.BasketStatusOpen)
	if err != nil {
		return translateError(err, "close basket")
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "basketID", basketID)
	if err != nil {
		return translateError(err, "close basket")
	}
	if rows == 0 {
		return domain.BusinessRule("basket %d is not open", basketID)
	}
	return nil
}
