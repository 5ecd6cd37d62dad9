package postgres

import (
	"context"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"
)

type purchaseRepository struct {
	q querier
}

func (r *purchaseRepository) Create(ctx context.Context, p *domain.Purchase) error {
	logger.EnterMethod("purchaseRepository.Create", "customerID", p.CustomerID, "items", len(p.Items))

	query := `INSERT INTO purchases (customer_id, status, total_amount_eur, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.q.QueryRowContext(ctx, query, p.CustomerID, p.Status, p.TotalAmountEur, p.CreatedAt).Scan(&p.ID); err != nil {
		logger.ExitMethodWithError("purchaseRepository.Create", err)
		return translateError(err, "create purchase")
	}

	itemQuery := `INSERT INTO purchase_items (purchase_id, offer_id, unit_price_eur_snapshot) VALUES ($1, $2, $3) RETURNING id`
	for i := range p.Items {
		it := &p.Items[i]
		it.PurchaseID = p.ID
		if err := r.q.QueryRowContext(ctx, itemQuery, p.ID, it.OfferID, it.UnitPriceEurSnapshot).Scan(&it.ID); err != nil {
			logger.ExitMethodWithError("purchaseRepository.Create", err, "purchaseID", p.ID)
			return translateError(err, "create purchase item")
		}
	}

	logger.ExitMethod("purchaseRepository.Create", "purchaseID", p.ID)
	return nil
}

func (r *purchaseRepository) GetByID(ctx context.Context, id int64) (*domain.Purchase, error) {
	return r.get(ctx, id, `SELECT id, customer_id, status, total_amount_eur, created_at, paid_at FROM purchases WHERE id = $1`)
}

func (r *purchaseRepository) LockForUpdate(ctx context.Context, id int64) (*domain.Purchase, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "purchases", "purchaseID", id)
	return r.get(ctx, id, `SELECT id, customer_id, status, total_amount_eur, created_at, paid_at FROM purchases WHERE id = $1 FOR UPDATE`)
}

func (r *purchaseRepository) get(ctx context.Context, id int64, query string) (*domain.Purchase, error) {
	p := &domain.Purchase{}
	err := r.q.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.CustomerID, &p.Status, &p.TotalAmountEur, &p.CreatedAt, &p.PaidAt)
	if err != nil {
		return nil, notFoundOr(err, "purchase not found: %d", id)
	}

	rows, err := r.q.QueryContext(ctx, `SELECT id, purchase_id, offer_id, unit_price_eur_snapshot FROM purchase_items
	                                    WHERE purchase_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, translateError(err, "list purchase items")
	}
	defer rows.Close()

	p.Items = []domain.PurchaseItem{}
	for rows.Next() {
		var it domain.PurchaseItem
		if err := rows.Scan(&it.ID, &it.PurchaseID, &it.OfferID, &it.UnitPriceEurSnapshot); err != nil {
			return nil, translateError(err, "scan purchase item")
		}
		p.Items = append(p.Items, it)
	}
	return p, rows.Err()
}

func (r *purchaseRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) error {
	logger.DatabaseCall("UPDATE", "purchases", "purchaseID", id, "status", domain.PurchaseStatusPaid)
	res, err := r.q.ExecContext(ctx, `UPDATE purchases SET status = $1, paid_at = $2 WHERE id = $3 AND status = $4`,
		domain.PurchaseStatusPaid, paidAt, id, domain.PurchaseStatusCreated)
	if err != nil {
		return translateError(err, "mark purchase paid")
	}
	rows, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "purchaseID", id)
	if err != nil {
		return translateError(err, "mark purchase paid")
	}
	if rows == 0 {
		return domain.BusinessRule("only CREATED purchases can be paid")
	}
	return nil
}
