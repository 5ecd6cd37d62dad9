package postgres

import (
	"context"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"
)

type paymentRepository struct {
	q querier
}

func (r *paymentRepository) CreateRentalPayment(ctx context.Context, p *domain.RentalPayment) error {
	logger.DatabaseCall("INSERT", "rental_payments", "rentalID", p.RentalID, "status", p.Status)
	query := `INSERT INTO rental_payments
	          (rental_id, original_amount, original_currency, fx_rate_to_eur, amount_eur, status, gateway_reference, paid_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, p.RentalID, p.OriginalAmount, p.OriginalCurrency, p.FxRateToEur,
		p.AmountEur, p.Status, p.GatewayReference, p.PaidAt).Scan(&p.ID)
	if err != nil {
		return translateError(err, "create rental payment")
	}
	return nil
}

func (r *paymentRepository) ListRentalPayments(ctx context.Context, rentalID int64) ([]domain.RentalPayment, error) {
	query := `SELECT id, rental_id, original_amount, original_currency, fx_rate_to_eur, amount_eur, status, gateway_reference, paid_at
	          FROM rental_payments WHERE rental_id = $1 ORDER BY paid_at DESC, id DESC`
	rows, err := r.q.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, translateError(err, "list rental payments")
	}
	defer rows.Close()

	payments := []domain.RentalPayment{}
	for rows.Next() {
		var p domain.RentalPayment
		if err := rows.Scan(&p.ID, &p.RentalID, &p.OriginalAmount, &p.OriginalCurrency, &p.FxRateToEur,
			&p.AmountEur, &p.Status, &p.GatewayReference, &p.PaidAt); err != nil {
			return nil, translateError(err, "scan rental payment")
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) CreateSalePayment(ctx context.Context, p *domain.SalePayment) error {
	logger.DatabaseCall("INSERT", "sale_payments", "purchaseID", p.PurchaseID, "status", p.Status)
	query := `INSERT INTO sale_payments
	          (purchase_id, original_amount, original_currency, fx_rate_to_eur, amount_eur, status, gateway_reference, paid_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.q.QueryRowContext(ctx, query, p.PurchaseID, p.OriginalAmount, p.OriginalCurrency, p.FxRateToEur,
		p.AmountEur, p.Status, p.GatewayReference, p.PaidAt).Scan(&p.ID)
	if err != nil {
		return translateError(err, "create sale payment")
	}
	return nil
}

func (r *paymentRepository) ListSalePayments(ctx context.Context, purchaseID int64) ([]domain.SalePayment, error) {
	query := `SELECT id, purchase_id, original_amount, original_currency, fx_rate_to_eur, amount_eur, status, gateway_reference, paid_at
	          FROM sale_payments WHERE purchase_id = $1 ORDER BY paid_at DESC, id DESC`
	rows, err := r.q.QueryContext(ctx, query, purchaseID)
	if err != nil {
		return nil, translateError(err, "list sale payments")
	}
	defer rows.Close()

	payments := []domain.SalePayment{}
	for rows.Next() {
		var p domain.SalePayment
		if err := rows.Scan(&p.ID, &p.PurchaseID, &p.OriginalAmount, &p.OriginalCurrency, &p.FxRateToEur,
			&p.AmountEur, &p.Status, &p.GatewayReference, &p.PaidAt); err != nil {
			return nil, translateError(err, "scan sale payment")
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
