package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SettlementCurrency is the currency every stored total is normalized into.
const SettlementCurrency = "EUR"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type PaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	PaymentMethodID string          `json:"payment_method_id"`
}

// Normalize trims and upper-cases the currency code and checks the request is
// usable before any port is called.
func (r PaymentRequest) Normalize() (PaymentRequest, error) {
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if len(r.Currency) != 3 {
		return r, Validation("currency must be a 3-letter ISO code")
	}
	for _, c := range r.Currency {
		if c < 'A' || c > 'Z' {
			return r, Validation("currency must be a 3-letter ISO code")
		}
	}
	if !r.Amount.IsPositive() {
		return r, Validation("amount must be positive")
	}
	if strings.TrimSpace(r.PaymentMethodID) == "" {
		return r, Validation("payment method is required")
	}
	return r, nil
}

type RentalPayment struct {
	ID               int64           `json:"id"`
	RentalID         int64           `json:"rental_id"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency string          `json:"original_currency"`
	FxRateToEur      decimal.Decimal `json:"fx_rate_to_eur"`
	AmountEur        decimal.Decimal `json:"amount_eur"`
	Status           PaymentStatus   `json:"status"`
	GatewayReference string          `json:"gateway_reference"`
	PaidAt           time.Time       `json:"paid_at"`
}

type SalePayment struct {
	ID               int64           `json:"id"`
	PurchaseID       int64           `json:"purchase_id"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency string          `json:"original_currency"`
	FxRateToEur      decimal.Decimal `json:"fx_rate_to_eur"`
	AmountEur        decimal.Decimal `json:"amount_eur"`
	Status           PaymentStatus   `json:"status"`
	GatewayReference string          `json:"gateway_reference"`
	PaidAt           time.Time       `json:"paid_at"`
}
