// Package payment holds the two-phase payment gateway port and its
// implementations.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type AuthorizationStatus string

const (
	StatusAuthorized AuthorizationStatus = "AUTHORIZED"
	StatusDeclined   AuthorizationStatus = "DECLINED"
)

type CaptureStatus string

const (
	StatusPaid   CaptureStatus = "PAID"
	StatusFailed CaptureStatus = "FAILED"
)

type Authorization struct {
	ID      string
	Status  AuthorizationStatus
	Message string
}

type Capture struct {
	PaymentID string
	Status    CaptureStatus
	Message   string
}

// Gateway authorizes funds and later captures them. A declined authorization
// or failed capture is reported through the result status; a returned error
// means the processor could not be reached or answered unexpectedly.
type Gateway interface {
	Authorize(ctx context.Context, currency string, amount decimal.Decimal, paymentMethodID, reference string) (*Authorization, error)
	Capture(ctx context.Context, authorizationID string) (*Capture, error)
}

// MinorUnits converts a two-decimal amount into the processor's integer
// representation.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}
