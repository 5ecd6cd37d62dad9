package service

import (
	"context"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/payment"
	"bikeshare-backend/internal/repository"

	"github.com/google/uuid"
)

func utcNow() time.Time {
	return time.Now().UTC()
}

func requireCustomer(ctx context.Context, repos repository.Repositories, customerID uuid.UUID) error {
	ok, err := repos.Customers().Exists(ctx, customerID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("customer not found: %s", customerID)
	}
	return nil
}

// authorizeAndCapture runs both gateway phases. A decline or failed capture
// becomes a BusinessRule error carrying the gateway's message.
func authorizeAndCapture(ctx context.Context, gateway payment.Gateway, req domain.PaymentRequest, reference string) (*payment.Capture, error) {
	auth, err := gateway.Authorize(ctx, req.Currency, req.Amount, req.PaymentMethodID, reference)
	if err != nil {
		return nil, err
	}
	if auth.Status != payment.StatusAuthorized {
		return nil, domain.BusinessRule("payment not authorized: %s", auth.Message)
	}

	captured, err := gateway.Capture(ctx, auth.ID)
	if err != nil {
		return nil, err
	}
	if captured.Status != payment.StatusPaid {
		return nil, domain.BusinessRule("payment capture failed: %s", captured.Message)
	}
	return captured, nil
}
