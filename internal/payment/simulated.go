package payment

import (
	"context"
	"strings"
	"sync"

	"bikeshare-backend/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	declinePrefix     = "pm_decline"
	failCapturePrefix = "pm_fail_capture"
)

// SimulatedGateway approves everything except payment methods whose id
// starts with "pm_decline" (declined at authorize) or "pm_fail_capture"
// (authorized, then failed at capture).
type SimulatedGateway struct {
	mu      sync.Mutex
	pending map[string]string
}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{pending: map[string]string{}}
}

func (g *SimulatedGateway) Authorize(_ context.Context, currency string, amount decimal.Decimal, paymentMethodID, reference string) (*Authorization, error) {
	logger.ExternalServiceCall("simulated-gateway", "Authorize",
		"currency", currency, "amount", amount.String(), "reference", reference)

	if strings.HasPrefix(paymentMethodID, declinePrefix) {
		return &Authorization{Status: StatusDeclined, Message: "card declined"}, nil
	}

	id := "auth_" + uuid.NewString()
	g.mu.Lock()
	g.pending[id] = paymentMethodID
	g.mu.Unlock()
	return &Authorization{ID: id, Status: StatusAuthorized, Message: "Funds authorized."}, nil
}

func (g *SimulatedGateway) Capture(_ context.Context, authorizationID string) (*Capture, error) {
	logger.ExternalServiceCall("simulated-gateway", "Capture", "authorizationID", authorizationID)

	g.mu.Lock()
	method, ok := g.pending[authorizationID]
	delete(g.pending, authorizationID)
	g.mu.Unlock()

	switch {
	case !ok:
		return &Capture{Status: StatusFailed, Message: "Not capturable: unknown authorization"}, nil
	case strings.HasPrefix(method, failCapturePrefix):
		return &Capture{PaymentID: authorizationID, Status: StatusFailed, Message: "capture rejected by processor"}, nil
	}
	return &Capture{PaymentID: "pay_" + strings.TrimPrefix(authorizationID, "auth_"), Status: StatusPaid, Message: "Payment captured."}, nil
}
