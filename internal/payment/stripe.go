package payment

import (
	"context"
	"errors"
	"strings"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
)

// intentClient is the subset of the Stripe PaymentIntent API the gateway
// needs. *paymentintent.Client satisfies it.
type intentClient interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Capture(id string, params *stripe.PaymentIntentCaptureParams) (*stripe.PaymentIntent, error)
}

// StripeGateway authorizes with a manual-capture PaymentIntent and captures
// it on demand.
type StripeGateway struct {
	intents intentClient
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{
		intents: &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
	}
}

func (g *StripeGateway) Authorize(ctx context.Context, currency string, amount decimal.Decimal, paymentMethodID, reference string) (*Authorization, error) {
	logger.ExternalServiceCall("stripe", "PaymentIntent.New", "currency", currency, "reference", reference)

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(MinorUnits(amount)),
		Currency:      stripe.String(strings.ToLower(currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		PaymentMethod: stripe.String(paymentMethodID),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	params.AddMetadata("reference", reference)

	pi, err := g.intents.New(params)
	logger.ExternalServiceResult("stripe", "PaymentIntent.New", err, "reference", reference)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
			return &Authorization{Status: StatusDeclined, Message: se.Msg}, nil
		}
		return nil, domain.Transient(err, "payment processor unavailable")
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusRequiresCapture:
		return &Authorization{ID: pi.ID, Status: StatusAuthorized, Message: "Funds authorized."}, nil
	case stripe.PaymentIntentStatusRequiresAction:
		return &Authorization{ID: pi.ID, Status: StatusDeclined, Message: "3DS authentication required."}, nil
	}
	return &Authorization{ID: pi.ID, Status: StatusDeclined, Message: "Authorization failed: " + string(pi.Status)}, nil
}

func (g *StripeGateway) Capture(ctx context.Context, authorizationID string) (*Capture, error) {
	logger.ExternalServiceCall("stripe", "PaymentIntent.Capture", "authorizationID", authorizationID)

	getParams := &stripe.PaymentIntentParams{}
	getParams.Context = ctx
	pi, err := g.intents.Get(authorizationID, getParams)
	if err != nil {
		logger.ExternalServiceResult("stripe", "PaymentIntent.Get", err, "authorizationID", authorizationID)
		return nil, domain.Transient(err, "payment processor unavailable")
	}
	if pi.Status != stripe.PaymentIntentStatusRequiresCapture {
		return &Capture{PaymentID: pi.ID, Status: StatusFailed, Message: "Not capturable: " + string(pi.Status)}, nil
	}

	captureParams := &stripe.PaymentIntentCaptureParams{}
	captureParams.Context = ctx
	captured, err := g.intents.Capture(authorizationID, captureParams)
	logger.ExternalServiceResult("stripe", "PaymentIntent.Capture", err, "authorizationID", authorizationID)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
			return &Capture{PaymentID: authorizationID, Status: StatusFailed, Message: se.Msg}, nil
		}
		return nil, domain.Transient(err, "payment processor unavailable")
	}
	if captured.Status != stripe.PaymentIntentStatusSucceeded {
		return &Capture{PaymentID: captured.ID, Status: StatusFailed, Message: "Capture failed: " + string(captured.Status)}, nil
	}
	return &Capture{PaymentID: captured.ID, Status: StatusPaid, Message: "Payment captured."}, nil
}
