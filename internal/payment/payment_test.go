package payment

import (
	"context"
	"errors"
	"testing"

	"bikeshare-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(19999), MinorUnits(decimal.RequireFromString("199.99")))
	assert.Equal(t, int64(751), MinorUnits(decimal.RequireFromString("7.505")))
	assert.Equal(t, int64(1000), MinorUnits(decimal.NewFromInt(10)))
}

func TestSimulatedGateway(t *testing.T) {
	ctx := context.Background()
	g := NewSimulatedGateway()
	amount := decimal.RequireFromString("10.00")

	t.Run("Authorize And Capture", func(t *testing.T) {
		auth, err := g.Authorize(ctx, "EUR", amount, "pm_card_visa", "purchase:1")
		require.NoError(t, err)
		assert.Equal(t, StatusAuthorized, auth.Status)

		res, err := g.Capture(ctx, auth.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, res.Status)
		assert.NotEmpty(t, res.PaymentID)

		again, err := g.Capture(ctx, auth.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, again.Status)
	})

	t.Run("Declined", func(t *testing.T) {
		auth, err := g.Authorize(ctx, "EUR", amount, "pm_decline_insufficient", "purchase:2")
		require.NoError(t, err)
		assert.Equal(t, StatusDeclined, auth.Status)
		assert.Equal(t, "card declined", auth.Message)
	})

	t.Run("Capture Fails", func(t *testing.T) {
		auth, err := g.Authorize(ctx, "EUR", amount, "pm_fail_capture", "purchase:3")
		require.NoError(t, err)
		res, err := g.Capture(ctx, auth.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, res.Status)
	})
}

type mockIntents struct {
	mock.Mock
}

func (m *mockIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

func (m *mockIntents) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	args := m.Called(id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

func (m *mockIntents) Capture(id string, params *stripe.PaymentIntentCaptureParams) (*stripe.PaymentIntent, error) {
	args := m.Called(id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

func TestStripeGateway_Authorize(t *testing.T) {
	ctx := context.Background()

	t.Run("Requires Capture", func(t *testing.T) {
		intents := new(mockIntents)
		g := &StripeGateway{intents: intents}
		intents.On("New", mock.MatchedBy(func(p *stripe.PaymentIntentParams) bool {
			return *p.Amount == 19999 && *p.Currency == "eur" && *p.CaptureMethod == "manual"
		})).Return(&stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusRequiresCapture}, nil)

		auth, err := g.Authorize(ctx, "EUR", decimal.RequireFromString("199.99"), "pm_card_visa", "purchase:1")
		require.NoError(t, err)
		assert.Equal(t, StatusAuthorized, auth.Status)
		assert.Equal(t, "pi_1", auth.ID)
		intents.AssertExpectations(t)
	})

	t.Run("Card Error Declines", func(t *testing.T) {
		intents := new(mockIntents)
		g := &StripeGateway{intents: intents}
		intents.On("New", mock.Anything).Return(nil, &stripe.Error{Type: stripe.ErrorTypeCard, Msg: "Your card was declined."})

		auth, err := g.Authorize(ctx, "EUR", decimal.NewFromInt(5), "pm_x", "rental:1")
		require.NoError(t, err)
		assert.Equal(t, StatusDeclined, auth.Status)
		assert.Equal(t, "Your card was declined.", auth.Message)
	})

	t.Run("Transport Error Is Transient", func(t *testing.T) {
		intents := new(mockIntents)
		g := &StripeGateway{intents: intents}
		intents.On("New", mock.Anything).Return(nil, errors.New("connection reset"))

		_, err := g.Authorize(ctx, "EUR", decimal.NewFromInt(5), "pm_x", "rental:1")
		assert.True(t, domain.IsTransient(err))
	})
}

func TestStripeGateway_Capture(t *testing.T) {
	ctx := context.Background()

	t.Run("Succeeded", func(t *testing.T) {
		intents := new(mockIntents)
		g := &StripeGateway{intents: intents}
		intents.On("Get", "pi_1", mock.Anything).Return(&stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusRequiresCapture}, nil)
		intents.On("Capture", "pi_1", mock.Anything).Return(&stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded}, nil)

		res, err := g.Capture(ctx, "pi_1")
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, res.Status)
	})

	t.Run("Not Capturable", func(t *testing.T) {
		intents := new(mockIntents)
		g := &StripeGateway{intents: intents}
		intents.On("Get", "pi_2", mock.Anything).Return(&stripe.PaymentIntent{ID: "pi_2", Status: stripe.PaymentIntentStatusCanceled}, nil)

		res, err := g.Capture(ctx, "pi_2")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, res.Status)
		assert.Equal(t, "Not capturable: canceled", res.Message)
		intents.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything)
	})
}
