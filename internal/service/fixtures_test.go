package service

import (
	"context"
	"strconv"
	"testing"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/fx"
	"bikeshare-backend/internal/payment"
	"bikeshare-backend/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type fixture struct {
	store   *memory.Store
	fx      *fx.Service
	gateway *payment.SimulatedGateway
	rentals RentalService
	sales   SaleService
	corp    domain.ProviderRef
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(0)
	converter := fx.NewService(fx.NewStaticProviderWithRates(map[string]decimal.Decimal{
		"USD": decimal.RequireFromString("1.25"),
		"GBP": decimal.RequireFromString("0.80"),
	}), 0, 0)
	gateway := payment.NewSimulatedGateway()
	return &fixture{
		store:   store,
		fx:      converter,
		gateway: gateway,
		rentals: NewRentalService(store, converter, gateway, DefaultHandoffDays),
		sales:   NewSaleService(store, converter, gateway, nil),
		corp:    domain.ProviderRef{Kind: domain.ProviderKindCorp, ID: uuid.New()},
	}
}

func (f *fixture) customer(name string) uuid.UUID {
	return f.store.AddCustomer(domain.Customer{Email: name + "@example.com", FullName: name}).ID
}

func (f *fixture) bike(rate string) int64 {
	return f.store.AddBike(domain.Bike{
		Description:  "city bike",
		DailyRateEur: decimal.RequireFromString(rate),
		Provider:     f.corp,
	}).ID
}

func eur(s string) domain.PaymentRequest {
	return domain.PaymentRequest{Amount: decimal.RequireFromString(s), Currency: "EUR", PaymentMethodID: "pm_card_visa"}
}

// MockGateway records gateway calls so tests can assert nothing was charged.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Authorize(ctx context.Context, currency string, amount decimal.Decimal, paymentMethodID, reference string) (*payment.Authorization, error) {
	args := m.Called(ctx, currency, amount, paymentMethodID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Authorization), args.Error(1)
}

func (m *MockGateway) Capture(ctx context.Context, authorizationID string) (*payment.Capture, error) {
	args := m.Called(ctx, authorizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Capture), args.Error(1)
}

var (
	paymentAuthorized = payment.Authorization{ID: "auth_1", Status: payment.StatusAuthorized, Message: "Funds authorized."}
	paymentCaptured   = payment.Capture{PaymentID: "pay_1", Status: payment.StatusPaid, Message: "Payment captured."}
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
