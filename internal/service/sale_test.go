package service

import (
	"context"
	"sync"
	"testing"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// listedOffer rents and returns a fresh bike once, then lists it.
func (f *fixture) listedOffer(t *testing.T, price string) *domain.SaleOffer {
	t.Helper()
	ctx := context.Background()
	bikeID := f.bike("5.00")
	renter := f.customer(uuid.NewString())

	res, err := f.rentals.Rent(ctx, bikeID, renter, 1)
	require.NoError(t, err)
	_, err = f.rentals.ReturnBike(ctx, *res.RentalID, domain.ReturnRequest{AuthorCustomerID: renter})
	require.NoError(t, err)

	offer, err := f.sales.CreateSaleOffer(ctx, f.corp, bikeID, decimal.RequireFromString(price))
	require.NoError(t, err)
	return offer
}

func TestSaleService_PurchaseFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.customer("buyer")

	offer := f.listedOffer(t, "199.99")
	assert.Equal(t, domain.SaleOfferStatusListed, offer.Status)

	_, err := f.sales.AddToBasket(ctx, buyer, offer.ID)
	require.NoError(t, err)

	purchase, err := f.sales.Checkout(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseStatusCreated, purchase.Status)
	assert.Equal(t, "199.99", purchase.TotalAmountEur.StringFixed(2))
	require.Len(t, purchase.Items, 1)

	paid, err := f.sales.PayPurchase(ctx, buyer, purchase.ID, eur("199.99"))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, paid.Status)
	assert.Equal(t, "199.99", paid.AmountEur.StringFixed(2))

	got, err := f.sales.GetPurchase(ctx, buyer, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseStatusPaid, got.Status)
	assert.NotNil(t, got.PaidAt)

	sold, err := f.store.SaleOffers().GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleOfferStatusSold, sold.Status)
	require.NotNil(t, sold.BuyerID)
	assert.Equal(t, buyer, *sold.BuyerID)

	t.Run("Paid Purchase Cannot Be Paid Again", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := f.sales.PayPurchase(ctx, buyer, purchase.ID, eur("199.99"))
			assert.True(t, domain.IsBusinessRule(err))
			assert.Contains(t, err.Error(), "only CREATED purchases can be paid")
		}
		payments, err := f.store.Payments().ListSalePayments(ctx, purchase.ID)
		require.NoError(t, err)
		assert.Len(t, payments, 1)
	})

	t.Run("Sold Offer Leaves Listing", func(t *testing.T) {
		listed, err := f.sales.ListListedOffers(ctx)
		require.NoError(t, err)
		for _, o := range listed {
			assert.NotEqual(t, offer.ID, o.ID)
		}
	})
}

// Outcome under contention only; see
// TestSaleService_LocksOffersInIDOrderBeforeCharging for lock ordering.
func TestSaleService_NoDoubleSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := f.listedOffer(t, "50.00")
	buyers := []uuid.UUID{f.customer("x"), f.customer("y")}

	purchases := make([]*domain.Purchase, len(buyers))
	for i, b := range buyers {
		_, err := f.sales.AddToBasket(ctx, b, offer.ID)
		require.NoError(t, err)
		purchases[i], err = f.sales.Checkout(ctx, b)
		require.NoError(t, err)
	}

	errs := make([]error, len(buyers))
	var wg sync.WaitGroup
	for i := range buyers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.sales.PayPurchase(ctx, buyers[i], purchases[i].ID, eur("50.00"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, domain.IsBusinessRule(err))
		assert.Contains(t, err.Error(), "offer no longer available")
	}
	assert.Equal(t, 1, succeeded)

	sold, err := f.store.SaleOffers().GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleOfferStatusSold, sold.Status)
}

func TestSaleService_PayPurchaseRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.customer("buyer")
	offer := f.listedOffer(t, "100.00")

	_, err := f.sales.AddToBasket(ctx, buyer, offer.ID)
	require.NoError(t, err)
	purchase, err := f.sales.Checkout(ctx, buyer)
	require.NoError(t, err)

	assertUntouched := func(t *testing.T) {
		t.Helper()
		p, err := f.store.Purchases().GetByID(ctx, purchase.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PurchaseStatusCreated, p.Status)
		o, err := f.store.SaleOffers().GetByID(ctx, offer.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SaleOfferStatusListed, o.Status)
		payments, err := f.store.Payments().ListSalePayments(ctx, purchase.ID)
		require.NoError(t, err)
		assert.Empty(t, payments)
	}

	t.Run("Insufficient Amount", func(t *testing.T) {
		req := eur("124.99")
		req.Currency = "USD"
		_, err := f.sales.PayPurchase(ctx, buyer, purchase.ID, req)
		assert.True(t, domain.IsBusinessRule(err))
		assert.Contains(t, err.Error(), "insufficient amount")
		assert.True(t, domain.IsInputRule(err))
		assertUntouched(t)
	})

	t.Run("Wrong Owner", func(t *testing.T) {
		other := f.customer("other")
		_, err := f.sales.PayPurchase(ctx, other, purchase.ID, eur("100.00"))
		assert.True(t, domain.IsBusinessRule(err))
		assert.Contains(t, err.Error(), "purchase does not belong to customer")
		assertUntouched(t)
	})

	t.Run("Declined", func(t *testing.T) {
		req := eur("100.00")
		req.PaymentMethodID = "pm_decline_generic"
		_, err := f.sales.PayPurchase(ctx, buyer, purchase.ID, req)
		assert.True(t, domain.IsBusinessRule(err))
		assert.Contains(t, err.Error(), "payment not authorized")
		assertUntouched(t)
	})

	t.Run("Capture Failure", func(t *testing.T) {
		req := eur("100.00")
		req.PaymentMethodID = "pm_fail_capture"
		_, err := f.sales.PayPurchase(ctx, buyer, purchase.ID, req)
		assert.True(t, domain.IsBusinessRule(err))
		assert.Contains(t, err.Error(), "payment capture failed")
		assertUntouched(t)
	})

	t.Run("Unknown Purchase", func(t *testing.T) {
		_, err := f.sales.PayPurchase(ctx, buyer, 987654, eur("100.00"))
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("Overpayment In Foreign Currency", func(t *testing.T) {
		req := eur("125.00")
		req.Currency = "usd"
		paid, err := f.sales.PayPurchase(ctx, buyer, purchase.ID, req)
		require.NoError(t, err)
		assert.Equal(t, "100.00", paid.AmountEur.StringFixed(2))
		assert.Equal(t, "USD", paid.OriginalCurrency)
	})
}

func TestSaleService_GatewayNotCalledForUnavailableOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gateway := new(MockGateway)
	sales := NewSaleService(f.store, f.fx, gateway, nil)
	offer := f.listedOffer(t, "80.00")
	first, second := f.customer("first"), f.customer("second")

	var purchases []*domain.Purchase
	for _, c := range []uuid.UUID{first, second} {
		_, err := sales.AddToBasket(ctx, c, offer.ID)
		require.NoError(t, err)
		p, err := sales.Checkout(ctx, c)
		require.NoError(t, err)
		purchases = append(purchases, p)
	}

	gateway.On("Authorize", mock.Anything, "EUR", mock.Anything, "pm_card_visa", "purchase:"+itoa(purchases[0].ID)).
		Return(&paymentAuthorized, nil).Once()
	gateway.On("Capture", mock.Anything, paymentAuthorized.ID).Return(&paymentCaptured, nil).Once()

	_, err := sales.PayPurchase(ctx, first, purchases[0].ID, eur("80.00"))
	require.NoError(t, err)

	_, err = sales.PayPurchase(ctx, second, purchases[1].ID, eur("80.00"))
	assert.True(t, domain.IsBusinessRule(err))
	gateway.AssertExpectations(t)
	gateway.AssertNumberOfCalls(t, "Authorize", 1)
}

func TestSaleService_TransientGatewayFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gateway := new(MockGateway)
	sales := NewSaleService(f.store, f.fx, gateway, nil)
	buyer := f.customer("buyer")
	offer := f.listedOffer(t, "10.00")

	_, err := sales.AddToBasket(ctx, buyer, offer.ID)
	require.NoError(t, err)
	purchase, err := sales.Checkout(ctx, buyer)
	require.NoError(t, err)

	gateway.On("Authorize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.Transient(nil, "payment processor unavailable"))

	_, err = sales.PayPurchase(ctx, buyer, purchase.ID, eur("10.00"))
	assert.True(t, domain.IsTransient(err))

	gateway.ExpectedCalls = nil
	gateway.On("Authorize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&payment.Authorization{ID: "auth_retry", Status: payment.StatusAuthorized}, nil)
	gateway.On("Capture", mock.Anything, "auth_retry").
		Return(&payment.Capture{PaymentID: "pay_retry", Status: payment.StatusPaid}, nil)

	paid, err := sales.PayPurchase(ctx, buyer, purchase.ID, eur("10.00"))
	require.NoError(t, err)
	assert.Equal(t, "pay_retry", paid.GatewayReference)
}

func TestSaleService_Checkout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.customer("buyer")

	t.Run("No Basket", func(t *testing.T) {
		_, err := f.sales.Checkout(ctx, buyer)
		assert.True(t, domain.IsBusinessRule(err))
		assert.Contains(t, err.Error(), "basket empty")
	})

	t.Run("Unknown Customer", func(t *testing.T) {
		_, err := f.sales.Checkout(ctx, uuid.New())
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("Sums Snapshots And Closes Basket", func(t *testing.T) {
		a := f.listedOffer(t, "10.10")
		b := f.listedOffer(t, "20.20")
		_, err := f.sales.AddToBasket(ctx, buyer, b.ID)
		require.NoError(t, err)
		_, err = f.sales.AddToBasket(ctx, buyer, a.ID)
		require.NoError(t, err)

		_, err = f.sales.AddToBasket(ctx, buyer, a.ID)
		assert.True(t, domain.IsBusinessRule(err))

		purchase, err := f.sales.Checkout(ctx, buyer)
		require.NoError(t, err)
		assert.Equal(t, "30.30", purchase.TotalAmountEur.StringFixed(2))
		require.Len(t, purchase.Items, 2)
		assert.Equal(t, b.ID, purchase.Items[0].OfferID)

		_, err = f.sales.Checkout(ctx, buyer)
		assert.Contains(t, err.Error(), "basket empty")
	})

	t.Run("Sold Offer Rejected", func(t *testing.T) {
		offer := f.listedOffer(t, "5.00")
		first, second := f.customer("first"), f.customer("second")
		_, err := f.sales.AddToBasket(ctx, first, offer.ID)
		require.NoError(t, err)
		_, err = f.sales.AddToBasket(ctx, second, offer.ID)
		require.NoError(t, err)

		p, err := f.sales.Checkout(ctx, first)
		require.NoError(t, err)
		_, err = f.sales.PayPurchase(ctx, first, p.ID, eur("5.00"))
		require.NoError(t, err)

		_, err = f.sales.Checkout(ctx, second)
		assert.True(t, domain.IsBusinessRule(err))
		assert.Contains(t, err.Error(), "offer no longer available")

		basket, err := f.store.Baskets().LockOpenByCustomer(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, domain.BasketStatusOpen, basket.Status)
	})
}

func TestSaleService_CreateSaleOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Requires Rental History", func(t *testing.T) {
		bikeID := f.bike("1.00")
		_, err := f.sales.CreateSaleOffer(ctx, f.corp, bikeID, decimal.NewFromInt(10))
		assert.True(t, domain.IsBusinessRule(err))
		assert.Contains(t, err.Error(), "rented at least once")
	})

	t.Run("One Offer Per Bike", func(t *testing.T) {
		offer := f.listedOffer(t, "10.00")
		_, err := f.sales.CreateSaleOffer(ctx, f.corp, offer.BikeID, decimal.NewFromInt(12))
		assert.True(t, domain.IsBusinessRule(err))
		assert.Contains(t, err.Error(), "already has a sale offer")
	})

	t.Run("Non Positive Price", func(t *testing.T) {
		_, err := f.sales.CreateSaleOffer(ctx, f.corp, f.bike("1.00"), decimal.Zero)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Unknown Bike", func(t *testing.T) {
		_, err := f.sales.CreateSaleOffer(ctx, f.corp, 555555, decimal.NewFromInt(1))
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestEligibilityPolicies(t *testing.T) {
	corp := domain.ProviderRef{Kind: domain.ProviderKindCorp, ID: uuid.New()}
	student := domain.ProviderRef{Kind: domain.ProviderKindStudent, ID: uuid.New()}
	corpBike := &domain.Bike{ID: 1, Provider: corp}
	studentBike := &domain.Bike{ID: 2, Provider: student}

	strict, err := LookupEligibilityPolicy("")
	require.NoError(t, err)
	loose, err := LookupEligibilityPolicy(PolicyOwnerWithHistory)
	require.NoError(t, err)

	tests := []struct {
		name    string
		policy  EligibilityPolicy
		seller  domain.ProviderRef
		bike    *domain.Bike
		rentals int64
		wantErr string
	}{
		{"corp owner with history", strict, corp, corpBike, 3, ""},
		{"corp without history", strict, corp, corpBike, 0, "rented at least once"},
		{"student owner under strict policy", strict, student, studentBike, 2, "only the corporate fleet"},
		{"student owner under owner policy", loose, student, studentBike, 2, ""},
		{"non owner under owner policy", loose, student, corpBike, 2, "your own bikes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy(tt.seller, tt.bike, tt.rentals)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, domain.IsBusinessRule(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err = LookupEligibilityPolicy("anyone")
	assert.Error(t, err)
}
