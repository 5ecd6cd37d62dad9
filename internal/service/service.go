package service

import (
	"context"

	"bikeshare-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RentalService interface {
	Rent(ctx context.Context, bikeID int64, customerID uuid.UUID, days int) (*domain.RentResult, error)
	ReturnBike(ctx context.Context, rentalID int64, req domain.ReturnRequest) (*domain.ReturnResult, error)
	PayRental(ctx context.Context, rentalID int64, req domain.PaymentRequest) (*domain.RentalPayment, error)
	ListRentalPayments(ctx context.Context, rentalID int64) ([]domain.RentalPayment, error)
	ListMyRentals(ctx context.Context, customerID uuid.UUID) ([]domain.Rental, error)
	ListMyWaitlist(ctx context.Context, customerID uuid.UUID) ([]domain.WaitingListEntry, error)
	ListMyNotifications(ctx context.Context, customerID uuid.UUID) ([]domain.Notification, error)
}

type WaitingListService interface {
	Join(ctx context.Context, bikeID int64, customerID uuid.UUID) (*domain.WaitingListEntry, error)
	// PeekNext returns the entry the next hand-off would serve, or nil.
	PeekNext(ctx context.Context, bikeID int64) (*domain.WaitingListEntry, error)
}

type SaleService interface {
	CreateSaleOffer(ctx context.Context, seller domain.ProviderRef, bikeID int64, askingPriceEur decimal.Decimal) (*domain.SaleOffer, error)
	ListListedOffers(ctx context.Context) ([]domain.SaleOffer, error)
	AddToBasket(ctx context.Context, customerID uuid.UUID, offerID int64) (*domain.BasketItem, error)
	Checkout(ctx context.Context, customerID uuid.UUID) (*domain.Purchase, error)
	PayPurchase(ctx context.Context, customerID uuid.UUID, purchaseID int64, req domain.PaymentRequest) (*domain.SalePayment, error)
	GetPurchase(ctx context.Context, customerID uuid.UUID, purchaseID int64) (*domain.Purchase, error)
}
