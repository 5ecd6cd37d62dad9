package repository

import (
	"context"
	"time"

	"bikeshare-backend/internal/domain"

	"github.com/google/uuid"
)

// Lookups of a single row return a domain NotFound error when the row is
// absent. Methods named LockForUpdate take a pessimistic write lock that is
// held until the surrounding transaction ends.

type CustomerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type BikeRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Bike, error)
	LockForUpdate(ctx context.Context, id int64) (*domain.Bike, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BikeStatus) error
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id int64) (*domain.Rental, error)
	Close(ctx context.Context, id int64, endAt time.Time) error
	ExistsActiveForBike(ctx context.Context, bikeID int64) (bool, error)
	CountByBike(ctx context.Context, bikeID int64) (int64, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Rental, error)
}

type WaitingListRepository interface {
	GetByBike(ctx context.Context, bikeID int64) (*domain.WaitingList, error)
	// CreateIfAbsent inserts the list for the bike and reports whether this
	// call created it. A false return with a nil error means another
	// transaction won the race and the caller must look the list up again.
	CreateIfAbsent(ctx context.Context, list *domain.WaitingList) (bool, error)
	HasUnservedEntry(ctx context.Context, listID int64, customerID uuid.UUID) (bool, error)
	CreateEntry(ctx context.Context, entry *domain.WaitingListEntry) error
	// NextUnserved returns the oldest unserved entry for the bike ordered by
	// (created_at, id), or nil when nobody is waiting.
	NextUnserved(ctx context.Context, bikeID int64) (*domain.WaitingListEntry, error)
	FindUnservedByCustomer(ctx context.Context, bikeID int64, customerID uuid.UUID) (*domain.WaitingListEntry, error)
	MarkServed(ctx context.Context, entryID int64, servedAt time.Time) error
	ListUnservedByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.WaitingListEntry, error)
}

type ReturnNoteRepository interface {
	ExistsForRental(ctx context.Context, rentalID int64) (bool, error)
	Create(ctx context.Context, note *domain.ReturnNote) error
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Notification, error)
	ListUnpublished(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkPublished(ctx context.Context, id int64, publishedAt time.Time) error
}

type PaymentRepository interface {
	CreateRentalPayment(ctx context.Context, payment *domain.RentalPayment) error
	ListRentalPayments(ctx context.Context, rentalID int64) ([]domain.RentalPayment, error)
	CreateSalePayment(ctx context.Context, payment *domain.SalePayment) error
	ListSalePayments(ctx context.Context, purchaseID int64) ([]domain.SalePayment, error)
}

type SaleOfferRepository interface {
	Create(ctx context.Context, offer *domain.SaleOffer) error
	GetByID(ctx context.Context, id int64) (*domain.SaleOffer, error)
	ExistsForBike(ctx context.Context, bikeID int64) (bool, error)
	LockForUpdate(ctx context.Context, id int64) (*domain.SaleOffer, error)
	MarkSold(ctx context.Context, id int64, buyerID uuid.UUID, soldAt time.Time) error
	ListListed(ctx context.Context) ([]domain.SaleOffer, error)
}

type BasketRepository interface {
	// LockOpenByCustomer returns the customer's OPEN basket locked for update.
	LockOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Basket, error)
	Create(ctx context.Context, basket *domain.Basket) error
	ListItems(ctx context.Context, basketID int64) ([]domain.BasketItem, error)
	AddItem(ctx context.Context, item *domain.BasketItem) error
	Close(ctx context.Context, basketID int64, at time.Time) error
}

type PurchaseRepository interface {
	// Create stores the purchase together with its items.
	Create(ctx context.Context, purchase *domain.Purchase) error
	GetByID(ctx context.Context, id int64) (*domain.Purchase, error)
	LockForUpdate(ctx context.Context, id int64) (*domain.Purchase, error)
	MarkPaid(ctx context.Context, id int64, paidAt time.Time) error
}

// Repositories groups every repository bound to one connection or
// transaction.
type Repositories interface {
	Customers() CustomerRepository
	Bikes() BikeRepository
	Rentals() RentalRepository
	WaitingLists() WaitingListRepository
	ReturnNotes() ReturnNoteRepository
	Notifications() NotificationRepository
	Payments() PaymentRepository
	SaleOffers() SaleOfferRepository
	Baskets() BasketRepository
	Purchases() PurchaseRepository
}

// Store is the storage port consumed by the services. Reads outside a
// transaction go through the embedded Repositories; every multi-step
// operation runs inside WithinTx, which commits when fn returns nil and rolls
// back otherwise.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
	Ping(ctx context.Context) error
}
