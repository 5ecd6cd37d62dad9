package service

import (
	"context"
	"fmt"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/fx"
	"bikeshare-backend/internal/logger"
	"bikeshare-backend/internal/metrics"
	"bikeshare-backend/internal/payment"
	"bikeshare-backend/internal/repository"

	"github.com/google/uuid"
)

// DefaultHandoffDays is the length of a rental created for a waiting customer
// when a bike comes back. No payment is collected for it up front.
const DefaultHandoffDays = 1

type rentalService struct {
	store       repository.Store
	converter   fx.Converter
	gateway     payment.Gateway
	handoffDays int
	now         func() time.Time
}

func NewRentalService(store repository.Store, converter fx.Converter, gateway payment.Gateway, handoffDays int) RentalService {
	if handoffDays < 1 {
		handoffDays = DefaultHandoffDays
	}
	return &rentalService{
		store:       store,
		converter:   converter,
		gateway:     gateway,
		handoffDays: handoffDays,
		now:         utcNow,
	}
}

func (s *rentalService) Rent(ctx context.Context, bikeID int64, customerID uuid.UUID, days int) (result *domain.RentResult, err error) {
	logger.EnterMethod("rentalService.Rent", "bikeID", bikeID, "customerID", customerID, "days", days)
	defer func() { metrics.ObserveError("rent", err) }()

	if days < 1 {
		return nil, domain.Validation("days must be at least 1")
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := requireCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		bike, err := tx.Bikes().LockForUpdate(ctx, bikeID)
		if err != nil {
			return err
		}
		active, err := tx.Rentals().ExistsActiveForBike(ctx, bikeID)
		if err != nil {
			return err
		}

		now := s.now()
		if bike.Status == domain.BikeStatusAvailable && !active {
			rental := &domain.Rental{
				BikeID:         bikeID,
				CustomerID:     customerID,
				Status:         domain.RentalStatusActive,
				StartAt:        now,
				TotalAmountEur: bike.RentalTotal(days),
			}
			if err := tx.Rentals().Create(ctx, rental); err != nil {
				return err
			}
			if err := tx.Bikes().UpdateStatus(ctx, bikeID, domain.BikeStatusRented); err != nil {
				return err
			}
			result = &domain.RentResult{Outcome: domain.RentOutcomeRented, RentalID: &rental.ID, Message: "Bike rented successfully."}
			return nil
		}

		entry, err := joinWaitingList(ctx, tx, bikeID, customerID, now)
		if err != nil {
			return err
		}
		result = &domain.RentResult{
			Outcome: domain.RentOutcomeWaitlisted,
			EntryID: &entry.ID,
			Message: "Bike not available. You have been added to the waiting list.",
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.Rent", err, "bikeID", bikeID)
		return nil, err
	}

	if result.Outcome == domain.RentOutcomeRented {
		metrics.RentalsStartedTotal.WithLabelValues("direct").Inc()
		logger.Info("Bike rented", "bikeID", bikeID, "customerID", customerID, "rentalID", *result.RentalID)
	}
	logger.ExitMethod("rentalService.Rent", "bikeID", bikeID, "outcome", result.Outcome)
	return result, nil
}

func (s *rentalService) ReturnBike(ctx context.Context, rentalID int64, req domain.ReturnRequest) (result *domain.ReturnResult, err error) {
	logger.EnterMethod("rentalService.ReturnBike", "rentalID", rentalID, "authorID", req.AuthorCustomerID)
	defer func() { metrics.ObserveError("return_bike", err) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		rental, err := tx.Rentals().GetByID(ctx, rentalID)
		if err != nil {
			return err
		}
		if rental.Status != domain.RentalStatusActive {
			return domain.BusinessRule("only ACTIVE rentals can be returned")
		}
		if err := requireCustomer(ctx, tx, req.AuthorCustomerID); err != nil {
			return err
		}

		bike, err := tx.Bikes().LockForUpdate(ctx, rental.BikeID)
		if err != nil {
			return err
		}
		// A concurrent return may have closed the rental while we waited.
		rental, err = tx.Rentals().GetByID(ctx, rentalID)
		if err != nil {
			return err
		}
		if rental.Status != domain.RentalStatusActive {
			return domain.BusinessRule("only ACTIVE rentals can be returned")
		}
		noted, err := tx.ReturnNotes().ExistsForRental(ctx, rentalID)
		if err != nil {
			return err
		}
		if noted {
			return domain.BusinessRule("a return note already exists for this rental")
		}

		now := s.now()
		if err := tx.Rentals().Close(ctx, rentalID, now); err != nil {
			return err
		}
		rental.Status = domain.RentalStatusClosed
		rental.EndAt = &now

		note := &domain.ReturnNote{
			RentalID:  rentalID,
			AuthorID:  req.AuthorCustomerID,
			Comment:   req.Comment,
			Condition: req.Condition,
			CreatedAt: now,
		}
		if err := tx.ReturnNotes().Create(ctx, note); err != nil {
			return err
		}

		// The returning customer is never handed their own bike back.
		own, err := tx.WaitingLists().FindUnservedByCustomer(ctx, bike.ID, rental.CustomerID)
		if err != nil {
			return err
		}
		if own != nil {
			if err := tx.WaitingLists().MarkServed(ctx, own.ID, now); err != nil {
				return err
			}
		}

		if err := tx.Bikes().UpdateStatus(ctx, bike.ID, domain.BikeStatusAvailable); err != nil {
			return err
		}
		result = &domain.ReturnResult{ClosedRental: *rental}

		next, err := takeNext(ctx, tx, bike.ID)
		if err != nil || next == nil {
			return err
		}
		return s.handOff(ctx, tx, bike, next, now, result)
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.ReturnBike", err, "rentalID", rentalID)
		return nil, err
	}

	metrics.BikeReturnsTotal.Inc()
	if result.NextRental != nil {
		metrics.RentalsStartedTotal.WithLabelValues("handoff").Inc()
		logger.Info("Bike handed off to waiting customer",
			"bikeID", result.NextRental.BikeID,
			"customerID", result.NextRental.CustomerID,
			"rentalID", result.NextRental.ID,
			"notificationID", result.Notification.ID)
	} else {
		logger.Info("Bike returned", "rentalID", rentalID, "bikeID", result.ClosedRental.BikeID)
	}
	logger.ExitMethod("rentalService.ReturnBike", "rentalID", rentalID)
	return result, nil
}

func (s *rentalService) handOff(ctx context.Context, tx repository.Repositories, bike *domain.Bike, entry *domain.WaitingListEntry, now time.Time, result *domain.ReturnResult) error {
	next := &domain.Rental{
		BikeID:         bike.ID,
		CustomerID:     entry.CustomerID,
		Status:         domain.RentalStatusActive,
		StartAt:        now,
		TotalAmountEur: bike.RentalTotal(s.handoffDays),
	}
	if err := tx.Rentals().Create(ctx, next); err != nil {
		return err
	}
	if err := tx.Bikes().UpdateStatus(ctx, bike.ID, domain.BikeStatusRented); err != nil {
		return err
	}
	if err := tx.WaitingLists().MarkServed(ctx, entry.ID, now); err != nil {
		return err
	}

	note := &domain.Notification{
		EntryID:    entry.ID,
		CustomerID: entry.CustomerID,
		BikeID:     bike.ID,
		Message:    domain.HandoffMessage(bike.ID),
		SentAt:     now,
	}
	if err := tx.Notifications().Create(ctx, note); err != nil {
		return err
	}

	result.NextRental = next
	result.Notification = note
	return nil
}

func (s *rentalService) PayRental(ctx context.Context, rentalID int64, req domain.PaymentRequest) (paid *domain.RentalPayment, err error) {
	logger.EnterMethod("rentalService.PayRental", "rentalID", rentalID, "currency", req.Currency)
	defer func() {
		metrics.RentalPaymentsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
		metrics.ObserveError("pay_rental", err)
	}()

	req, err = req.Normalize()
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		rental, err := tx.Rentals().GetByID(ctx, rentalID)
		if err != nil {
			return err
		}
		if rental.Status != domain.RentalStatusActive {
			return domain.BusinessRule("only ACTIVE rentals can be paid")
		}

		rate, amountEur, err := fx.Convert(ctx, s.converter, req.Amount, req.Currency)
		if err != nil {
			return err
		}
		captured, err := authorizeAndCapture(ctx, s.gateway, req, fmt.Sprintf("rental:%d", rentalID))
		if err != nil {
			return err
		}

		paid = &domain.RentalPayment{
			RentalID:         rentalID,
			OriginalAmount:   req.Amount,
			OriginalCurrency: req.Currency,
			FxRateToEur:      rate,
			AmountEur:        amountEur,
			Status:           domain.PaymentStatusPaid,
			GatewayReference: captured.PaymentID,
			PaidAt:           s.now(),
		}
		return tx.Payments().CreateRentalPayment(ctx, paid)
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.PayRental", err, "rentalID", rentalID)
		return nil, err
	}

	logger.Info("Rental payment captured", "rentalID", rentalID, "paymentID", paid.GatewayReference, "amountEur", paid.AmountEur.String())
	return paid, nil
}

func (s *rentalService) ListRentalPayments(ctx context.Context, rentalID int64) ([]domain.RentalPayment, error) {
	if _, err := s.store.Rentals().GetByID(ctx, rentalID); err != nil {
		return nil, err
	}
	return s.store.Payments().ListRentalPayments(ctx, rentalID)
}

func (s *rentalService) ListMyRentals(ctx context.Context, customerID uuid.UUID) ([]domain.Rental, error) {
	if err := requireCustomer(ctx, s.store, customerID); err != nil {
		return nil, err
	}
	return s.store.Rentals().ListByCustomer(ctx, customerID)
}

func (s *rentalService) ListMyWaitlist(ctx context.Context, customerID uuid.UUID) ([]domain.WaitingListEntry, error) {
	if err := requireCustomer(ctx, s.store, customerID); err != nil {
		return nil, err
	}
	return s.store.WaitingLists().ListUnservedByCustomer(ctx, customerID)
}

func (s *rentalService) ListMyNotifications(ctx context.Context, customerID uuid.UUID) ([]domain.Notification, error) {
	if err := requireCustomer(ctx, s.store, customerID); err != nil {
		return nil, err
	}
	return s.store.Notifications().ListByCustomer(ctx, customerID)
}
