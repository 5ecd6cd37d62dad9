package service

import (
	"context"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"
	"bikeshare-backend/internal/metrics"
	"bikeshare-backend/internal/repository"

	"github.com/google/uuid"
)

type waitingListService struct {
	store repository.Store
	now   func() time.Time
}

func NewWaitingListService(store repository.Store) WaitingListService {
	return &waitingListService{store: store, now: utcNow}
}

func (s *waitingListService) Join(ctx context.Context, bikeID int64, customerID uuid.UUID) (entry *domain.WaitingListEntry, err error) {
	defer func() { metrics.ObserveError("join_waitlist", err) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := requireCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		if _, err := tx.Bikes().GetByID(ctx, bikeID); err != nil {
			return err
		}
		entry, err = joinWaitingList(ctx, tx, bikeID, customerID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *waitingListService) PeekNext(ctx context.Context, bikeID int64) (*domain.WaitingListEntry, error) {
	return takeNext(ctx, s.store, bikeID)
}

// joinWaitingList appends customerID to the bike's queue inside tx, creating
// the queue on first use. Concurrent creators converge on a single list.
func joinWaitingList(ctx context.Context, tx repository.Repositories, bikeID int64, customerID uuid.UUID, at time.Time) (*domain.WaitingListEntry, error) {
	list, err := waitingListFor(ctx, tx, bikeID, at)
	if err != nil {
		return nil, err
	}

	waiting, err := tx.WaitingLists().HasUnservedEntry(ctx, list.ID, customerID)
	if err != nil {
		return nil, err
	}
	if waiting {
		return nil, domain.BusinessRule("already waiting for this bike")
	}

	entry := &domain.WaitingListEntry{
		WaitingListID: list.ID,
		BikeID:        bikeID,
		CustomerID:    customerID,
		CreatedAt:     at,
	}
	if err := tx.WaitingLists().CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	metrics.WaitlistJoinsTotal.Inc()
	logger.Info("Customer joined waiting list", "bikeID", bikeID, "customerID", customerID, "entryID", entry.ID)
	return entry, nil
}

func waitingListFor(ctx context.Context, tx repository.Repositories, bikeID int64, at time.Time) (*domain.WaitingList, error) {
	list, err := tx.WaitingLists().GetByBike(ctx, bikeID)
	if err == nil {
		return list, nil
	}
	if !domain.IsNotFound(err) {
		return nil, err
	}

	list = &domain.WaitingList{BikeID: bikeID, CreatedAt: at}
	created, err := tx.WaitingLists().CreateIfAbsent(ctx, list)
	if err != nil {
		return nil, err
	}
	if created {
		return list, nil
	}
	return tx.WaitingLists().GetByBike(ctx, bikeID)
}

// takeNext returns the oldest unserved entry for the bike without changing
// it. Callers mark it served in the same transaction that creates the
// hand-off rental.
func takeNext(ctx context.Context, tx repository.Repositories, bikeID int64) (*domain.WaitingListEntry, error) {
	return tx.WaitingLists().NextUnserved(ctx, bikeID)
}
