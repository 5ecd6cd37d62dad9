package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"
	"bikeshare-backend/internal/repository"

	"github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx so every repository can
// run either standalone or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repos struct {
	customers     repository.CustomerRepository
	bikes         repository.BikeRepository
	rentals       repository.RentalRepository
	waitingLists  repository.WaitingListRepository
	returnNotes   repository.ReturnNoteRepository
	notifications repository.NotificationRepository
	payments      repository.PaymentRepository
	saleOffers    repository.SaleOfferRepository
	baskets       repository.BasketRepository
	purchases     repository.PurchaseRepository
}

func newRepos(q querier) *repos {
	return &repos{
		customers:     &customerRepository{q: q},
		bikes:         &bikeRepository{q: q},
		rentals:       &rentalRepository{q: q},
		waitingLists:  &waitingListRepository{q: q},
		returnNotes:   &returnNoteRepository{q: q},
		notifications: &notificationRepository{q: q},
		payments:      &paymentRepository{q: q},
		saleOffers:    &saleOfferRepository{q: q},
		baskets:       &basketRepository{q: q},
		purchases:     &purchaseRepository{q: q},
	}
}

func (r *repos) Customers() repository.CustomerRepository         { return r.customers }
func (r *repos) Bikes() repository.BikeRepository                 { return r.bikes }
func (r *repos) Rentals() repository.RentalRepository             { return r.rentals }
func (r *repos) WaitingLists() repository.WaitingListRepository   { return r.waitingLists }
func (r *repos) ReturnNotes() repository.ReturnNoteRepository     { return r.returnNotes }
func (r *repos) Notifications() repository.NotificationRepository { return r.notifications }
func (r *repos) Payments() repository.PaymentRepository           { return r.payments }
func (r *repos) SaleOffers() repository.SaleOfferRepository       { return r.saleOffers }
func (r *repos) Baskets() repository.BasketRepository             { return r.baskets }
func (r *repos) Purchases() repository.PurchaseRepository         { return r.purchases }

type Store struct {
	db          *sql.DB
	lockTimeout time.Duration
	*repos
}

var _ repository.Store = (*Store)(nil)

// NewStore wires every repository on db. lockTimeout bounds how long a
// transaction waits on a row lock before failing with a transient error; zero
// leaves the server default in place.
func NewStore(db *sql.DB, lockTimeout time.Duration) *Store {
	return &Store{
		db:          db,
		lockTimeout: lockTimeout,
		repos:       newRepos(db),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	logger.DatabaseCall("BEGIN", "transaction")
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return translateError(err, "begin transaction")
	}
	defer tx.Rollback()

	if s.lockTimeout > 0 {
		// SET LOCAL does not accept bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return translateError(err, "set lock timeout")
		}
	}

	if err := fn(ctx, newRepos(tx)); err != nil {
		logger.DatabaseResult("ROLLBACK", 0, nil, "cause", err)
		return translateError(err, "transaction")
	}

	if err := tx.Commit(); err != nil {
		return translateError(err, "commit transaction")
	}
	logger.DatabaseResult("COMMIT", 0, nil)
	return nil
}

// translateError maps driver failures onto the domain taxonomy. Domain
// errors pass through untouched.
func translateError(err error, op string) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "lock_not_available", "deadlock_detected", "serialization_failure", "query_canceled":
			return domain.Transient(err, "%s: storage contention, retry later", op)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Transient(err, "%s: timed out", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(format, args...)
	}
	return translateError(err, fmt.Sprintf(format, args...))
}
