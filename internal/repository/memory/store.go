// Package memory is an in-process Store used for local runs and tests.
// Transactions are serialized and work on a private copy of the tables that
// replaces the committed state only when the callback succeeds. Plain reads
// see committed state; plain writes wait for any open transaction.
package memory

import (
	"context"
	"sync"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/repository"

	"github.com/google/uuid"
)

type state struct {
	seq            int64
	customers      map[uuid.UUID]domain.Customer
	bikes          map[int64]domain.Bike
	rentals        map[int64]domain.Rental
	waitingLists   map[int64]domain.WaitingList
	entries        map[int64]domain.WaitingListEntry
	returnNotes    map[int64]domain.ReturnNote
	notifications  map[int64]domain.Notification
	rentalPayments map[int64]domain.RentalPayment
	salePayments   map[int64]domain.SalePayment
	offers         map[int64]domain.SaleOffer
	baskets        map[int64]domain.Basket
	basketItems    map[int64]domain.BasketItem
	purchases      map[int64]domain.Purchase
}

func newState() *state {
	return &state{
		customers:      map[uuid.UUID]domain.Customer{},
		bikes:          map[int64]domain.Bike{},
		rentals:        map[int64]domain.Rental{},
		waitingLists:   map[int64]domain.WaitingList{},
		entries:        map[int64]domain.WaitingListEntry{},
		returnNotes:    map[int64]domain.ReturnNote{},
		notifications:  map[int64]domain.Notification{},
		rentalPayments: map[int64]domain.RentalPayment{},
		salePayments:   map[int64]domain.SalePayment{},
		offers:         map[int64]domain.SaleOffer{},
		baskets:        map[int64]domain.Basket{},
		basketItems:    map[int64]domain.BasketItem{},
		purchases:      map[int64]domain.Purchase{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies every table. Stored values never have their pointer fields
// mutated in place, so a shallow copy of each value is enough.
func (s *state) clone() *state {
	c := &state{
		seq:            s.seq,
		customers:      cloneMap(s.customers),
		bikes:          cloneMap(s.bikes),
		rentals:        cloneMap(s.rentals),
		waitingLists:   cloneMap(s.waitingLists),
		entries:        cloneMap(s.entries),
		returnNotes:    cloneMap(s.returnNotes),
		notifications:  cloneMap(s.notifications),
		rentalPayments: cloneMap(s.rentalPayments),
		salePayments:   cloneMap(s.salePayments),
		offers:         cloneMap(s.offers),
		baskets:        cloneMap(s.baskets),
		basketItems:    cloneMap(s.basketItems),
		purchases:      make(map[int64]domain.Purchase, len(s.purchases)),
	}
	for id, p := range s.purchases {
		p.Items = append([]domain.PurchaseItem(nil), p.Items...)
		c.purchases[id] = p
	}
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// tables is what a repository reads and writes: the committed state for
// plain calls, a transaction's private copy inside WithinTx.
type tables interface {
	read() (*state, func())
	write(ctx context.Context) (*state, func(), error)
}

type Store struct {
	mu          sync.Mutex
	data        *state
	txSem       chan struct{}
	lockTimeout time.Duration
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store. A transaction or write that cannot start
// within lockTimeout fails with a transient error; zero waits for the
// context only.
func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		data:        newState(),
		txSem:       make(chan struct{}, 1),
		lockTimeout: lockTimeout,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) acquire(ctx context.Context) error {
	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		timer := time.NewTimer(s.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case s.txSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return domain.Transient(ctx.Err(), "transaction: timed out")
	case <-timeout:
		return domain.Transient(nil, "transaction: storage contention, retry later")
	}
}

func (s *Store) release() { <-s.txSem }

func (s *Store) read() (*state, func()) {
	s.mu.Lock()
	return s.data, s.mu.Unlock
}

func (s *Store) write(ctx context.Context) (*state, func(), error) {
	if err := s.acquire(ctx); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	return s.data, func() {
		s.mu.Unlock()
		s.release()
	}, nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	tx := &txTables{data: s.data.clone()}
	s.mu.Unlock()

	if err := fn(ctx, repoSet{tx}); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

// txTables is a transaction's working copy.
type txTables struct {
	mu   sync.Mutex
	data *state
}

func (t *txTables) read() (*state, func()) {
	t.mu.Lock()
	return t.data, t.mu.Unlock
}

func (t *txTables) write(context.Context) (*state, func(), error) {
	t.mu.Lock()
	return t.data, t.mu.Unlock, nil
}

type repoSet struct{ t tables }

func (r repoSet) Customers() repository.CustomerRepository         { return customers{r.t} }
func (r repoSet) Bikes() repository.BikeRepository                 { return bikes{r.t} }
func (r repoSet) Rentals() repository.RentalRepository             { return rentals{r.t} }
func (r repoSet) WaitingLists() repository.WaitingListRepository   { return waitingLists{r.t} }
func (r repoSet) ReturnNotes() repository.ReturnNoteRepository     { return returnNotes{r.t} }
func (r repoSet) Notifications() repository.NotificationRepository { return notifications{r.t} }
func (r repoSet) Payments() repository.PaymentRepository           { return payments{r.t} }
func (r repoSet) SaleOffers() repository.SaleOfferRepository       { return saleOffers{r.t} }
func (r repoSet) Baskets() repository.BasketRepository             { return baskets{r.t} }
func (r repoSet) Purchases() repository.PurchaseRepository         { return purchases{r.t} }

// exclusive waits for any open transaction without a deadline.
func (s *Store) exclusive() (*state, func()) {
	s.txSem <- struct{}{}
	s.mu.Lock()
	return s.data, func() {
		s.mu.Unlock()
		s.release()
	}
}

// AddCustomer and AddBike seed reference data that the core never creates.

func (s *Store) AddCustomer(c domain.Customer) domain.Customer {
	d, done := s.exclusive()
	defer done()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	d.customers[c.ID] = c
	return c
}

func (s *Store) AddBike(b domain.Bike) domain.Bike {
	d, done := s.exclusive()
	defer done()
	if b.ID == 0 {
		b.ID = d.nextID()
	} else if b.ID > d.seq {
		d.seq = b.ID
	}
	if b.Status == "" {
		b.Status = domain.BikeStatusAvailable
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	d.bikes[b.ID] = b
	return b
}

func (s *Store) Customers() repository.CustomerRepository         { return customers{s} }
func (s *Store) Bikes() repository.BikeRepository                 { return bikes{s} }
func (s *Store) Rentals() repository.RentalRepository             { return rentals{s} }
func (s *Store) WaitingLists() repository.WaitingListRepository   { return waitingLists{s} }
func (s *Store) ReturnNotes() repository.ReturnNoteRepository     { return returnNotes{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notifications{s} }
func (s *Store) Payments() repository.PaymentRepository           { return payments{s} }
func (s *Store) SaleOffers() repository.SaleOfferRepository       { return saleOffers{s} }
func (s *Store) Baskets() repository.BasketRepository             { return baskets{s} }
func (s *Store) Purchases() repository.PurchaseRepository         { return purchases{s} }

func (s *Store) SeedCustomer(_ context.Context, c domain.Customer) error {
	s.AddCustomer(c)
	return nil
}

func (s *Store) SeedBike(_ context.Context, b domain.Bike) error {
	s.AddBike(b)
	return nil
}
