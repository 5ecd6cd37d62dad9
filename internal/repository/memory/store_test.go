package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewStore(0)
	bike := store.AddBike(domain.Bike{DailyRateEur: decimal.NewFromInt(10)})

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Bikes().UpdateStatus(ctx, bike.ID, domain.BikeStatusRented); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	got, err := store.Bikes().GetByID(ctx, bike.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BikeStatusAvailable, got.Status)
}

func TestStore_LockTimeout(t *testing.T) {
	ctx := context.Background()
	store := NewStore(20 * time.Millisecond)

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error { return nil })
	assert.True(t, domain.IsTransient(err))

	close(release)
	wg.Wait()
}

func TestWaitingLists_FIFOAndUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore(0)
	bike := store.AddBike(domain.Bike{})
	a := store.AddCustomer(domain.Customer{Email: "a@example.com"})
	b := store.AddCustomer(domain.Customer{Email: "b@example.com"})

	list := &domain.WaitingList{BikeID: bike.ID, CreatedAt: time.Now()}
	created, err := store.WaitingLists().CreateIfAbsent(ctx, list)
	require.NoError(t, err)
	assert.True(t, created)

	again, err := store.WaitingLists().CreateIfAbsent(ctx, &domain.WaitingList{BikeID: bike.ID})
	require.NoError(t, err)
	assert.False(t, again)

	t0 := time.Now()
	require.NoError(t, store.WaitingLists().CreateEntry(ctx, &domain.WaitingListEntry{WaitingListID: list.ID, CustomerID: b.ID, CreatedAt: t0.Add(time.Second)}))
	require.NoError(t, store.WaitingLists().CreateEntry(ctx, &domain.WaitingListEntry{WaitingListID: list.ID, CustomerID: a.ID, CreatedAt: t0}))

	err = store.WaitingLists().CreateEntry(ctx, &domain.WaitingListEntry{WaitingListID: list.ID, CustomerID: a.ID, CreatedAt: t0})
	assert.True(t, domain.IsBusinessRule(err))

	next, err := store.WaitingLists().NextUnserved(ctx, bike.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, a.ID, next.CustomerID)

	first := next.ID
	require.NoError(t, store.WaitingLists().MarkServed(ctx, first, time.Now()))
	next, err = store.WaitingLists().NextUnserved(ctx, bike.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, next.CustomerID)

	assert.True(t, domain.IsBusinessRule(store.WaitingLists().MarkServed(ctx, first, time.Now())))
}

func TestStore_UncommittedWritesAreInvisible(t *testing.T) {
	ctx := context.Background()
	store := NewStore(0)
	c := store.AddCustomer(domain.Customer{Email: "ana@example.com"})

	inside := make(chan struct{})
	finish := make(chan error)
	txErr := make(chan error)
	go func() {
		txErr <- store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
			n := &domain.Notification{CustomerID: c.ID, BikeID: 4, Message: domain.HandoffMessage(4), SentAt: time.Now()}
			if err := tx.Notifications().Create(ctx, n); err != nil {
				return err
			}
			close(inside)
			return <-finish
		})
	}()
	<-inside

	pending, err := store.Notifications().ListUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	finish <- errors.New("hand-off aborted")
	require.Error(t, <-txErr)

	pending, err = store.Notifications().ListUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStore_CommitPublishesWorkingCopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore(0)
	bike := store.AddBike(domain.Bike{DailyRateEur: decimal.NewFromInt(10)})

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Bikes().UpdateStatus(ctx, bike.ID, domain.BikeStatusRented); err != nil {
			return err
		}
		got, err := store.Bikes().GetByID(ctx, bike.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BikeStatusAvailable, got.Status)
		return nil
	})
	require.NoError(t, err)

	got, err := store.Bikes().GetByID(ctx, bike.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BikeStatusRented, got.Status)
}

func TestStore_PlainWriteSurvivesConcurrentRollback(t *testing.T) {
	ctx := context.Background()
	store := NewStore(0)
	bike := store.AddBike(domain.Bike{DailyRateEur: decimal.NewFromInt(10)})

	inside := make(chan struct{})
	finish := make(chan struct{})
	txErr := make(chan error)
	go func() {
		txErr <- store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
			close(inside)
			<-finish
			return errors.New("boom")
		})
	}()
	<-inside

	writeErr := make(chan error)
	go func() {
		writeErr <- store.Bikes().UpdateStatus(ctx, bike.ID, domain.BikeStatusMaintenance)
	}()

	close(finish)
	require.Error(t, <-txErr)
	require.NoError(t, <-writeErr)

	got, err := store.Bikes().GetByID(ctx, bike.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BikeStatusMaintenance, got.Status)
}

func TestStore_PlainWriteHonoursLockTimeout(t *testing.T) {
	ctx := context.Background()
	store := NewStore(20 * time.Millisecond)
	bike := store.AddBike(domain.Bike{})

	inside := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
			close(inside)
			<-finish
			return nil
		})
	}()
	<-inside

	err := store.Bikes().UpdateStatus(ctx, bike.ID, domain.BikeStatusMaintenance)
	assert.True(t, domain.IsTransient(err))

	close(finish)
	<-done
}
