package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/repository"
	"bikeshare-backend/internal/repository/memory"

	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChannel struct {
	mock.Mock
	name string
}

func (m *MockChannel) Name() string { return m.name }

func (m *MockChannel) Deliver(ctx context.Context, note domain.Notification, customer *domain.Customer) error {
	args := m.Called(ctx, note, customer)
	return args.Error(0)
}

type MockMailSender struct{ mock.Mock }

func (m *MockMailSender) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rest.Response), args.Error(1)
}

type MockMessageSender struct{ mock.Mock }

func (m *MockMessageSender) Send(ctx context.Context, message *messaging.Message) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

type MockWriter struct{ mock.Mock }

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error { return m.Called().Error(0) }

func seedNotification(t *testing.T, store *memory.Store, customerID uuid.UUID, bikeID int64) domain.Notification {
	t.Helper()
	n := domain.Notification{
		EntryID:    1,
		CustomerID: customerID,
		BikeID:     bikeID,
		Message:    domain.HandoffMessage(bikeID),
		SentAt:     time.Now().UTC(),
	}
	require.NoError(t, store.Notifications().Create(context.Background(), &n))
	return n
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes when every channel accepts", func(t *testing.T) {
		store := memory.NewStore(0)
		c := store.AddCustomer(domain.Customer{Email: "ana@example.com", FullName: "Ana"})
		n1 := seedNotification(t, store, c.ID, 7)
		n2 := seedNotification(t, store, c.ID, 8)

		ch := &MockChannel{name: "email"}
		ch.On("Deliver", ctx, mock.Anything, mock.Anything).Return(nil).Twice()

		d := NewDispatcher(store, 10, ch)
		published, err := d.Dispatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, published)

		pending, err := store.Notifications().ListUnpublished(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)

		delivered := []int64{}
		for _, call := range ch.Calls {
			delivered = append(delivered, call.Arguments.Get(1).(domain.Notification).ID)
		}
		assert.Equal(t, []int64{n1.ID, n2.ID}, delivered)
		ch.AssertExpectations(t)
	})

	t.Run("failed channel leaves notification for retry", func(t *testing.T) {
		store := memory.NewStore(0)
		c := store.AddCustomer(domain.Customer{Email: "ben@example.com", FullName: "Ben"})
		n := seedNotification(t, store, c.ID, 3)

		ok := &MockChannel{name: "kafka"}
		ok.On("Deliver", ctx, mock.Anything, mock.Anything).Return(nil)
		failing := &MockChannel{name: "email"}
		failing.On("Deliver", ctx, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		d := NewDispatcher(store, 10, ok, failing)
		published, err := d.Dispatch(ctx)
		require.NoError(t, err)
		assert.Zero(t, published)

		pending, err := store.Notifications().ListUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, n.ID, pending[0].ID)
		assert.Equal(t, n.Message, pending[0].Message)
	})

	t.Run("skipped channel still publishes", func(t *testing.T) {
		store := memory.NewStore(0)
		c := store.AddCustomer(domain.Customer{Email: "cy@example.com", FullName: "Cy"})
		seedNotification(t, store, c.ID, 4)

		push := &MockChannel{name: "push"}
		push.On("Deliver", ctx, mock.Anything, mock.Anything).Return(ErrSkipped)

		published, err := NewDispatcher(store, 0, push).Dispatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, published)
	})

	t.Run("batch size limits one run", func(t *testing.T) {
		store := memory.NewStore(0)
		c := store.AddCustomer(domain.Customer{Email: "di@example.com", FullName: "Di"})
		for i := int64(1); i <= 3; i++ {
			seedNotification(t, store, c.ID, i)
		}

		ch := &MockChannel{name: "kafka"}
		ch.On("Deliver", ctx, mock.Anything, mock.Anything).Return(nil)

		published, err := NewDispatcher(store, 2, ch).Dispatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, published)

		pending, err := store.Notifications().ListUnpublished(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})
}

func TestEmailChannel_Deliver(t *testing.T) {
	ctx := context.Background()
	customer := &domain.Customer{ID: uuid.New(), Email: "ana@example.com", FullName: "Ana"}
	note := domain.Notification{ID: 1, BikeID: 9, Message: domain.HandoffMessage(9)}

	t.Run("sends to the customer address", func(t *testing.T) {
		sender := new(MockMailSender)
		sender.On("SendWithContext", ctx, mock.MatchedBy(func(m *mail.SGMailV3) bool {
			return m.From.Address == "noreply@bikeshare.test" &&
				len(m.Personalizations) == 1 &&
				m.Personalizations[0].To[0].Address == "ana@example.com"
		})).Return(&rest.Response{StatusCode: 202}, nil)

		err := newEmailChannel(sender, "noreply@bikeshare.test", "Bikeshare").Deliver(ctx, note, customer)
		require.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		sender := new(MockMailSender)
		sender.On("SendWithContext", ctx, mock.Anything).Return(&rest.Response{StatusCode: 401, Body: "unauthorized"}, nil)

		err := newEmailChannel(sender, "noreply@bikeshare.test", "Bikeshare").Deliver(ctx, note, customer)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("no address is skipped", func(t *testing.T) {
		sender := new(MockMailSender)
		err := newEmailChannel(sender, "noreply@bikeshare.test", "Bikeshare").
			Deliver(ctx, note, &domain.Customer{ID: uuid.New()})
		assert.ErrorIs(t, err, ErrSkipped)
		sender.AssertNotCalled(t, "SendWithContext", mock.Anything, mock.Anything)
	})
}

func TestPushChannel_Deliver(t *testing.T) {
	ctx := context.Background()
	note := domain.Notification{ID: 5, BikeID: 2, Message: domain.HandoffMessage(2)}

	t.Run("sends to the device token", func(t *testing.T) {
		sender := new(MockMessageSender)
		sender.On("Send", ctx, mock.MatchedBy(func(m *messaging.Message) bool {
			return m.Token == "device-1" && m.Data["bike_id"] == "2" && m.Notification.Body == note.Message
		})).Return("projects/x/messages/1", nil)

		ch := &PushChannel{client: sender}
		require.NoError(t, ch.Deliver(ctx, note, &domain.Customer{ID: uuid.New(), DeviceToken: "device-1"}))
		sender.AssertExpectations(t)
	})

	t.Run("no device is skipped", func(t *testing.T) {
		sender := new(MockMessageSender)
		ch := &PushChannel{client: sender}
		assert.ErrorIs(t, ch.Deliver(ctx, note, &domain.Customer{ID: uuid.New()}), ErrSkipped)
	})
}

func TestKafkaChannel_Deliver(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()
	note := domain.Notification{ID: 11, EntryID: 4, CustomerID: customerID, BikeID: 42, Message: domain.HandoffMessage(42)}

	w := new(MockWriter)
	w.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || string(msgs[0].Key) != "42" {
			return false
		}
		var ev HandoffEvent
		if err := json.Unmarshal(msgs[0].Value, &ev); err != nil {
			return false
		}
		return ev.Type == HandoffEventType && ev.CustomerID == customerID && ev.EntryID == 4
	})).Return(nil).Once()
	w.On("WriteMessages", ctx, mock.Anything).Return(errors.New("broker unavailable")).Once()

	ch := newKafkaChannel(w, "bike-handoffs")
	require.NoError(t, ch.Deliver(ctx, note, nil))

	err := ch.Deliver(ctx, note, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bike-handoffs")
	w.AssertExpectations(t)
}

func TestDispatcher_IgnoresUncommittedNotifications(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(0)
	c := store.AddCustomer(domain.Customer{Email: "eve@example.com", FullName: "Eve"})

	inside := make(chan struct{})
	finish := make(chan struct{})
	txErr := make(chan error)
	go func() {
		txErr <- store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
			n := &domain.Notification{EntryID: 1, CustomerID: c.ID, BikeID: 9, Message: domain.HandoffMessage(9), SentAt: time.Now().UTC()}
			if err := tx.Notifications().Create(ctx, n); err != nil {
				return err
			}
			close(inside)
			<-finish
			return errors.New("hand-off aborted")
		})
	}()
	<-inside

	ch := &MockChannel{name: "email"}
	d := NewDispatcher(store, 10, ch)
	published, err := d.Dispatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, published)

	close(finish)
	require.Error(t, <-txErr)

	published, err = d.Dispatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, published)
	ch.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
}
