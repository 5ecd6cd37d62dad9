package grpc

import (
	"context"
	"testing"
	"time"

	"bikeshare-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

type MockCustomerViews struct{ mock.Mock }

func (m *MockCustomerViews) ListMyRentals(ctx context.Context, customerID uuid.UUID) ([]domain.Rental, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]domain.Rental), args.Error(1)
}

func (m *MockCustomerViews) ListMyWaitlist(ctx context.Context, customerID uuid.UUID) ([]domain.WaitingListEntry, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]domain.WaitingListEntry), args.Error(1)
}

func (m *MockCustomerViews) ListMyNotifications(ctx context.Context, customerID uuid.UUID) ([]domain.Notification, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func customerContext(id uuid.UUID) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(CustomerIDHeader, id.String()))
}

func TestCustomerHandler_ListMyNotifications(t *testing.T) {
	customer := uuid.New()
	ctx := customerContext(customer)
	sent := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	views := &MockCustomerViews{}
	views.On("ListMyNotifications", ctx, customer).Return([]domain.Notification{
		{ID: 12, EntryID: 3, CustomerID: customer, BikeID: 7, Message: domain.HandoffMessage(7), SentAt: sent},
	}, nil)

	res, err := NewCustomerHandler(views).ListMyNotifications(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	require.Len(t, res.Values, 1)

	row := res.Values[0].GetStructValue().AsMap()
	assert.Equal(t, float64(12), row["id"])
	assert.Equal(t, float64(7), row["bike_id"])
	assert.Equal(t, domain.HandoffMessage(7), row["message"])
	assert.Equal(t, "2024-05-01T10:00:00Z", row["sent_at"])
	views.AssertExpectations(t)
}

func TestCustomerHandler_ListMyRentals(t *testing.T) {
	customer := uuid.New()
	ctx := customerContext(customer)
	end := time.Date(2024, 5, 4, 9, 0, 0, 0, time.UTC)

	views := &MockCustomerViews{}
	views.On("ListMyRentals", ctx, customer).Return([]domain.Rental{
		{ID: 2, BikeID: 7, CustomerID: customer, Status: domain.RentalStatusClosed, StartAt: end.Add(-72 * time.Hour), EndAt: &end, TotalAmountEur: decimal.RequireFromString("7.5")},
		{ID: 1, BikeID: 8, CustomerID: customer, Status: domain.RentalStatusActive, StartAt: end, TotalAmountEur: decimal.NewFromInt(3)},
	}, nil)

	res, err := NewCustomerHandler(views).ListMyRentals(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	require.Len(t, res.Values, 2)

	closed := res.Values[0].GetStructValue().AsMap()
	assert.Equal(t, "CLOSED", closed["status"])
	assert.Equal(t, "7.50", closed["total_amount_eur"])
	assert.Equal(t, "2024-05-04T09:00:00Z", closed["end_at"])

	active := res.Values[1].GetStructValue().AsMap()
	_, hasEnd := active["end_at"]
	assert.False(t, hasEnd)
}

func TestCustomerHandler_Errors(t *testing.T) {
	t.Run("missing customer", func(t *testing.T) {
		views := &MockCustomerViews{}
		_, err := NewCustomerHandler(views).ListMyWaitlist(context.Background(), &emptypb.Empty{})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
		views.AssertNotCalled(t, "ListMyWaitlist", mock.Anything, mock.Anything)
	})

	t.Run("domain kinds map to codes", func(t *testing.T) {
		customer := uuid.New()
		ctx := customerContext(customer)
		views := &MockCustomerViews{}
		views.On("ListMyNotifications", ctx, customer).Return([]domain.Notification(nil), domain.NotFound("customer not found: %s", customer))

		_, err := NewCustomerHandler(views).ListMyNotifications(ctx, &emptypb.Empty{})
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	tests := []struct {
		err  error
		code codes.Code
	}{
		{domain.Validation("bad"), codes.InvalidArgument},
		{domain.BusinessRule("nope"), codes.FailedPrecondition},
		{domain.InputRule("unsupported currency: XYZ"), codes.InvalidArgument},
		{domain.Transient(nil, "busy"), codes.Unavailable},
		{assert.AnError, codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(toStatus("test", tt.err)))
	}
}
