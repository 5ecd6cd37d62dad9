package grpc

import (
	"context"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of the customer views served under ServiceName.
const (
	ListMyNotificationsMethod = "/" + ServiceName + "/ListMyNotifications"
	ListMyRentalsMethod       = "/" + ServiceName + "/ListMyRentals"
	ListMyWaitlistMethod      = "/" + ServiceName + "/ListMyWaitlist"
)

// CustomerViews is the slice of the rental service exposed over gRPC.
type CustomerViews interface {
	ListMyRentals(ctx context.Context, customerID uuid.UUID) ([]domain.Rental, error)
	ListMyWaitlist(ctx context.Context, customerID uuid.UUID) ([]domain.WaitingListEntry, error)
	ListMyNotifications(ctx context.Context, customerID uuid.UUID) ([]domain.Notification, error)
}

// CustomerServer answers for the authenticated caller only. Messages are
// well-known protobuf types so no generated code is needed.
type CustomerServer interface {
	ListMyNotifications(ctx context.Context, req *emptypb.Empty) (*structpb.ListValue, error)
	ListMyRentals(ctx context.Context, req *emptypb.Empty) (*structpb.ListValue, error)
	ListMyWaitlist(ctx context.Context, req *emptypb.Empty) (*structpb.ListValue, error)
}

type CustomerHandler struct {
	views CustomerViews
}

func NewCustomerHandler(views CustomerViews) *CustomerHandler {
	return &CustomerHandler{views: views}
}

// Register adds the customer service to s.
func (h *CustomerHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&customerServiceDesc, h)
}

func (h *CustomerHandler) ListMyNotifications(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	customerID, err := GetCustomerIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := h.views.ListMyNotifications(ctx, customerID)
	if err != nil {
		return nil, toStatus("ListMyNotifications", err)
	}
	rows := make([]any, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, map[string]any{
			"id":                    n.ID,
			"waiting_list_entry_id": n.EntryID,
			"bike_id":               n.BikeID,
			"message":               n.Message,
			"sent_at":               n.SentAt.UTC().Format(time.RFC3339),
		})
	}
	return listValue(rows)
}

func (h *CustomerHandler) ListMyRentals(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	customerID, err := GetCustomerIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rentals, err := h.views.ListMyRentals(ctx, customerID)
	if err != nil {
		return nil, toStatus("ListMyRentals", err)
	}
	rows := make([]any, 0, len(rentals))
	for _, r := range rentals {
		row := map[string]any{
			"id":               r.ID,
			"bike_id":          r.BikeID,
			"status":           string(r.Status),
			"start_at":         r.StartAt.UTC().Format(time.RFC3339),
			"total_amount_eur": r.TotalAmountEur.StringFixed(2),
		}
		if r.EndAt != nil {
			row["end_at"] = r.EndAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return listValue(rows)
}

func (h *CustomerHandler) ListMyWaitlist(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	customerID, err := GetCustomerIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := h.views.ListMyWaitlist(ctx, customerID)
	if err != nil {
		return nil, toStatus("ListMyWaitlist", err)
	}
	rows := make([]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]any{
			"id":         e.ID,
			"bike_id":    e.BikeID,
			"created_at": e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return listValue(rows)
}

func listValue(rows []any) (*structpb.ListValue, error) {
	lv, err := structpb.NewList(rows)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return lv, nil
}

// toStatus maps domain error kinds onto gRPC codes.
func toStatus(method string, err error) error {
	if domain.IsInputRule(err) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	switch domain.KindOf(err) {
	case domain.ErrorKindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.ErrorKindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.ErrorKindBusinessRule:
		return status.Error(codes.FailedPrecondition, err.Error())
	case domain.ErrorKindTransient:
		return status.Error(codes.Unavailable, err.Error())
	}
	logger.Error("gRPC call failed", "method", method, "error", err)
	return status.Error(codes.Internal, "internal error")
}

func unaryHandler(fullMethod string, call func(CustomerServer, context.Context, *emptypb.Empty) (*structpb.ListValue, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CustomerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CustomerServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var customerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CustomerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListMyNotifications", Handler: unaryHandler(ListMyNotificationsMethod, CustomerServer.ListMyNotifications)},
		{MethodName: "ListMyRentals", Handler: unaryHandler(ListMyRentalsMethod, CustomerServer.ListMyRentals)},
		{MethodName: "ListMyWaitlist", Handler: unaryHandler(ListMyWaitlistMethod, CustomerServer.ListMyWaitlist)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bikeshare/v1/customer.proto",
}
