package grpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// CustomerIDHeader is set by the auth interceptor from the token claims.
const CustomerIDHeader = "customer-id"

// GetCustomerIDFromContext extracts the customer ID from the gRPC metadata.
func GetCustomerIDFromContext(ctx context.Context) (uuid.UUID, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return uuid.Nil, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	ids := md.Get(CustomerIDHeader)
	if len(ids) == 0 {
		return uuid.Nil, status.Errorf(codes.Unauthenticated, "customer_id is not provided in metadata")
	}

	id, err := uuid.Parse(ids[0])
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid customer_id format: %v", err)
	}
	return id, nil
}
