package http

import (
	"context"

	"bikeshare-backend/internal/domain"

	"github.com/google/uuid"
)

type contextKey struct{}

var customerIDKey = contextKey{}

func withCustomerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, customerIDKey, id)
}

// CustomerIDFromContext returns the authenticated customer placed on the
// request context by the auth middleware.
func CustomerIDFromContext(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(customerIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, domain.Validation("customer id is not provided")
	}
	return id, nil
}
