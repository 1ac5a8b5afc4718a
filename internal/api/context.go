package api

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/hyperengineering/crm/internal/crm"
)

// GetRequestID returns the request ID injected by chi's RequestID middleware,
// or an empty string when none is present.
func GetRequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// WithActor attributes the request to an authenticated profile. Mutations
// made under this context are recorded with the profile as their source.
func WithActor(ctx context.Context, profileID string) context.Context {
	return crm.WithSource(ctx, profileID)
}

// ActorFromContext returns the profile the request is attributed to.
func ActorFromContext(ctx context.Context) string {
	return crm.SourceFromContext(ctx)
}
