package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// contextKey is an unexported type for context keys in this package.
// A custom type prevents collisions with keys from other packages.
type contextKey string

const (
	HeaderXRequestId      = "x-request-id"
	HeaderXIdempotencyKey = "x-idempotency-key"

	contextKeyRequestID      contextKey = HeaderXRequestId
	contextKeyIdempotencyKey contextKey = HeaderXIdempotencyKey
)

// RequestMetadata copies the chi request ID and the caller-supplied
// idempotency key into typed context values so handlers can read them
// without touching headers again.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), contextKeyRequestID, middleware.GetReqID(r.Context()))
		ctx = context.WithValue(ctx, contextKeyIdempotencyKey, r.Header.Get(HeaderXIdempotencyKey))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request ID attached by RequestMetadata.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// IdempotencyKey returns the caller's idempotency key, empty if none was sent.
func IdempotencyKey(ctx context.Context) string {
	key, _ := ctx.Value(contextKeyIdempotencyKey).(string)
	return key
}
