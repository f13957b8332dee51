// Package correlation provides utilities for request id propagation.
//
// The request id travels from the inbound HTTP header into the request
// context, from there into the requestId field of every published event, and
// back into the context of the consumer that handles that event.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

// HeaderName is the HTTP header carrying the request id.
const HeaderName = "X-Request-ID"

// LegacyHeaderName is accepted on inbound requests for clients that still
// send the older correlation header.
const LegacyHeaderName = "X-Correlation-ID"

type contextKey struct{}

// FromContext extracts the request id from context.
// Returns empty string if not present.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// WithID returns a new context with the request id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Ensure returns ctx unchanged when it already carries a request id,
// otherwise a derived context with a freshly generated one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewID()
	return WithID(ctx, id), id
}

// NewID generates a new request id (UUID v4).
func NewID() string {
	return uuid.New().String()
}
