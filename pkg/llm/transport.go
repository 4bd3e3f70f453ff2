package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

type contextKey string

const requestIDKey contextKey = "llm_request_id"

// WithRequestID returns a context carrying id. Outgoing provider requests made
// with it send the id in the X-Request-Id header.
func WithRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id, if present.
func RequestIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(requestIDKey).(uuid.UUID)
	return id, ok
}

// ensureRequestID reuses the caller's request id or attaches a new one.
func ensureRequestID(ctx context.Context) (context.Context, uuid.UUID) {
	if id, ok := RequestIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.New()
	return WithRequestID(ctx, id), id
}

// contextAwareTransport copies the context request id onto each outgoing request.
type contextAwareTransport struct {
	base http.RoundTripper
}

func (t *contextAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	id, ok := RequestIDFromContext(req.Context())
	if !ok {
		return base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set(requestIDHeader, id.String())
	return base.RoundTrip(clone)
}

// NewHTTPClient returns an HTTP client for provider calls with the given
// overall timeout (zero means none) and request id propagation.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &contextAwareTransport{base: http.DefaultTransport},
	}
}

// withRequestIDTransport wraps an existing client so it propagates request ids.
func withRequestIDTransport(c *http.Client) *http.Client {
	if c == nil {
		return NewHTTPClient(0)
	}
	if _, ok := c.Transport.(*contextAwareTransport); ok {
		return c
	}
	wrapped := *c
	wrapped.Transport = &contextAwareTransport{base: c.Transport}
	return &wrapped
}
