// Package requestcontext carries request-scoped values without net/http.
//
// Middleware populates the context; the verification and credential services
// read it. Tests pin the clock with WithTime.
package requestcontext

import (
	"context"
	"time"
)

type ctxKey int

const (
	clientKey ctxKey = iota
	requestIDKey
	requestTimeKey
)

// Client describes the caller as seen at the HTTP edge.
type Client struct {
	IP        string
	UserAgent string
}

func value[T any](ctx context.Context, key ctxKey) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// WithClientMetadata records the caller's address and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey, Client{IP: clientIP, UserAgent: userAgent})
}

// ClientMetadata returns what WithClientMetadata stored, or the zero Client.
func ClientMetadata(ctx context.Context) Client {
	c, _ := value[Client](ctx, clientKey)
	return c
}

func ClientIP(ctx context.Context) string  { return ClientMetadata(ctx).IP }
func UserAgent(ctx context.Context) string { return ClientMetadata(ctx).UserAgent }

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID is empty outside an HTTP request.
func RequestID(ctx context.Context) string {
	id, _ := value[string](ctx, requestIDKey)
	return id
}

// WithTime fixes "now" for everything downstream, so age and expiry checks
// within one request agree.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}

// Now returns the request time, or the wall clock for CLI runs and sweepers.
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, requestTimeKey); ok {
		return t
	}
	return time.Now()
}
