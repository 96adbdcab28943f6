package internal

import (
	"context"
	"time"
)

type ctxKey string

const contextRequestMetaKey ctxKey = "requestMeta"

// RequestMeta carries per-request data that audit entries record alongside
// the business diff.
type RequestMeta struct {
	Path      string
	Method    string
	IP        string
	UserAgent string
}

func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, contextRequestMetaKey, meta)
}

func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	if meta, ok := ctx.Value(contextRequestMetaKey).(RequestMeta); ok {
		return meta
	}
	return RequestMeta{}
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
