package core

import "context"

type linkCtxKey string

const (
	linkCtxKeyClientIP  linkCtxKey = "linkconfirm.client_ip"
	linkCtxKeyUserAgent linkCtxKey = "linkconfirm.user_agent"
	linkCtxKeyRequestID linkCtxKey = "linkconfirm.request_id"
)

// WithClientInfo annotates ctx so audit events and logs can carry the caller's address.
func WithClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, linkCtxKeyClientIP, ip)
	return context.WithValue(ctx, linkCtxKeyUserAgent, userAgent)
}

// WithRequestID annotates ctx with the request id assigned by the HTTP adapter.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, linkCtxKeyRequestID, id)
}

// RequestIDFromContext returns the id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return ctxString(ctx, linkCtxKeyRequestID)
}

func ctxString(ctx context.Context, k linkCtxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(k).(string)
	return s
}
