package core

import "context"

type contextKey string

const (
	ctxKeyOrigin    contextKey = "change_origin"
	ctxKeyIPAddress contextKey = "change_ip"
	ctxKeyUserAgent contextKey = "change_ua"
)

// ContextWithOrigin tags the context with the surface that issued the request.
func ContextWithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, ctxKeyOrigin, origin)
}

// ContextWithIPAddress adds the client IP address to context for change events.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithUserAgent adds the User-Agent to context for change events.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// SourceFromContext builds the Source recorded on change events.
func SourceFromContext(ctx context.Context) Source {
	var src Source
	if v, ok := ctx.Value(ctxKeyOrigin).(string); ok {
		src.Origin = v
	}
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		src.IPAddress = v
	}
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		src.UserAgent = v
	}
	return src
}
