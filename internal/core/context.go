package core

import "context"

type contextKey string

const (
	ctxKeyActor     contextKey = "mutation_actor"
	ctxKeyIPAddress contextKey = "mutation_ip"
)

// ContextWithActor records who is changing table configs, for mutation logs.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

// ContextWithIPAddress adds the client IP address for mutation logs.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ActorFromContext returns the actor, or "system" when none was recorded.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyActor).(string); ok && v != "" {
		return v
	}
	return "system"
}

// IPAddressFromContext extracts the client IP address from ctx.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
