package web

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/JonMunkholm/facilitytables/internal/web/middleware"
)

// ActorHeader names the caller making a config change.
const ActorHeader = "X-Actor"

// WithRequestMetadata adds the client IP and acting user to ctx for
// mutation logging and config history.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, clientIP(r))

	actor := strings.TrimSpace(r.Header.Get(ActorHeader))
	if actor == "" {
		actor = middleware.KeyIDFromContext(r.Context())
	}
	if actor != "" {
		ctx = core.ContextWithActor(ctx, actor)
	}
	return ctx
}

// clientIP returns the remote address without its port. RemoteAddr has
// already been rewritten by TrustedRealIP for proxied requests.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
