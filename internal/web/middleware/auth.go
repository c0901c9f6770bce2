package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/facilitytables/internal/config"
)

type keyIDCtxKey struct{}

// KeyIDFromContext returns the identity of the API key that authenticated
// the request ("api-key-1" for the first configured key), or "".
func KeyIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(keyIDCtxKey{}).(string)
	return id
}

// APIKeyAuth returns middleware that validates the X-API-Key header against
// configured keys. If RequireAPIKey is false, all requests pass through.
// If RequireAPIKey is true but no keys are configured, all requests are
// rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusUnauthorized, "missing API key", "AUTH_MISSING_KEY")
				return
			}

			idx := matchAPIKey(apiKey, cfg.APIKeys)
			if idx < 0 {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
				return
			}

			ctx := context.WithValue(r.Context(), keyIDCtxKey{}, "api-key-"+strconv.Itoa(idx+1))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// matchAPIKey returns the index of the configured key equal to key, or -1.
// Every key is compared in constant time so timing does not reveal which
// one matched.
func matchAPIKey(key string, validKeys []string) int {
	match := -1
	for i, validKey := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			match = i
		}
	}
	return match
}

func writeAuthError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"` + code + `"}`))
}
