// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/facilitytables/internal/logging"
)

// RequestObserver receives the outcome of every request, keyed by its chi
// route pattern so that path parameters do not explode label cardinality.
type RequestObserver interface {
	ObserveRequest(method, route string, code int, d time.Duration)
}

// Logger returns middleware that logs each request with structured fields
// and reports it to observer, which may be nil.
//
// Log fields:
//   - method, path and route (the matched chi pattern)
//   - status and duration_ms
//   - ip: client IP after TrustedRealIP
//   - table_type: the {tableType} URL parameter, when present
func Logger(observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			route := r.URL.Path
			var tableType string
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
				tableType = rctx.URLParam("tableType")
			}

			logger := logging.FromContext(r.Context())
			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", ww.status,
				"duration_ms", duration.Milliseconds(),
				"ip", r.RemoteAddr,
			}
			if tableType != "" {
				args = append(args, "table_type", tableType)
			}
			if ww.status >= http.StatusInternalServerError {
				logger.Warn("request", args...)
			} else {
				logger.Info("request", args...)
			}

			if observer != nil {
				observer.ObserveRequest(r.Method, route, ww.status, duration)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap provides access to the underlying ResponseWriter for
// http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
