package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/facilitytables/internal/config"
)

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.SecurityConfig
		key     string
		want    int
		wantKey string
	}{
		{"disabled", config.SecurityConfig{}, "", http.StatusOK, ""},
		{"missing key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"a"}}, "", http.StatusUnauthorized, ""},
		{"wrong key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"a"}}, "b", http.StatusForbidden, ""},
		{"second key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"a", "b"}}, "b", http.StatusOK, "api-key-2"},
		{"no keys configured", config.SecurityConfig{RequireAPIKey: true}, "a", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotKey string
			h := APIKeyAuth(&tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotKey = KeyIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if gotKey != tt.wantKey {
				t.Errorf("key id = %q, want %q", gotKey, tt.wantKey)
			}
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"no proxies configured", nil, "10.0.0.1:1234", map[string]string{"X-Real-IP": "1.2.3.4"}, "10.0.0.1:1234"},
		{"untrusted source", []string{"10.0.0.0/8"}, "192.168.1.1:1234", map[string]string{"X-Real-IP": "1.2.3.4"}, "192.168.1.1:1234"},
		{"trusted real ip", []string{"10.0.0.0/8"}, "10.0.0.1:1234", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted forwarded for", []string{"10.0.0.1"}, "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"}, "5.6.7.8"},
		{"invalid header ignored", []string{"10.0.0.0/8"}, "10.0.0.1:1234", map[string]string{"X-Real-IP": "not-an-ip"}, "10.0.0.1:1234"},
		{"invalid cidr skipped", []string{"bogus", "::1"}, "[::1]:80", map[string]string{"X-Real-IP": "2001:db8::1"}, "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

type observed struct {
	method, route string
	code          int
}

type recordingObserver struct{ calls []observed }

func (o *recordingObserver) ObserveRequest(method, route string, code int, _ time.Duration) {
	o.calls = append(o.calls, observed{method, route, code})
}

func TestLoggerReportsRoutePattern(t *testing.T) {
	obs := &recordingObserver{}
	r := chi.NewRouter()
	r.Use(Logger(obs))
	r.Get("/api/tables/{tableType}/config", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tables/basic_info/config", nil))

	if len(obs.calls) != 1 {
		t.Fatalf("observer called %d times", len(obs.calls))
	}
	want := observed{http.MethodGet, "/api/tables/{tableType}/config", http.StatusTeapot}
	if obs.calls[0] != want {
		t.Errorf("observed %+v, want %+v", obs.calls[0], want)
	}
}

func TestLoggerNilObserver(t *testing.T) {
	h := Logger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}
