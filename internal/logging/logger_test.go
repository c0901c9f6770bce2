package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewHandler(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		slog.New(NewHandler(&buf, "info", "json")).Info("config saved", "table_type", "basic_info")
		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("not json: %q", buf.String())
		}
		if rec["table_type"] != "basic_info" {
			t.Errorf("record = %v", rec)
		}
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		slog.New(NewHandler(&buf, "warn", "text")).Info("hidden")
		if buf.Len() != 0 {
			t.Errorf("info logged at warn level: %q", buf.String())
		}
	})

	t.Run("pretty without terminal has no colour", func(t *testing.T) {
		var buf bytes.Buffer
		slog.New(NewHandler(&buf, "debug", "pretty")).Debug("warming", "tables", 9)
		out := buf.String()
		if !strings.Contains(out, "warming") || !strings.Contains(out, "tables=9") {
			t.Errorf("unexpected output %q", out)
		}
		if strings.Contains(out, "\x1b[") {
			t.Errorf("colour codes written to a non-terminal: %q", out)
		}
	})
}

func TestFromContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(NewHandler(&buf, "info", "text")))
	defer slog.SetDefault(prev)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	WithFields(ctx, "table_type", "land_info").Info("rendered")

	out := buf.String()
	if !strings.Contains(out, "request_id=req-42") || !strings.Contains(out, "table_type=land_info") {
		t.Errorf("missing fields in %q", out)
	}
}
