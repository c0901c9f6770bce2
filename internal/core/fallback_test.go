package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/facilitytables/internal/schema"
	"github.com/google/go-cmp/cmp"
)

func newTestHandler() (*ErrorHandler, *recordingMonitor) {
	mon := &recordingMonitor{}
	h := NewErrorHandler(RegistryDefaults, mon)
	h.newID = func() string { return "abc123" }
	return h, mon
}

func TestRepair(t *testing.T) {
	h, _ := newTestHandler()

	tests := []struct {
		name string
		doc  map[string]any
		want []any
	}{
		{
			name: "no columns gets a placeholder",
			doc:  map[string]any{},
			want: []any{
				map[string]any{"key": "column_abc123", "label": "項目 1", "type": "text"},
			},
		},
		{
			name: "missing fields are filled",
			doc: map[string]any{"columns": []any{
				map[string]any{"label": "名前"},
				map[string]any{"key": "b", "type": "money"},
			}},
			want: []any{
				map[string]any{"key": "column_abc123", "label": "名前", "type": "text"},
				map[string]any{"key": "b", "label": "項目 2", "type": "text"},
			},
		},
		{
			name: "select without options gets a placeholder option",
			doc: map[string]any{"columns": []any{
				col("kind", "種別", "select"),
			}},
			want: []any{
				map[string]any{"key": "kind", "label": "種別", "type": "select",
					"options": map[string]any{"unset": "未設定"}},
			},
		},
		{
			name: "option labels are stringified",
			doc: map[string]any{"columns": []any{
				func() map[string]any {
					c := col("kind", "種別", "select")
					c["options"] = map[string]any{"1": 10}
					return c
				}(),
			}},
			want: []any{
				map[string]any{"key": "kind", "label": "種別", "type": "select",
					"options": map[string]any{"1": "10"}},
			},
		},
		{
			name: "duplicate keys are suffixed",
			doc: map[string]any{"columns": []any{
				col("name", "A", "text"),
				col("name", "B", "text"),
				col("name", "C", "text"),
			}},
			want: []any{
				map[string]any{"key": "name", "label": "A", "type": "text"},
				map[string]any{"key": "name_2", "label": "B", "type": "text"},
				map[string]any{"key": "name_3", "label": "C", "type": "text"},
			},
		},
		{
			name: "mistyped optional fields are dropped",
			doc: map[string]any{"columns": []any{
				func() map[string]any {
					c := col("a", "A", "number")
					c["decimals"] = -2
					c["required"] = "yes"
					c["width"] = 12
					c["show_condition"] = "sometimes"
					return c
				}(),
			}},
			want: []any{
				map[string]any{"key": "a", "label": "A", "type": "number", "width": 12},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repaired := h.Repair(tt.doc)
			if diff := cmp.Diff(tt.want, repaired["columns"]); diff != "" {
				t.Errorf("columns mismatch (-want +got):\n%s", diff)
			}
			if result := Validate(repaired); !result.Valid {
				t.Errorf("repaired document still invalid: %v", result.Errors)
			}
		})
	}
}

func TestRepairSections(t *testing.T) {
	h, _ := newTestHandler()
	doc := map[string]any{
		"columns": []any{col("a", "A", "text")},
		"layout": map[string]any{
			"type":                  "carousel",
			"responsive_breakpoint": "xxl",
			"columns_per_row":       9,
			"show_headers":          "yes",
		},
		"styling":  map[string]any{"table_class": 3, "row_class": "r"},
		"features": "all",
		"merge": []any{
			map[string]any{"kind": "horizontal", "columns": []any{"a", "gone"}},
			map[string]any{"kind": "diagonal", "columns": []any{"a"}},
			map[string]any{"kind": "vertical", "columns": []any{"gone"}},
		},
	}

	repaired := h.Repair(doc)
	want := map[string]any{
		"columns": []any{col("a", "A", "text")},
		"layout":  map[string]any{"type": "standard_table", "columns_per_row": 4},
		"styling": map[string]any{"row_class": "r"},
		"merge":   []any{map[string]any{"kind": "horizontal", "columns": []any{"a"}}},
	}
	if diff := cmp.Diff(want, map[string]any(repaired)); diff != "" {
		t.Errorf("repair mismatch (-want +got):\n%s", diff)
	}
	if doc["layout"].(map[string]any)["type"] != "carousel" {
		t.Error("Repair modified its input")
	}
}

func TestHandleValidationError(t *testing.T) {
	h, mon := newTestHandler()
	ctx := context.Background()

	t.Run("repairable document is repaired", func(t *testing.T) {
		doc := map[string]any{"columns": []any{col("kind", "種別", "select")}}
		cfg := h.HandleValidationError(ctx, "basic_info", doc, Validate(doc))
		if len(cfg.Columns) != 1 || cfg.Columns[0].Options["unset"] != "未設定" {
			t.Errorf("unexpected repaired config: %+v", cfg.Columns)
		}
	})

	t.Run("unrepairable document falls back to defaults", func(t *testing.T) {
		// The condition field is not a string, which repair does not touch
		// and which fails decoding.
		doc := map[string]any{"columns": []any{
			col("kind", "種別", "select"),
			func() map[string]any {
				c := col("a", "A", "text")
				c["show_condition"] = map[string]any{"type": "field_exists", "field": 5}
				return c
			}(),
		}}
		cfg := h.HandleValidationError(ctx, "basic_info", doc, Validate(doc))
		if diff := cmp.Diff(testBasicConfig(), cfg); diff != "" {
			t.Errorf("expected type default (-want +got):\n%s", diff)
		}
	})

	if len(mon.failures) != 2 || mon.failures[0] != "config_validation_failed/warning" {
		t.Errorf("monitor failures = %v", mon.failures)
	}
}

func TestHandleConfigError(t *testing.T) {
	h, mon := newTestHandler()
	ctx := context.Background()

	cfg := h.HandleConfigError(ctx, "basic_info", errStoreDown)
	if diff := cmp.Diff(testBasicConfig(), cfg); diff != "" {
		t.Errorf("expected type default (-want +got):\n%s", diff)
	}

	cfg = h.HandleConfigError(ctx, "no_such_table", errors.New("unknown table type"))
	if diff := cmp.Diff(MinimalConfig(), cfg); diff != "" {
		t.Errorf("expected minimal config (-want +got):\n%s", diff)
	}

	cfg = h.HandleConfigError(ctx, "broken_defaults", errStoreDown)
	if diff := cmp.Diff(MinimalConfig(), cfg); diff != "" {
		t.Errorf("invalid defaults should fall through to minimal (-want +got):\n%s", diff)
	}

	if len(mon.failures) != 3 || mon.failures[0] != "config_not_found/warning" {
		t.Errorf("monitor failures = %v", mon.failures)
	}
}

func TestMinimalConfigValidates(t *testing.T) {
	if result := ValidateConfig(MinimalConfig()); !result.Valid {
		t.Errorf("minimal config invalid: %v", result.Errors)
	}
}

func TestMinimalTable(t *testing.T) {
	tests := []struct {
		name      string
		rows      []schema.Row
		wantCells [][2]string
	}{
		{
			name:      "nil rows",
			rows:      nil,
			wantCells: [][2]string{{"データ", MinimalEmptyValue}},
		},
		{
			name: "single row is listed by key",
			rows: []schema.Row{{"name": "<b>さくら苑</b>", "fax": nil}},
			wantCells: [][2]string{
				{"fax", "未設定"},
				{"name", "&lt;b&gt;さくら苑&lt;/b&gt;"},
			},
		},
		{
			name: "multiple rows are prefixed",
			rows: []schema.Row{{"a": 1}, {"a": 2}},
			wantCells: [][2]string{
				{"1: a", "1"},
				{"2: a", "2"},
			},
		},
		{
			name: "malformed values",
			rows: []schema.Row{{"f": func() {}, "ch": make(chan int)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := MinimalTable("basic_info", tt.rows, errors.New("boom"))
			if table == nil {
				t.Fatal("nil table")
			}
			if table.Mode != RenderMinimal || table.Notice != MinimalNotice {
				t.Errorf("mode/notice = %q/%q", table.Mode, table.Notice)
			}
			if len(table.Rows) == 0 {
				t.Fatal("minimal table has no rows")
			}
			for _, row := range table.Rows {
				if len(row.Cells) != 2 {
					t.Fatalf("row has %d cells, want 2", len(row.Cells))
				}
			}
			if tt.wantCells == nil {
				return
			}
			got := make([][2]string, len(table.Rows))
			for i, row := range table.Rows {
				got[i] = [2]string{row.Cells[0].Value, row.Cells[1].Value}
			}
			if diff := cmp.Diff(tt.wantCells, got); diff != "" {
				t.Errorf("cells mismatch (-want +got):\n%s", diff)
			}
			if !strings.Contains(strings.Join(table.Warnings, " "), "RND001") &&
				!strings.Contains(strings.Join(table.Warnings, " "), "ERR000") {
				t.Errorf("warnings should carry a user error code: %v", table.Warnings)
			}
		})
	}
}
