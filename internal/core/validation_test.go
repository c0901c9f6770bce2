package core

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func col(key, label, typ string) map[string]any {
	m := map[string]any{}
	if key != "" {
		m["key"] = key
	}
	if label != "" {
		m["label"] = label
	}
	if typ != "" {
		m["type"] = typ
	}
	return m
}

func TestValidateValidConfig(t *testing.T) {
	cfg := testBasicConfig()
	result := ValidateConfig(cfg)
	if !result.Valid {
		t.Fatalf("expected valid, got errors: %v", result.Errors)
	}
	if len(result.Errors) != 0 || len(result.Issues) != 0 {
		t.Errorf("valid config reported errors: %v", result.Errors)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		doc       map[string]any
		wantCodes []string
		wantText  []string
	}{
		{
			name:      "no columns",
			doc:       map[string]any{},
			wantCodes: []string{CodeNoColumns},
		},
		{
			name:      "empty columns",
			doc:       map[string]any{"columns": []any{}},
			wantCodes: []string{CodeNoColumns},
		},
		{
			name: "missing label names field and index",
			doc: map[string]any{"columns": []any{
				col("a", "A", "text"),
				col("b", "B", "text"),
				col("c", "", "text"),
			}},
			wantCodes: []string{CodeMissingField},
			wantText:  []string{"Column 2: missing required field 'label'"},
		},
		{
			name:      "column not an object",
			doc:       map[string]any{"columns": []any{"name"}},
			wantCodes: []string{CodeColumnNotObject},
		},
		{
			name:      "invalid type",
			doc:       map[string]any{"columns": []any{col("a", "A", "money")}},
			wantCodes: []string{CodeInvalidType},
			wantText:  []string{"Invalid type 'money'"},
		},
		{
			name:      "select without options",
			doc:       map[string]any{"columns": []any{col("a", "A", "select")}},
			wantCodes: []string{CodeMissingOptions},
			wantText:  []string{"Column 0: Invalid select column: 'options' is required"},
		},
		{
			name: "select with non-string label",
			doc: map[string]any{"columns": []any{
				func() map[string]any {
					c := col("a", "A", "select")
					c["options"] = map[string]any{"1": "one", "2": 2}
					return c
				}(),
			}},
			wantCodes: []string{CodeInvalidOptions},
		},
		{
			name: "duplicate key",
			doc: map[string]any{"columns": []any{
				col("name", "名前", "text"),
				col("name", "名前2", "text"),
			}},
			wantCodes: []string{CodeDuplicateKey},
			wantText:  []string{"Duplicate column key 'name'"},
		},
		{
			name: "numeric and boolean fields",
			doc: map[string]any{"columns": []any{
				func() map[string]any {
					c := col("a", "A", "number")
					c["decimals"] = -1
					c["colspan"] = 1.5
					c["min_width"] = "wide"
					c["required"] = "yes"
					c["unit"] = 3
					return c
				}(),
			}},
			wantCodes: []string{CodeInvalidNumber, CodeInvalidNumber, CodeInvalidNumber, CodeInvalidBoolean, CodeInvalidString},
		},
		{
			name: "min width above max width",
			doc: map[string]any{"columns": []any{
				func() map[string]any {
					c := col("a", "A", "text")
					c["min_width"] = 30
					c["max_width"] = 10
					return c
				}(),
			}},
			wantCodes: []string{CodeWidthRange},
		},
		{
			name: "unknown show condition",
			doc: map[string]any{"columns": []any{
				func() map[string]any {
					c := col("a", "A", "text")
					c["show_condition"] = map[string]any{"type": "sometimes"}
					return c
				}(),
			}},
			wantCodes: []string{CodeUnknownCondition},
		},
		{
			name: "layout problems",
			doc: map[string]any{
				"columns": []any{col("a", "A", "text")},
				"layout": map[string]any{
					"type":                  "carousel",
					"responsive_breakpoint": "xxl",
					"columns_per_row":       5,
					"show_headers":          "true",
				},
			},
			wantCodes: []string{CodeInvalidLayout, CodeInvalidBreakpoint, CodeInvalidColsPerRow, CodeInvalidBoolean},
		},
		{
			name: "styling and features",
			doc: map[string]any{
				"columns":  []any{col("a", "A", "text")},
				"styling":  map[string]any{"table_class": 1},
				"features": map[string]any{"sorting": "yes", "export": true},
			},
			wantCodes: []string{CodeInvalidStyling, CodeInvalidFeature},
		},
		{
			name: "section of wrong shape",
			doc: map[string]any{
				"columns": []any{col("a", "A", "text")},
				"layout":  "wide",
			},
			wantCodes: []string{CodeInvalidSection},
		},
		{
			name: "merge rules",
			doc: map[string]any{
				"columns": []any{col("a", "A", "text")},
				"merge": []any{
					map[string]any{"kind": "diagonal", "columns": []any{"a"}},
					map[string]any{"kind": "horizontal", "columns": []any{"a", "zz"}},
				},
			},
			wantCodes: []string{CodeInvalidMergeRule, CodeUnknownMergeColumn},
		},
		{
			name: "errors accumulate across columns",
			doc: map[string]any{"columns": []any{
				col("", "A", "text"),
				col("b", "", "select"),
			}},
			wantCodes: []string{CodeMissingField, CodeMissingField, CodeMissingOptions},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.doc)
			if result.Valid {
				t.Fatal("expected invalid result")
			}
			codes := make([]string, len(result.Issues))
			for i, issue := range result.Issues {
				codes[i] = issue.Code
			}
			if diff := cmp.Diff(tt.wantCodes, codes); diff != "" {
				t.Errorf("issue codes mismatch (-want +got):\n%s\nerrors: %v", diff, result.Errors)
			}
			if len(result.Errors) != len(result.Issues) {
				t.Errorf("Errors and Issues disagree: %d vs %d", len(result.Errors), len(result.Issues))
			}
			for _, want := range tt.wantText {
				found := false
				for _, msg := range result.Errors {
					if strings.Contains(msg, want) {
						found = true
					}
				}
				if !found {
					t.Errorf("no error contains %q; got %v", want, result.Errors)
				}
			}
		})
	}
}

func TestValidateIssueLocation(t *testing.T) {
	result := Validate(map[string]any{"columns": []any{
		col("a", "A", "text"),
		col("b", "", "text"),
	}})
	if len(result.Issues) != 1 {
		t.Fatalf("got %d issues, want 1: %v", len(result.Issues), result.Errors)
	}
	want := ValidationIssue{
		Code:        CodeMissingField,
		ColumnIndex: 1,
		Field:       "label",
		ColumnKey:   "b",
		Message:     "Column 1: missing required field 'label'",
	}
	if diff := cmp.Diff(want, result.Issues[0]); diff != "" {
		t.Errorf("issue mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateYAMLDocument(t *testing.T) {
	// yaml decodes integers as int, JSON as float64; both must pass.
	for _, width := range []any{20, 20.0, int64(20)} {
		c := col("a", "A", "text")
		c["width"] = width
		c["decimals"] = width
		if result := Validate(map[string]any{"columns": []any{c}}); !result.Valid {
			t.Errorf("width %T rejected: %v", width, result.Errors)
		}
	}
}
