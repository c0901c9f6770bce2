package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "config not found by kind",
			err:         NewEngineError(KindConfigNotFound, "basic_info", errors.New("store down")),
			wantCode:    "CFG001",
			wantMessage: "Table type is not configured",
		},
		{
			name:        "validation failure by kind wins over issue text",
			err:         NewEngineError(KindConfigValidationFailed, "basic_info", nil, ValidationIssue{Message: "Column 1: Duplicate column key 'name'"}),
			wantCode:    "CFG002",
			wantMessage: "The table configuration has errors",
		},
		{
			name:        "render failure by kind",
			err:         NewEngineError(KindRenderFailed, "land_info", errors.New("boom")),
			wantCode:    "RND001",
			wantMessage: "The table could not be displayed normally",
		},
		{
			name:        "mutation refined to missing column",
			err:         NewEngineError(KindColumnMutationInvalid, "basic_info", errors.New(`column not found: "fax"`)),
			wantCode:    "COL002",
			wantMessage: "The column does not exist in this table",
		},
		{
			name:        "mutation refined to duplicate key",
			err:         NewEngineError(KindColumnMutationInvalid, "basic_info", errors.New("Duplicate column key 'name'")),
			wantCode:    "COL003",
			wantMessage: "A column with this key already exists",
		},
		{
			name:        "generic mutation error",
			err:         NewEngineError(KindColumnMutationInvalid, "basic_info", errors.New("width too wide")),
			wantCode:    "COL001",
			wantMessage: "The column change was rejected",
		},
		{
			name:        "wrapped sentinel",
			err:         fmt.Errorf("handler: %w", ErrRenderFailed),
			wantCode:    "RND001",
			wantMessage: "The table could not be displayed normally",
		},
		{
			name:        "yaml parse error",
			err:         errors.New("parse yaml: line 3: mapping values are not allowed"),
			wantCode:    "CFG003",
			wantMessage: "The configuration file could not be parsed",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			wantCode:    "STO001",
			wantMessage: "Configuration storage could not be reached",
		},
		{
			name:        "timeout maps correctly",
			err:         errors.New("context deadline exceeded"),
			wantCode:    "STO002",
			wantMessage: "Configuration storage did not respond",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("UNKNOWN TABLE TYPE"),
			wantCode:    "CFG001",
			wantMessage: "Table type is not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := NewEngineError(KindRenderFailed, "basic_info", errors.New("boom"))
	result := FormatUserError(err)

	expected := "The table could not be displayed normally (Code: RND001). A simplified table is shown; please report this code"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrConfigNotFound,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := errors.New("dial tcp: connection refused")
		userErr := NewUserError(techErr)

		if userErr.Error() != "Configuration storage could not be reached" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}

func TestCreateDetailedErrorMessages(t *testing.T) {
	result := Validate(map[string]any{
		"columns": []any{
			map[string]any{"key": "kind", "label": "種別", "type": "select"},
			map[string]any{"key": "name", "type": "text"},
		},
	})
	details := CreateDetailedErrorMessages(result.Issues, "basic_info")

	got := make([]DetailedError, len(details))
	for i, d := range details {
		got[i] = DetailedError{Code: d.Code, Severity: d.Severity, Context: d.Context}
	}
	want := []DetailedError{
		{Code: CodeMissingOptions, Severity: SeverityError, Context: "kind"},
		{Code: CodeMissingField, Severity: SeverityCritical, Context: "name"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("details mismatch (-want +got):\n%s", diff)
	}
	for _, d := range details {
		if d.Suggestion == "" {
			t.Errorf("%s: empty suggestion", d.Code)
		}
	}
	if sev := HighestSeverity(details); sev != SeverityCritical {
		t.Errorf("HighestSeverity() = %q, want critical", sev)
	}
}

func TestDetailedFromStrings(t *testing.T) {
	tests := []struct {
		msg  string
		want Severity
	}{
		{"Column 2: missing required field 'label'", SeverityCritical},
		{"No columns defined", SeverityCritical},
		{"Invalid select column: 'options' is required", SeverityError},
		{"Column 1: Duplicate column key 'name'", SeverityError},
		{"something looks odd", SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got := DetailedFromStrings([]string{tt.msg}, "basic_info")
			if len(got) != 1 {
				t.Fatalf("got %d details, want 1", len(got))
			}
			if got[0].Severity != tt.want {
				t.Errorf("severity = %q, want %q", got[0].Severity, tt.want)
			}
			if got[0].Context != "basic_info" {
				t.Errorf("context = %q, want table type", got[0].Context)
			}
		})
	}
}

func TestEngineErrorIs(t *testing.T) {
	issue := ValidationIssue{Code: CodeNoColumns, ColumnIndex: NoColumn, Message: "No columns defined"}
	err := fmt.Errorf("loading: %w", NewEngineError(KindConfigValidationFailed, "land_info", nil, issue))

	if !errors.Is(err, ErrConfigValidationFailed) {
		t.Error("errors.Is(ErrConfigValidationFailed) = false")
	}
	if errors.Is(err, ErrRenderFailed) {
		t.Error("errors.Is(ErrRenderFailed) = true")
	}
	if KindOf(err) != KindConfigValidationFailed {
		t.Errorf("KindOf() = %q", KindOf(err))
	}
	if diff := cmp.Diff([]ValidationIssue{issue}, IssuesOf(err)); diff != "" {
		t.Errorf("IssuesOf mismatch (-want +got):\n%s", diff)
	}
}
