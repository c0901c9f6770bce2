package core

// validation.go checks table config documents before they are decoded.
//
// Validation runs on the raw document rather than the typed TableConfig so
// that type errors (a feature flag stored as "yes", a negative colspan) are
// reported as issues instead of aborting the decode. Every check runs and
// every problem is accumulated; nothing fails fast.
//
// Each issue carries a stable Code, the offending column index and field, so
// callers classify issues without parsing message text.

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/JonMunkholm/facilitytables/internal/schema"
)

// Issue codes.
const (
	CodeNoColumns          = "no_columns"
	CodeColumnNotObject    = "column_not_object"
	CodeMissingField       = "missing_field"
	CodeInvalidType        = "invalid_type"
	CodeMissingOptions     = "missing_options"
	CodeInvalidOptions     = "invalid_options"
	CodeInvalidNumber      = "invalid_number"
	CodeInvalidBoolean     = "invalid_boolean"
	CodeInvalidString      = "invalid_string"
	CodeDuplicateKey       = "duplicate_key"
	CodeWidthRange         = "width_range"
	CodeUnknownCondition   = "unknown_condition"
	CodeInvalidLayout      = "invalid_layout"
	CodeInvalidBreakpoint  = "invalid_breakpoint"
	CodeInvalidColsPerRow  = "invalid_columns_per_row"
	CodeInvalidStyling     = "invalid_styling"
	CodeInvalidFeature     = "invalid_feature"
	CodeInvalidSection     = "invalid_section"
	CodeInvalidMergeRule   = "invalid_merge_rule"
	CodeUnknownMergeColumn = "unknown_merge_column"
)

// NoColumn is the ColumnIndex of issues that do not concern a column.
const NoColumn = -1

// ValidationIssue is one problem found in a config.
type ValidationIssue struct {
	Code        string `json:"code"`
	ColumnIndex int    `json:"column_index"`
	Field       string `json:"field,omitempty"`
	ColumnKey   string `json:"column_key,omitempty"`
	Message     string `json:"message"`
}

func (i ValidationIssue) Error() string {
	return i.Message
}

// ValidationResult is the outcome of validating a config.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []string          `json:"errors"`
	Issues []ValidationIssue `json:"issues"`
}

func (r *ValidationResult) add(issue ValidationIssue) {
	r.Valid = false
	r.Errors = append(r.Errors, issue.Message)
	r.Issues = append(r.Issues, issue)
}

// Column fields by expected kind.
var (
	requiredColumnFields = []string{"key", "label", "type"}
	integerColumnFields  = []string{"decimals", "colspan", "header_level", "max_length"}
	numberColumnFields   = []string{"width", "min_width", "max_width"}
	booleanColumnFields  = []string{"required", "rowspan_group", "dynamic"}
	stringColumnFields   = []string{"header_group", "unit", "date_format", "css_class"}

	styleFields   = []string{"table_class", "header_class", "row_class", "cell_class", "empty_class", "responsive_class"}
	featureFields = []string{"comments", "sorting", "filtering", "dynamic_columns", "auto_width", "cell_merge", "export"}
	layoutBools   = []string{"show_headers", "hierarchical_headers"}

	conditionTypes = []string{
		schema.CondAlways, schema.CondHasData, schema.CondDataNotEmpty, schema.CondDataEquals,
		schema.CondFieldExists, schema.CondCustom, schema.CondNever,
	}
	mergeKinds = []string{schema.MergeHorizontal, schema.MergeVertical, schema.MergeComplex}
)

// Validate checks a config document and reports every problem found.
func Validate(doc schema.Document) ValidationResult {
	result := ValidationResult{Valid: true, Errors: []string{}, Issues: []ValidationIssue{}}
	if doc == nil {
		doc = schema.Document{}
	}

	keys := validateColumns(doc["columns"], &result)
	validateLayout(doc["layout"], &result)
	validateFlatSection(doc["styling"], "styling", styleFields, isString, CodeInvalidStyling,
		"Styling field '%s' must be a string", &result)
	validateFlatSection(doc["features"], "features", featureFields, isBool, CodeInvalidFeature,
		"Feature flag '%s' must be a boolean", &result)
	validateMerge(doc["merge"], keys, &result)

	return result
}

// ValidateConfig validates a typed config.
func ValidateConfig(cfg schema.TableConfig) ValidationResult {
	doc, err := schema.Encode(cfg)
	if err != nil {
		result := ValidationResult{Errors: []string{}, Issues: []ValidationIssue{}}
		result.add(ValidationIssue{Code: CodeInvalidSection, ColumnIndex: NoColumn, Message: err.Error()})
		return result
	}
	return Validate(doc)
}

func validateColumns(raw any, r *ValidationResult) map[string]bool {
	keys := make(map[string]bool)

	cols, ok := raw.([]any)
	if !ok || len(cols) == 0 {
		r.add(ValidationIssue{
			Code:        CodeNoColumns,
			ColumnIndex: NoColumn,
			Field:       "columns",
			Message:     "No columns defined: 'columns' must be a non-empty list",
		})
		return keys
	}

	for i, item := range cols {
		col, ok := item.(map[string]any)
		if !ok {
			r.add(ValidationIssue{
				Code:        CodeColumnNotObject,
				ColumnIndex: i,
				Message:     fmt.Sprintf("Column %d: missing required field 'key' (column is not an object)", i),
			})
			continue
		}
		key, _ := col["key"].(string)
		issue := func(code, field, format string, args ...any) {
			r.add(ValidationIssue{
				Code:        code,
				ColumnIndex: i,
				Field:       field,
				ColumnKey:   key,
				Message:     fmt.Sprintf("Column %d: ", i) + fmt.Sprintf(format, args...),
			})
		}

		for _, field := range requiredColumnFields {
			s, isStr := col[field].(string)
			if !isStr || strings.TrimSpace(s) == "" {
				issue(CodeMissingField, field, "missing required field '%s'", field)
			}
		}

		typ, _ := col["type"].(string)
		if typ != "" && !schema.ColumnType(typ).Valid() {
			issue(CodeInvalidType, "type", "Invalid type '%s'", typ)
		}
		switch opts := col["options"].(type) {
		case map[string]any:
			if len(opts) == 0 && typ == string(schema.TypeSelect) {
				issue(CodeMissingOptions, "options", "Invalid select column: 'options' must not be empty")
			}
			for _, k := range sortedKeys(opts) {
				if _, ok := opts[k].(string); !ok {
					issue(CodeInvalidOptions, "options", "Invalid option '%s': label must be a string", k)
				}
			}
		case nil:
			if typ == string(schema.TypeSelect) {
				issue(CodeMissingOptions, "options", "Invalid select column: 'options' is required")
			}
		default:
			issue(CodeInvalidOptions, "options", "Invalid options: must be a value-to-label map")
		}

		for _, field := range integerColumnFields {
			if v, present := col[field]; present && !isNonNegativeInt(v) {
				issue(CodeInvalidNumber, field, "Invalid value for '%s': must be a non-negative integer", field)
			}
		}
		for _, field := range numberColumnFields {
			if v, present := col[field]; present && !isNonNegativeNumber(v) {
				issue(CodeInvalidNumber, field, "Invalid value for '%s': must be a non-negative number", field)
			}
		}
		for _, field := range booleanColumnFields {
			if v, present := col[field]; present && !isBool(v) {
				issue(CodeInvalidBoolean, field, "Invalid value for '%s': must be a boolean", field)
			}
		}
		for _, field := range stringColumnFields {
			if v, present := col[field]; present && !isString(v) {
				issue(CodeInvalidString, field, "Invalid value for '%s': must be a string", field)
			}
		}

		if lo, hi := number(col["min_width"]), number(col["max_width"]); lo > 0 && hi > 0 && lo > hi {
			issue(CodeWidthRange, "min_width", "min_width %.4g exceeds max_width %.4g", lo, hi)
		}

		if cond, present := col["show_condition"]; present && cond != nil {
			condType := ""
			switch c := cond.(type) {
			case string:
				condType = c
			case map[string]any:
				condType, _ = c["type"].(string)
			default:
				issue(CodeUnknownCondition, "show_condition", "Invalid show_condition: must be a condition name or object")
			}
			if condType != "" && !slices.Contains(conditionTypes, condType) {
				issue(CodeUnknownCondition, "show_condition", "unknown show_condition type '%s'", condType)
			}
		}

		if key != "" {
			if keys[key] {
				issue(CodeDuplicateKey, "key", "Duplicate column key '%s'", key)
			}
			keys[key] = true
		}
	}
	return keys
}

func validateLayout(raw any, r *ValidationResult) {
	if raw == nil {
		return
	}
	layout, ok := raw.(map[string]any)
	if !ok {
		r.add(ValidationIssue{Code: CodeInvalidSection, ColumnIndex: NoColumn, Field: "layout",
			Message: "Invalid section 'layout': must be an object"})
		return
	}

	if v, present := layout["type"]; present {
		s, _ := v.(string)
		if !schema.LayoutType(s).Valid() {
			r.add(ValidationIssue{Code: CodeInvalidLayout, ColumnIndex: NoColumn, Field: "layout.type",
				Message: fmt.Sprintf("Invalid layout type '%v'", v)})
		}
	}
	if v, present := layout["responsive_breakpoint"]; present {
		s, _ := v.(string)
		if !slices.Contains(schema.Breakpoints, s) {
			r.add(ValidationIssue{Code: CodeInvalidBreakpoint, ColumnIndex: NoColumn, Field: "layout.responsive_breakpoint",
				Message: fmt.Sprintf("Invalid responsive_breakpoint '%v': must be one of %s", v, strings.Join(schema.Breakpoints, ", "))})
		}
	}
	if v, present := layout["columns_per_row"]; present {
		if !isNonNegativeInt(v) || number(v) < 1 || number(v) > 4 {
			r.add(ValidationIssue{Code: CodeInvalidColsPerRow, ColumnIndex: NoColumn, Field: "layout.columns_per_row",
				Message: fmt.Sprintf("Invalid columns_per_row '%v': must be an integer between 1 and 4", v)})
		}
	}
	for _, field := range layoutBools {
		if v, present := layout[field]; present && !isBool(v) {
			r.add(ValidationIssue{Code: CodeInvalidBoolean, ColumnIndex: NoColumn, Field: "layout." + field,
				Message: fmt.Sprintf("Invalid value for 'layout.%s': must be a boolean", field)})
		}
	}
}

func validateFlatSection(raw any, section string, fields []string, check func(any) bool, code, format string, r *ValidationResult) {
	if raw == nil {
		return
	}
	m, ok := raw.(map[string]any)
	if !ok {
		r.add(ValidationIssue{Code: CodeInvalidSection, ColumnIndex: NoColumn, Field: section,
			Message: fmt.Sprintf("Invalid section '%s': must be an object", section)})
		return
	}
	for _, field := range fields {
		if v, present := m[field]; present && !check(v) {
			r.add(ValidationIssue{Code: code, ColumnIndex: NoColumn, Field: section + "." + field,
				Message: fmt.Sprintf(format, field)})
		}
	}
}

func validateMerge(raw any, keys map[string]bool, r *ValidationResult) {
	if raw == nil {
		return
	}
	rules, ok := raw.([]any)
	if !ok {
		r.add(ValidationIssue{Code: CodeInvalidSection, ColumnIndex: NoColumn, Field: "merge",
			Message: "Invalid section 'merge': must be a list"})
		return
	}
	for i, item := range rules {
		rule, ok := item.(map[string]any)
		if !ok {
			r.add(ValidationIssue{Code: CodeInvalidMergeRule, ColumnIndex: NoColumn, Field: "merge",
				Message: fmt.Sprintf("Merge rule %d: must be an object", i)})
			continue
		}
		kind, _ := rule["kind"].(string)
		if !slices.Contains(mergeKinds, kind) {
			r.add(ValidationIssue{Code: CodeInvalidMergeRule, ColumnIndex: NoColumn, Field: "merge.kind",
				Message: fmt.Sprintf("Merge rule %d: Invalid kind '%v'", i, rule["kind"])})
		}
		cols, _ := rule["columns"].([]any)
		if len(cols) == 0 {
			r.add(ValidationIssue{Code: CodeInvalidMergeRule, ColumnIndex: NoColumn, Field: "merge.columns",
				Message: fmt.Sprintf("Merge rule %d: 'columns' must be a non-empty list", i)})
		}
		for _, c := range cols {
			if s, _ := c.(string); !keys[s] {
				r.add(ValidationIssue{Code: CodeUnknownMergeColumn, ColumnIndex: NoColumn, Field: "merge.columns",
					Message: fmt.Sprintf("Merge rule %d: references unknown column '%v'", i, c)})
			}
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// number returns v as a float, or NaN if v is not numeric.
func number(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case uint64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

func isNonNegativeNumber(v any) bool {
	n := number(v)
	return !math.IsNaN(n) && n >= 0
}

func isNonNegativeInt(v any) bool {
	n := number(v)
	return !math.IsNaN(n) && n >= 0 && n == math.Trunc(n)
}
