package core

// fallback.go guarantees that every engine entry point ends in a usable
// result.
//
// Config chain:     stored document -> repaired document -> type default -> minimal
// Render chain:     primary render  -> legacy render     -> minimal table
//
// Failures are logged by class (config not found: warn, validation: warn,
// render: error) and forwarded to the Monitor.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/JonMunkholm/facilitytables/internal/format"
	"github.com/JonMunkholm/facilitytables/internal/schema"
	"github.com/JonMunkholm/facilitytables/internal/strategy"
	"github.com/google/uuid"
)

// Placeholder values written by Repair.
const (
	PlaceholderLabel       = "項目"
	PlaceholderOptionValue = "unset"
	PlaceholderOptionLabel = "未設定"
	MinimalNotice          = "表示中に問題が発生したため、簡易表示に切り替えました。"
	MinimalEmptyValue      = "データがありません"
)

// ErrorHandler resolves engine failures into fallback results.
type ErrorHandler struct {
	defaults DefaultConfigProvider
	monitor  Monitor

	// newID generates placeholder key suffixes.
	newID func() string
}

// NewErrorHandler creates an ErrorHandler. A nil monitor is allowed.
func NewErrorHandler(defaults DefaultConfigProvider, monitor Monitor) *ErrorHandler {
	if monitor == nil {
		monitor = nopMonitor{}
	}
	if defaults == nil {
		defaults = RegistryDefaults
	}
	return &ErrorHandler{
		defaults: defaults,
		monitor:  monitor,
		newID:    func() string { return uuid.NewString()[:8] },
	}
}

// HandleConfigError substitutes the type default, or the minimal config when
// no valid default exists.
func (h *ErrorHandler) HandleConfigError(ctx context.Context, tableType string, err error) schema.TableConfig {
	slog.Warn("table config unavailable, using default",
		"table_type", tableType,
		"error", err,
	)
	h.monitor.ReportFailure(string(KindConfigNotFound), tableType, string(SeverityWarning), err)
	return h.defaultOrMinimal(tableType)
}

// HandleValidationError repairs doc and returns it if it then validates;
// otherwise the type default (or minimal config) is returned.
func (h *ErrorHandler) HandleValidationError(ctx context.Context, tableType string, doc schema.Document, result ValidationResult) schema.TableConfig {
	err := NewEngineError(KindConfigValidationFailed, tableType, nil, result.Issues...)
	slog.Warn("table config invalid, attempting repair",
		"table_type", tableType,
		"issues", len(result.Issues),
		"errors", result.Errors,
	)
	h.monitor.ReportFailure(string(KindConfigValidationFailed), tableType, string(SeverityWarning), err)

	repaired := h.Repair(doc)
	if after := Validate(repaired); after.Valid {
		cfg, decodeErr := schema.Decode(repaired)
		if decodeErr == nil {
			slog.Info("table config repaired", "table_type", tableType)
			return cfg
		}
		slog.Warn("repaired config failed to decode", "table_type", tableType, "error", decodeErr)
	} else {
		slog.Warn("table config still invalid after repair",
			"table_type", tableType,
			"errors", after.Errors,
		)
	}
	return h.defaultOrMinimal(tableType)
}

func (h *ErrorHandler) defaultOrMinimal(tableType string) schema.TableConfig {
	cfg, err := h.defaults.DefaultConfig(tableType)
	if err == nil {
		res := ValidateConfig(cfg)
		if res.Valid {
			return cfg
		}
		err = fmt.Errorf("default config invalid: %s", strings.Join(res.Errors, "; "))
	}
	slog.Warn("no usable default config, using minimal fallback",
		"table_type", tableType,
		"error", err,
	)
	return MinimalConfig()
}

// MinimalConfig is the last-resort config: one text column.
func MinimalConfig() schema.TableConfig {
	return schema.TableConfig{
		Columns: []schema.ColumnSpec{
			{Key: "value", Label: "内容", Type: schema.TypeText},
		},
		Layout: schema.LayoutSpec{
			Type:        schema.LayoutStandardTable,
			ShowHeaders: true,
		},
		Styling: schema.StyleSpec{
			TableClass: "table table-minimal",
			EmptyClass: "text-muted",
		},
		Features: schema.FeatureFlags{},
	}
}

// Repair returns a copy of doc with every issue the validator reports fixed
// by substitution or removal:
//
//   - no columns: a placeholder text column is added
//   - missing key, label or type: placeholders are generated (keys get a
//     short random suffix), invalid types become text
//   - select columns without usable options get a placeholder option
//   - mistyped optional fields are dropped; duplicate keys are suffixed
//   - invalid layout, styling, feature and merge entries are reset or dropped
func (h *ErrorHandler) Repair(doc schema.Document) schema.Document {
	out, _ := deepCopy(doc).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}

	out["columns"] = h.repairColumns(out["columns"])
	keys := make(map[string]bool)
	for _, c := range out["columns"].([]any) {
		keys[c.(map[string]any)["key"].(string)] = true
	}

	out["layout"] = repairLayout(out["layout"])
	repairFlat(out, "styling", styleFields, isString)
	repairFlat(out, "features", featureFields, isBool)
	repairMerge(out, keys)
	return out
}

func (h *ErrorHandler) placeholderColumn(i int) map[string]any {
	return map[string]any{
		"key":   "column_" + h.newID(),
		"label": fmt.Sprintf("%s %d", PlaceholderLabel, i+1),
		"type":  string(schema.TypeText),
	}
}

func (h *ErrorHandler) repairColumns(raw any) []any {
	cols, _ := raw.([]any)
	if len(cols) == 0 {
		return []any{h.placeholderColumn(0)}
	}

	out := make([]any, 0, len(cols))
	seen := make(map[string]int)
	for i, item := range cols {
		col, ok := item.(map[string]any)
		if !ok {
			out = append(out, h.placeholderColumn(i))
			continue
		}

		if s, _ := col["key"].(string); strings.TrimSpace(s) == "" {
			col["key"] = "column_" + h.newID()
		}
		if s, _ := col["label"].(string); strings.TrimSpace(s) == "" {
			col["label"] = fmt.Sprintf("%s %d", PlaceholderLabel, i+1)
		}
		if s, _ := col["type"].(string); !schema.ColumnType(s).Valid() {
			col["type"] = string(schema.TypeText)
		}

		if col["type"] == string(schema.TypeSelect) {
			col["options"] = repairOptions(col["options"], true)
		} else if _, present := col["options"]; present {
			col["options"] = repairOptions(col["options"], false)
		}

		for _, field := range integerColumnFields {
			if v, present := col[field]; present && !isNonNegativeInt(v) {
				delete(col, field)
			}
		}
		for _, field := range numberColumnFields {
			if v, present := col[field]; present && !isNonNegativeNumber(v) {
				delete(col, field)
			}
		}
		for _, field := range booleanColumnFields {
			if v, present := col[field]; present && !isBool(v) {
				delete(col, field)
			}
		}
		for _, field := range stringColumnFields {
			if v, present := col[field]; present && !isString(v) {
				delete(col, field)
			}
		}
		if lo, hi := number(col["min_width"]), number(col["max_width"]); lo > 0 && hi > 0 && lo > hi {
			delete(col, "min_width")
			delete(col, "max_width")
		}
		if !validCondition(col["show_condition"]) {
			delete(col, "show_condition")
		}

		key := col["key"].(string)
		if n := seen[key]; n > 0 {
			candidate := fmt.Sprintf("%s_%d", key, n+1)
			for seen[candidate] > 0 {
				n++
				candidate = fmt.Sprintf("%s_%d", key, n+1)
			}
			seen[key] = n + 1
			key = candidate
			col["key"] = key
		}
		seen[key]++

		out = append(out, col)
	}
	return out
}

func repairOptions(raw any, placeholder bool) map[string]any {
	opts, _ := raw.(map[string]any)
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		if s, ok := v.(string); ok {
			out[k] = s
		} else if v != nil {
			out[k] = format.Stringify(v)
		}
	}
	if len(out) == 0 && placeholder {
		out[PlaceholderOptionValue] = PlaceholderOptionLabel
	}
	return out
}

func validCondition(raw any) bool {
	switch c := raw.(type) {
	case nil:
		return true
	case string:
		return c == "" || slices.Contains(conditionTypes, c)
	case map[string]any:
		t, _ := c["type"].(string)
		return t == "" || slices.Contains(conditionTypes, t)
	}
	return false
}

func repairLayout(raw any) map[string]any {
	layout, ok := raw.(map[string]any)
	if !ok {
		return map[string]any{
			"type":         string(schema.LayoutStandardTable),
			"show_headers": true,
		}
	}
	if s, _ := layout["type"].(string); !schema.LayoutType(s).Valid() {
		layout["type"] = string(schema.LayoutStandardTable)
	}
	if v, present := layout["responsive_breakpoint"]; present {
		if s, _ := v.(string); !slices.Contains(schema.Breakpoints, s) {
			delete(layout, "responsive_breakpoint")
		}
	}
	if v, present := layout["columns_per_row"]; present {
		n := number(v)
		switch {
		case math.IsNaN(n):
			delete(layout, "columns_per_row")
		case n < 1:
			layout["columns_per_row"] = 1
		case n > 4:
			layout["columns_per_row"] = 4
		default:
			layout["columns_per_row"] = int(n)
		}
	}
	for _, field := range layoutBools {
		if v, present := layout[field]; present && !isBool(v) {
			delete(layout, field)
		}
	}
	return layout
}

func repairFlat(doc map[string]any, section string, fields []string, check func(any) bool) {
	raw, present := doc[section]
	if !present || raw == nil {
		return
	}
	m, ok := raw.(map[string]any)
	if !ok {
		delete(doc, section)
		return
	}
	for _, field := range fields {
		if v, present := m[field]; present && !check(v) {
			delete(m, field)
		}
	}
}

func repairMerge(doc map[string]any, keys map[string]bool) {
	raw, present := doc["merge"]
	if !present || raw == nil {
		return
	}
	rules, ok := raw.([]any)
	if !ok {
		delete(doc, "merge")
		return
	}
	kept := make([]any, 0, len(rules))
	for _, item := range rules {
		rule, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if kind, _ := rule["kind"].(string); !slices.Contains(mergeKinds, kind) {
			continue
		}
		cols, _ := rule["columns"].([]any)
		valid := make([]any, 0, len(cols))
		for _, c := range cols {
			if s, _ := c.(string); keys[s] {
				valid = append(valid, s)
			}
		}
		if len(valid) == 0 {
			continue
		}
		rule["columns"] = valid
		kept = append(kept, rule)
	}
	doc["merge"] = kept
}

// HandleRenderError tries the legacy render and then the minimal table.
// The returned table is never nil.
func (h *ErrorHandler) HandleRenderError(ctx context.Context, tableType string, rows []schema.Row, err error, legacy func() (*RenderedTable, error)) *RenderedTable {
	slog.Error("table render failed, trying legacy render",
		"table_type", tableType,
		"rows", len(rows),
		"error", err,
	)
	h.monitor.ReportFailure(string(KindRenderFailed), tableType, string(SeverityError), err)

	if legacy != nil {
		t, legacyErr := legacy()
		if legacyErr == nil && t != nil {
			t.Warnings = append(t.Warnings, FormatUserError(err))
			return t
		}
		slog.Error("legacy render failed, using minimal table",
			"table_type", tableType,
			"error", legacyErr,
		)
		h.monitor.ReportFailure(string(KindRenderFailed), tableType, string(SeverityError), legacyErr)
	}
	return MinimalTable(tableType, rows, err)
}

// MinimalTable renders rows as a two-column label/value table. It succeeds
// for any input, including nil or malformed rows.
func MinimalTable(tableType string, rows []schema.Row, cause error) (t *RenderedTable) {
	cfg := schema.TableConfig{
		Columns: []schema.ColumnSpec{
			{Key: "label", Label: "項目", Type: schema.TypeText},
			{Key: "value", Label: "内容", Type: schema.TypeText},
		},
		Layout:  schema.LayoutSpec{Type: schema.LayoutKeyValuePairs, ShowHeaders: true},
		Styling: schema.StyleSpec{TableClass: "table table-minimal", EmptyClass: "text-muted"},
	}
	t = &RenderedTable{
		TableType: tableType,
		Mode:      RenderMinimal,
		Config:    schema.CompiledConfig{TableConfig: cfg, TableType: tableType},
		Headers:   format.BuildHeaderTree(cfg.Columns),
		TotalRows: len(rows),
		Strategy:  strategy.Plan{Strategy: strategy.Strategy{Kind: strategy.FullRender, RowCount: len(rows)}},
		Notice:    MinimalNotice,
	}
	if cause != nil {
		t.Warnings = []string{FormatUserError(cause)}
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("minimal render recovered from panic", "table_type", tableType, "panic", r)
			t.Rows = []format.FormattedRow{minimalRow(0, MinimalNotice, MinimalEmptyValue)}
		}
	}()

	for i, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			label := k
			if len(rows) > 1 {
				label = fmt.Sprintf("%d: %s", i+1, k)
			}
			value := format.Stringify(row[k])
			if format.IsEmpty(row[k]) {
				value = PlaceholderOptionLabel
			}
			t.Rows = append(t.Rows, minimalRow(len(t.Rows), label, value))
		}
	}
	if len(t.Rows) == 0 {
		t.Rows = []format.FormattedRow{minimalRow(0, "データ", MinimalEmptyValue)}
	}
	return t
}

func minimalRow(index int, label, value string) format.FormattedRow {
	return format.FormattedRow{
		Index: index,
		Cells: []format.Cell{
			{Key: "label", Value: escape(label)},
			{Key: "value", Value: escape(value)},
		},
	}
}
