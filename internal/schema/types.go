// Package schema defines the declarative table description shared by every
// part of the rendering engine: column specs, layout, styling, feature flags,
// and the compiled form produced for a concrete data shape.
package schema

import "time"

// ColumnType is the value kind a column renders.
type ColumnType string

const (
	TypeText      ColumnType = "text"
	TypeEmail     ColumnType = "email"
	TypeURL       ColumnType = "url"
	TypePhone     ColumnType = "phone"
	TypeNumber    ColumnType = "number"
	TypeDate      ColumnType = "date"
	TypeDateRange ColumnType = "date_range"
	TypeSelect    ColumnType = "select"
)

// ColumnTypes lists every supported column type in declaration order.
var ColumnTypes = []ColumnType{
	TypeText, TypeEmail, TypeURL, TypePhone, TypeNumber, TypeDate, TypeDateRange, TypeSelect,
}

// Valid reports whether t is one of the supported column types.
func (t ColumnType) Valid() bool {
	for _, ct := range ColumnTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// LayoutType selects the overall table shape.
type LayoutType string

const (
	LayoutKeyValuePairs LayoutType = "key_value_pairs"
	LayoutStandardTable LayoutType = "standard_table"
	LayoutGroupedRows   LayoutType = "grouped_rows"
	LayoutServiceTable  LayoutType = "service_table"
)

// LayoutTypes lists every supported layout type.
var LayoutTypes = []LayoutType{
	LayoutKeyValuePairs, LayoutStandardTable, LayoutGroupedRows, LayoutServiceTable,
}

// Valid reports whether l is a supported layout type.
func (l LayoutType) Valid() bool {
	for _, lt := range LayoutTypes {
		if lt == l {
			return true
		}
	}
	return false
}

// Breakpoints are the accepted responsive breakpoints.
var Breakpoints = []string{"xs", "sm", "md", "lg", "xl"}

// Condition kinds for ShowCondition.Type.
const (
	CondAlways       = "always"
	CondHasData      = "has_data"
	CondDataNotEmpty = "data_not_empty"
	CondDataEquals   = "data_equals"
	CondFieldExists  = "field_exists"
	CondCustom       = "custom"
	CondNever        = "never"
)

// ShowCondition decides whether a column is kept for a given data set.
// An empty Type behaves like "always".
type ShowCondition struct {
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ColumnSpec describes one column of a table.
type ColumnSpec struct {
	Key          string            `json:"key" yaml:"key"`
	Label        string            `json:"label" yaml:"label"`
	Type         ColumnType        `json:"type" yaml:"type" jsonschema:"enum=text,enum=email,enum=url,enum=phone,enum=number,enum=date,enum=date_range,enum=select"`
	Width        float64           `json:"width,omitempty" yaml:"width,omitempty"`
	MinWidth     float64           `json:"min_width,omitempty" yaml:"min_width,omitempty"`
	MaxWidth     float64           `json:"max_width,omitempty" yaml:"max_width,omitempty"`
	Options      map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
	Decimals     int               `json:"decimals,omitempty" yaml:"decimals,omitempty"`
	Colspan      int               `json:"colspan,omitempty" yaml:"colspan,omitempty"`
	Required     bool              `json:"required,omitempty" yaml:"required,omitempty"`
	RowspanGroup bool              `json:"rowspan_group,omitempty" yaml:"rowspan_group,omitempty"`
	ShowCond     *ShowCondition    `json:"show_condition,omitempty" yaml:"show_condition,omitempty"`
	HeaderLevel  int               `json:"header_level,omitempty" yaml:"header_level,omitempty"`
	HeaderGroup  string            `json:"header_group,omitempty" yaml:"header_group,omitempty"`
	Dynamic      bool              `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`

	// Formatting extras.
	MaxLength  int    `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Unit       string `json:"unit,omitempty" yaml:"unit,omitempty"`
	DateFormat string `json:"date_format,omitempty" yaml:"date_format,omitempty"`
	CSSClass   string `json:"css_class,omitempty" yaml:"css_class,omitempty"`
}

// LayoutSpec controls how the table is laid out.
type LayoutSpec struct {
	Type                 LayoutType `json:"type" yaml:"type" jsonschema:"enum=key_value_pairs,enum=standard_table,enum=grouped_rows,enum=service_table"`
	ShowHeaders          bool       `json:"show_headers" yaml:"show_headers"`
	ResponsiveBreakpoint string     `json:"responsive_breakpoint,omitempty" yaml:"responsive_breakpoint,omitempty" jsonschema:"enum=xs,enum=sm,enum=md,enum=lg,enum=xl"`
	ColumnsPerRow        int        `json:"columns_per_row,omitempty" yaml:"columns_per_row,omitempty" jsonschema:"minimum=1,maximum=4"`
	HierarchicalHeaders  bool       `json:"hierarchical_headers,omitempty" yaml:"hierarchical_headers,omitempty"`
}

// StyleSpec holds CSS class names handed to the presentation layer.
type StyleSpec struct {
	TableClass      string `json:"table_class,omitempty" yaml:"table_class,omitempty"`
	HeaderClass     string `json:"header_class,omitempty" yaml:"header_class,omitempty"`
	RowClass        string `json:"row_class,omitempty" yaml:"row_class,omitempty"`
	CellClass       string `json:"cell_class,omitempty" yaml:"cell_class,omitempty"`
	EmptyClass      string `json:"empty_class,omitempty" yaml:"empty_class,omitempty"`
	ResponsiveClass string `json:"responsive_class,omitempty" yaml:"responsive_class,omitempty"`
}

// FeatureFlags toggles optional engine behaviour.
type FeatureFlags struct {
	Comments       bool `json:"comments,omitempty" yaml:"comments,omitempty"`
	Sorting        bool `json:"sorting,omitempty" yaml:"sorting,omitempty"`
	Filtering      bool `json:"filtering,omitempty" yaml:"filtering,omitempty"`
	DynamicColumns bool `json:"dynamic_columns,omitempty" yaml:"dynamic_columns,omitempty"`
	AutoWidth      bool `json:"auto_width,omitempty" yaml:"auto_width,omitempty"`
	CellMerge      bool `json:"cell_merge,omitempty" yaml:"cell_merge,omitempty"`
	Export         bool `json:"export,omitempty" yaml:"export,omitempty"`
}

// Merge kinds for MergeRule.Kind.
const (
	MergeHorizontal = "horizontal"
	MergeVertical   = "vertical"
	MergeComplex    = "complex"
)

// MergeRule describes a cell merge applied after formatting.
//
// Horizontal merges concatenate Columns into the first listed column using
// Separator, or Template when set ({index} and {key} placeholders are
// replaced per source column, {value} by its formatted value).
type MergeRule struct {
	Kind      string   `json:"kind" yaml:"kind"`
	Columns   []string `json:"columns" yaml:"columns"`
	Separator string   `json:"separator,omitempty" yaml:"separator,omitempty"`
	Template  string   `json:"template,omitempty" yaml:"template,omitempty"`
	// Vertical lists the columns merged vertically for complex rules.
	Vertical []string `json:"vertical,omitempty" yaml:"vertical,omitempty"`
}

// TableConfig is the declarative description of a table.
type TableConfig struct {
	Columns  []ColumnSpec `json:"columns" yaml:"columns"`
	Layout   LayoutSpec   `json:"layout" yaml:"layout"`
	Styling  StyleSpec    `json:"styling" yaml:"styling"`
	Features FeatureFlags `json:"features" yaml:"features"`
	Merge    []MergeRule  `json:"merge,omitempty" yaml:"merge,omitempty"`
}

// Column returns the column with the given key.
func (c TableConfig) Column(key string) (ColumnSpec, bool) {
	for _, col := range c.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return ColumnSpec{}, false
}

// ColumnIndex returns the position of key in Columns, or -1.
func (c TableConfig) ColumnIndex(key string) int {
	for i, col := range c.Columns {
		if col.Key == key {
			return i
		}
	}
	return -1
}

// Keys returns the column keys in order.
func (c TableConfig) Keys() []string {
	keys := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		keys[i] = col.Key
	}
	return keys
}

// Clone returns a deep copy so cached configs are never mutated by callers.
func (c TableConfig) Clone() TableConfig {
	out := c
	out.Columns = make([]ColumnSpec, len(c.Columns))
	for i, col := range c.Columns {
		out.Columns[i] = col.Clone()
	}
	if c.Merge != nil {
		out.Merge = make([]MergeRule, len(c.Merge))
		for i, m := range c.Merge {
			m.Columns = append([]string(nil), m.Columns...)
			m.Vertical = append([]string(nil), m.Vertical...)
			out.Merge[i] = m
		}
	}
	return out
}

// Clone returns a deep copy of the column.
func (c ColumnSpec) Clone() ColumnSpec {
	out := c
	if c.Options != nil {
		out.Options = make(map[string]string, len(c.Options))
		for k, v := range c.Options {
			out.Options[k] = v
		}
	}
	if c.ShowCond != nil {
		sc := *c.ShowCond
		out.ShowCond = &sc
	}
	return out
}

// Row is one record of business data. Values may be any JSON-compatible type.
type Row = map[string]any

// CompiledConfig is a TableConfig augmented for one observed data shape.
type CompiledConfig struct {
	TableConfig

	TableType       string       `json:"table_type"`
	DynamicColumns  []ColumnSpec `json:"dynamic_columns,omitempty"`
	FilteredColumns []string     `json:"filtered_columns,omitempty"`
	ResponsiveClass string       `json:"responsive_class,omitempty"`
	ShapeHash       string       `json:"shape_hash"`
	CompiledAt      time.Time    `json:"compiled_at"`
}

// Clone returns a deep copy of the compiled config.
func (c CompiledConfig) Clone() CompiledConfig {
	out := c
	out.TableConfig = c.TableConfig.Clone()
	if c.DynamicColumns != nil {
		out.DynamicColumns = make([]ColumnSpec, len(c.DynamicColumns))
		for i, col := range c.DynamicColumns {
			out.DynamicColumns[i] = col.Clone()
		}
	}
	out.FilteredColumns = append([]string(nil), c.FilteredColumns...)
	return out
}
