package format

import "github.com/JonMunkholm/facilitytables/internal/schema"

// Cell is one formatted value ready for a renderer.
type Cell struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Empty   bool   `json:"empty,omitempty"`
	Rowspan int    `json:"rowspan,omitempty"`
	Colspan int    `json:"colspan,omitempty"`
	Hidden  bool   `json:"hidden,omitempty"`
	Class   string `json:"class,omitempty"`
}

// FormattedRow is one rendered record. Cells follow the config's column order.
type FormattedRow struct {
	Index int        `json:"index"`
	Cells []Cell     `json:"cells"`
	Group *RowGroup  `json:"group,omitempty"`
	Raw   schema.Row `json:"-"`
}

// Cell returns the cell for key.
func (r FormattedRow) Cell(key string) (Cell, bool) {
	for _, c := range r.Cells {
		if c.Key == key {
			return c, true
		}
	}
	return Cell{}, false
}

// Values returns formatted values keyed by column.
func (r FormattedRow) Values() map[string]string {
	out := make(map[string]string, len(r.Cells))
	for _, c := range r.Cells {
		out[c.Key] = c.Value
	}
	return out
}

// FormatRow formats every configured column of row.
func (f *Formatter) FormatRow(index int, row schema.Row, columns []schema.ColumnSpec) FormattedRow {
	out := FormattedRow{
		Index: index,
		Cells: make([]Cell, len(columns)),
		Raw:   row,
	}
	for i, col := range columns {
		v := row[col.Key]
		out.Cells[i] = Cell{
			Key:   col.Key,
			Value: f.FormatValue(v, col),
			Empty: IsEmpty(v),
			Class: col.CSSClass,
		}
	}
	return out
}

// FormatTableData formats every row against cfg. When a column is marked
// rowspan_group, rows are stamped with their contiguous group metadata
// (the first such column decides the grouping).
func (f *Formatter) FormatTableData(rows []schema.Row, cfg schema.TableConfig) []FormattedRow {
	out := make([]FormattedRow, len(rows))
	for i, row := range rows {
		out[i] = f.FormatRow(i, row, cfg.Columns)
	}

	for _, col := range cfg.Columns {
		if !col.RowspanGroup {
			continue
		}
		groups := ComputeRowspans(rows, col.Key)
		for i := range out {
			g := groups[i]
			out[i].Group = &g
		}
		break
	}
	return out
}
