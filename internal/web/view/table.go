// Package view renders engine output as HTML fragments. Components are
// built with templ.ComponentFunc; cell values arrive HTML-escaped from the
// formatter and are written as-is, everything else is escaped here.
package view

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/JonMunkholm/facilitytables/internal/format"
	"github.com/JonMunkholm/facilitytables/internal/schema"
)

// Table renders a RenderedTable. Key/value layouts become a two-column
// definition table per row; every other layout is a grid with the
// configured header tree.
func Table(t *core.RenderedTable) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if t == nil {
			return nil
		}
		ew := &errWriter{w: w}

		wrapper := classes("facility-table", t.Config.ResponsiveClass)
		ew.printf(`<div class="%s" id="table-%s" data-table-type="%s" data-render-mode="%s" data-strategy="%s">`,
			wrapper, esc(t.ID), esc(t.TableType), esc(string(t.Mode)), esc(string(t.Strategy.Strategy.Kind)))

		if t.Notice != "" {
			ew.printf(`<p class="table-notice" role="alert">%s</p>`, esc(t.Notice))
		}

		switch {
		case t.Mode == core.RenderMinimal:
			pairs(ew, t)
		case t.Config.Layout.Type == schema.LayoutKeyValuePairs:
			keyValue(ew, t)
		default:
			grid(ew, t)
		}

		if len(t.Rows) < t.TotalRows {
			ew.printf(`<p class="table-more" data-loaded="%d" data-total="%d">%d / %d</p>`,
				len(t.Rows), t.TotalRows, len(t.Rows), t.TotalRows)
		}
		ew.printf(`</div>`)
		return ew.err
	})
}

func keyValue(ew *errWriter, t *core.RenderedTable) {
	st := t.Config.Styling
	labels := columnLabels(t.Config.Columns)

	for _, row := range t.Rows {
		ew.printf(`<table class="%s"><tbody>`, classes(st.TableClass, "table-kv"))
		for _, cell := range row.Cells {
			if cell.Hidden {
				continue
			}
			label, ok := labels[cell.Key]
			if !ok {
				label = cell.Key
			}
			ew.printf(`<tr class="%s"><th scope="row" class="%s">%s</th>`,
				esc(st.RowClass), esc(st.HeaderClass), esc(label))
			writeCell(ew, cell, st)
			ew.printf(`</tr>`)
		}
		ew.printf(`</tbody></table>`)
	}
}

// pairs renders minimal tables, whose rows are already label/value cells.
func pairs(ew *errWriter, t *core.RenderedTable) {
	st := t.Config.Styling
	ew.printf(`<table class="%s"><tbody>`, esc(st.TableClass))
	for _, row := range t.Rows {
		if len(row.Cells) != 2 {
			continue
		}
		ew.printf(`<tr><th scope="row">%s</th>`, row.Cells[0].Value)
		writeCell(ew, row.Cells[1], st)
		ew.printf(`</tr>`)
	}
	ew.printf(`</tbody></table>`)
}

func grid(ew *errWriter, t *core.RenderedTable) {
	st := t.Config.Styling
	ew.printf(`<table class="%s">`, esc(st.TableClass))

	if headers := headerRows(t); t.Config.Layout.ShowHeaders && len(headers) > 0 {
		ew.printf(`<thead class="%s">`, esc(st.HeaderClass))
		for _, hr := range headers {
			ew.printf(`<tr>`)
			for _, h := range hr {
				ew.printf(`<th scope="col"%s%s>%s</th>`,
					spanAttr("colspan", h.Colspan), spanAttr("rowspan", h.Rowspan), esc(h.Label))
			}
			ew.printf(`</tr>`)
		}
		ew.printf(`</thead>`)
	}

	bodies := rowGroups(t.Rows)
	for _, body := range bodies {
		if len(bodies) > 1 {
			ew.printf(`<tbody class="row-group">`)
		} else {
			ew.printf(`<tbody>`)
		}
		for _, row := range body {
			ew.printf(`<tr class="%s" data-index="%d">`, esc(st.RowClass), row.Index)
			for _, cell := range row.Cells {
				if g := row.Group; g != nil && cell.Key == g.Key && cell.Rowspan == 0 && !cell.Hidden {
					if !g.IsFirst {
						continue
					}
					cell.Rowspan = g.GroupSize
				}
				if cell.Hidden {
					continue
				}
				writeCell(ew, cell, st)
			}
			ew.printf(`</tr>`)
		}
		ew.printf(`</tbody>`)
	}
	ew.printf(`</table>`)
}

// headerRows returns the header tree, or a single row of column labels when
// the layout does not ask for hierarchical headers.
func headerRows(t *core.RenderedTable) [][]format.HeaderCell {
	if t.Config.Layout.HierarchicalHeaders || len(t.Headers.Rows) <= 1 {
		return t.Headers.Rows
	}
	flat := make([]format.HeaderCell, len(t.Config.Columns))
	for i, col := range t.Config.Columns {
		flat[i] = format.HeaderCell{Label: col.Label, Key: col.Key, Level: 1, Colspan: 1, Rowspan: 1}
	}
	return [][]format.HeaderCell{flat}
}

// rowGroups splits rows into one slice per rowspan group. Rows without group
// metadata stay in a single slice.
func rowGroups(rows []format.FormattedRow) [][]format.FormattedRow {
	if len(rows) == 0 {
		return [][]format.FormattedRow{rows}
	}
	groups := make([]format.RowGroup, 0, len(rows))
	for _, r := range rows {
		if r.Group == nil {
			return [][]format.FormattedRow{rows}
		}
		groups = append(groups, *r.Group)
	}

	var out [][]format.FormattedRow
	start := 0
	for _, n := range format.GroupSizes(groups) {
		if start >= len(rows) {
			break
		}
		end := min(start+n, len(rows))
		out = append(out, rows[start:end])
		start = end
	}
	if start < len(rows) {
		out = append(out, rows[start:])
	}
	return out
}

func writeCell(ew *errWriter, cell format.Cell, st schema.StyleSpec) {
	cls := classes(st.CellClass, cell.Class)
	if cell.Empty {
		cls = classes(cls, st.EmptyClass)
	}
	ew.printf(`<td class="%s" data-key="%s"%s%s>%s</td>`,
		cls, esc(cell.Key), spanAttr("colspan", cell.Colspan), spanAttr("rowspan", cell.Rowspan), cell.Value)
}

// ErrorAlert renders a user-facing error for HTML clients.
func ErrorAlert(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<div class="alert alert-danger" role="alert" data-code="%s"><strong>%s</strong>`,
			esc(msg.Code), esc(msg.Message))
		if msg.Action != "" {
			ew.printf(`<p>%s</p>`, esc(msg.Action))
		}
		ew.printf(`<small>%s</small></div>`, esc(msg.Code))
		return ew.err
	})
}

func columnLabels(cols []schema.ColumnSpec) map[string]string {
	out := make(map[string]string, len(cols))
	for _, c := range cols {
		out[c.Key] = c.Label
	}
	return out
}

func spanAttr(name string, n int) string {
	if n <= 1 {
		return ""
	}
	return fmt.Sprintf(` %s="%d"`, name, n)
}

func classes(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return esc(strings.Join(kept, " "))
}

func esc(s string) string { return templ.EscapeString(s) }

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
