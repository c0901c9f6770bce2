package format

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/facilitytables/internal/schema"
)

// ApplyMerges applies merge rules to already formatted rows, in rule order.
// Complex rules run their horizontal part before the vertical one.
func ApplyMerges(rows []FormattedRow, rules []schema.MergeRule) []FormattedRow {
	for _, rule := range rules {
		switch rule.Kind {
		case schema.MergeHorizontal:
			MergeHorizontal(rows, rule)
		case schema.MergeVertical:
			MergeVertical(rows, rule.Columns)
		case schema.MergeComplex:
			MergeHorizontal(rows, rule)
			vertical := rule.Vertical
			if len(vertical) == 0 && len(rule.Columns) > 0 {
				vertical = rule.Columns[:1]
			}
			MergeVertical(rows, vertical)
		}
	}
	return rows
}

// MergeHorizontal concatenates the rule's columns into the first one and
// hides the others. With a Template, each source column is rendered through
// it ({index}, {key} and {value} are substituted) and the pieces are joined
// with Separator. Empty sources are skipped.
func MergeHorizontal(rows []FormattedRow, rule schema.MergeRule) {
	if len(rule.Columns) < 2 {
		return
	}
	sep := rule.Separator
	if sep == "" && rule.Template == "" {
		sep = " "
	}

	for r := range rows {
		row := &rows[r]
		target := cellIndex(*row, rule.Columns[0])
		if target < 0 {
			continue
		}

		var parts []string
		for i, key := range rule.Columns {
			idx := cellIndex(*row, key)
			if idx < 0 {
				continue
			}
			c := row.Cells[idx]
			if !c.Empty {
				parts = append(parts, applyTemplate(rule.Template, i, key, c.Value))
			}
			if idx != target {
				row.Cells[idx].Hidden = true
			}
		}

		if len(parts) > 0 {
			row.Cells[target].Value = strings.Join(parts, sep)
			row.Cells[target].Empty = false
		}
		row.Cells[target].Colspan = len(rule.Columns)
	}
}

func applyTemplate(tmpl string, index int, key, value string) string {
	if tmpl == "" {
		return value
	}
	return strings.NewReplacer(
		"{index}", strconv.Itoa(index),
		"{key}", key,
		"{value}", value,
	).Replace(tmpl)
}

// MergeVertical merges contiguous runs of equal values per column: the first
// cell of a run gets the run length as rowspan, the rest are hidden.
func MergeVertical(rows []FormattedRow, keys []string) {
	for _, key := range keys {
		values := make([]string, len(rows))
		present := false
		for i, row := range rows {
			if idx := cellIndex(row, key); idx >= 0 {
				values[i] = row.Cells[idx].Value
				present = true
			}
		}
		if !present {
			continue
		}

		for start, size := range runs(values) {
			if size < 2 {
				continue
			}
			for j := 0; j < size; j++ {
				idx := cellIndex(rows[start+j], key)
				if idx < 0 {
					continue
				}
				if j == 0 {
					rows[start+j].Cells[idx].Rowspan = size
				} else {
					rows[start+j].Cells[idx].Hidden = true
				}
			}
		}
	}
}

func cellIndex(row FormattedRow, key string) int {
	for i, c := range row.Cells {
		if c.Key == key {
			return i
		}
	}
	return -1
}
