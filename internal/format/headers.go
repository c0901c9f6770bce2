package format

import (
	"strings"

	"github.com/JonMunkholm/facilitytables/internal/schema"
)

// HeaderCell is one <th> of a hierarchical header.
type HeaderCell struct {
	Label   string `json:"label"`
	Key     string `json:"key,omitempty"` // set for leaf (column) headers only
	Level   int    `json:"level"`
	Colspan int    `json:"colspan"`
	Rowspan int    `json:"rowspan"`
}

// HeaderTree is a hierarchical header laid out as rows of cells.
type HeaderTree struct {
	MaxLevel int            `json:"max_level"`
	Rows     [][]HeaderCell `json:"rows"`
}

// BuildHeaderTree lays out multi-row headers from header_level and
// header_group. A column at level L sits under the group path in
// header_group, whose segments are separated by "/" (one per ancestor row).
// Group cells span their contiguous member columns; leaf cells span down to
// the deepest level (rowspan = maxLevel - level + 1).
//
// Columns keep their configured order, so members of one group that are not
// adjacent produce one group cell per run, each with the group label. A
// column's level is capped at one below its group depth: a level 2 column
// without header_group is a level 1 column.
func BuildHeaderTree(columns []schema.ColumnSpec) HeaderTree {
	maxLevel := 1
	for _, col := range columns {
		if lvl := headerLevel(col); lvl > maxLevel {
			maxLevel = lvl
		}
	}

	tree := HeaderTree{
		MaxLevel: maxLevel,
		Rows:     make([][]HeaderCell, maxLevel),
	}

	for row := 1; row <= maxLevel; row++ {
		var cells []HeaderCell
		for i := 0; i < len(columns); i++ {
			col := columns[i]
			lvl := headerLevel(col)

			if lvl == row {
				cells = append(cells, HeaderCell{
					Label:   col.Label,
					Key:     col.Key,
					Level:   lvl,
					Colspan: 1,
					Rowspan: maxLevel - lvl + 1,
				})
				continue
			}
			if lvl < row {
				continue // leaf already spans this row
			}

			// Column sits deeper: emit the ancestor group for this row,
			// spanning every contiguous column that shares the path prefix.
			prefix := groupPrefix(col, row)
			span := 1
			for i+span < len(columns) {
				next := columns[i+span]
				if headerLevel(next) <= row || groupPrefix(next, row) != prefix {
					break
				}
				span++
			}
			cells = append(cells, HeaderCell{
				Label:   groupSegment(col, row),
				Level:   row,
				Colspan: span,
				Rowspan: 1,
			})
			i += span - 1
		}
		tree.Rows[row-1] = cells
	}
	return tree
}

func headerLevel(col schema.ColumnSpec) int {
	return max(min(col.HeaderLevel, len(groupSegments(col))+1), 1)
}

// groupSegment returns the group label shown on header row. headerLevel
// guarantees the column has a segment for every row above its own.
func groupSegment(col schema.ColumnSpec, row int) string {
	return groupSegments(col)[row-1]
}

// groupPrefix identifies the group a column belongs to on header row.
func groupPrefix(col schema.ColumnSpec, row int) string {
	segs := groupSegments(col)
	if row < len(segs) {
		segs = segs[:row]
	}
	return strings.Join(segs, "/")
}

func groupSegments(col schema.ColumnSpec) []string {
	if col.HeaderGroup == "" {
		return nil
	}
	parts := strings.Split(col.HeaderGroup, "/")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
