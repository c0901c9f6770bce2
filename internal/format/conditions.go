package format

import (
	"log/slog"

	"github.com/JonMunkholm/facilitytables/internal/schema"
)

// Predicate is a named show_condition evaluated against the whole data set.
type Predicate func(rows []schema.Row, col schema.ColumnSpec) bool

// RegisterPredicate installs a custom show_condition predicate under name.
func (f *Formatter) RegisterPredicate(name string, p Predicate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predicates[name] = p
}

func (f *Formatter) predicate(name string) (Predicate, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.predicates[name]
	return p, ok
}

// ShouldShow evaluates col's show_condition against rows. Columns without a
// condition are always shown.
//
// data_equals matches when any field of any row equals the condition value,
// not only the column's own field.
func (f *Formatter) ShouldShow(col schema.ColumnSpec, rows []schema.Row) bool {
	cond := col.ShowCond
	if cond == nil {
		return true
	}

	switch cond.Type {
	case "", schema.CondAlways:
		return true
	case schema.CondNever:
		return false
	case schema.CondHasData, schema.CondDataNotEmpty:
		key := col.Key
		if cond.Field != "" {
			key = cond.Field
		}
		for _, row := range rows {
			if !IsEmpty(row[key]) {
				return true
			}
		}
		return false
	case schema.CondDataEquals:
		want := Stringify(cond.Value)
		for _, row := range rows {
			for _, v := range row {
				if !IsEmpty(v) && Stringify(v) == want {
					return true
				}
			}
		}
		return false
	case schema.CondFieldExists:
		key := col.Key
		if cond.Field != "" {
			key = cond.Field
		}
		for _, row := range rows {
			if _, ok := row[key]; ok {
				return true
			}
		}
		return false
	case schema.CondCustom:
		p, ok := f.predicate(cond.Name)
		if !ok {
			slog.Warn("unknown show_condition predicate, showing column",
				"predicate", cond.Name,
				"column", col.Key,
			)
			return true
		}
		return p(rows, col)
	default:
		slog.Warn("unknown show_condition type, showing column",
			"type", cond.Type,
			"column", col.Key,
		)
		return true
	}
}

// FilterColumns keeps the columns whose show_condition holds for rows and
// reports the keys of those removed.
func (f *Formatter) FilterColumns(columns []schema.ColumnSpec, rows []schema.Row) ([]schema.ColumnSpec, []string) {
	kept := make([]schema.ColumnSpec, 0, len(columns))
	var removed []string
	for _, col := range columns {
		if f.ShouldShow(col, rows) {
			kept = append(kept, col)
		} else {
			removed = append(removed, col.Key)
		}
	}
	return kept, removed
}
