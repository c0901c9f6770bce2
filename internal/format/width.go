package format

import (
	"math"

	"github.com/JonMunkholm/facilitytables/internal/schema"
	"golang.org/x/text/width"
)

// Default width bounds, in percent of the table width.
const (
	DefaultMinWidth = 8.0
	DefaultMaxWidth = 30.0
)

// typeWeight scales a column's content length into a raw width and sets a
// floor for types whose values are long and unbreakable.
type typeWeight struct {
	multiplier float64
	floor      float64
}

var typeWeights = map[schema.ColumnType]typeWeight{
	schema.TypeText:      {multiplier: 1.0},
	schema.TypeEmail:     {multiplier: 1.2, floor: 15},
	schema.TypeURL:       {multiplier: 1.3, floor: 18},
	schema.TypePhone:     {multiplier: 1.0, floor: 10},
	schema.TypeNumber:    {multiplier: 0.7},
	schema.TypeDate:      {multiplier: 0.8},
	schema.TypeDateRange: {multiplier: 0.9},
	schema.TypeSelect:    {multiplier: 0.9},
}

// OptimizeWidths assigns each column a width percentage from the longest of
// its header label and formatted cells, clamps it to the column's
// [min_width, max_width] (default 8–30), and renormalises the set so the
// widths sum to 100.
func (f *Formatter) OptimizeWidths(columns []schema.ColumnSpec, rows []schema.Row) []schema.ColumnSpec {
	out := make([]schema.ColumnSpec, len(columns))
	if len(columns) == 0 {
		return out
	}

	raw := make([]float64, len(columns))
	for i, col := range columns {
		out[i] = col.Clone()

		longest := DisplayWidth(col.Label)
		for _, row := range rows {
			if n := DisplayWidth(plain(f.FormatValue(row[col.Key], col))); n > longest {
				longest = n
			}
		}

		w, ok := typeWeights[col.Type]
		if !ok {
			w = typeWeights[schema.TypeText]
		}
		pct := math.Max(float64(longest)*w.multiplier, w.floor)
		raw[i] = clamp(pct, minWidth(col), maxWidth(col))
	}

	for i, pct := range normalize(raw) {
		out[i].Width = pct
	}
	return out
}

// normalize scales widths so they sum to exactly 100, rounded to two
// decimals with the rounding remainder given to the widest column.
func normalize(widths []float64) []float64 {
	total := 0.0
	for _, w := range widths {
		total += w
	}
	out := make([]float64, len(widths))
	if total <= 0 {
		even := 100.0 / float64(len(widths))
		for i := range out {
			out[i] = round2(even)
		}
		total = 0
		for _, w := range out {
			total += w
		}
		out[0] = round2(out[0] + 100 - total)
		return out
	}

	sum := 0.0
	widest := 0
	for i, w := range widths {
		out[i] = round2(w * 100 / total)
		sum += out[i]
		if out[i] > out[widest] {
			widest = i
		}
	}
	out[widest] = round2(out[widest] + 100 - sum)
	return out
}

func minWidth(col schema.ColumnSpec) float64 {
	if col.MinWidth > 0 {
		return col.MinWidth
	}
	return DefaultMinWidth
}

func maxWidth(col schema.ColumnSpec) float64 {
	if col.MaxWidth > 0 {
		return col.MaxWidth
	}
	return DefaultMaxWidth
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Min(math.Max(v, lo), hi)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DisplayWidth counts terminal cells: East Asian wide and full-width runes
// count twice.
func DisplayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
