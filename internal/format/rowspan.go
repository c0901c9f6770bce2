package format

import "github.com/JonMunkholm/facilitytables/internal/schema"

// RowGroup marks a row's place in a contiguous run of equal values.
// Only the first row of a run renders the grouped cell, spanning GroupSize rows.
type RowGroup struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	IsFirst   bool   `json:"is_first"`
	GroupSize int    `json:"group_size"`
}

// ComputeRowspans walks rows in order and groups contiguous runs of equal
// values in key. A value that reappears after a different one starts a new
// group: [A A B B B A] yields groups of 2, 3 and 1.
func ComputeRowspans(rows []schema.Row, key string) []RowGroup {
	values := make([]string, len(rows))
	for i, row := range rows {
		values[i] = groupValue(row[key])
	}

	out := make([]RowGroup, len(rows))
	for start, size := range runs(values) {
		for j := 0; j < size; j++ {
			out[start+j] = RowGroup{
				Key:       key,
				Value:     values[start],
				IsFirst:   j == 0,
				GroupSize: size,
			}
		}
	}
	return out
}

// GroupSizes returns the size of each contiguous group, in order.
func GroupSizes(groups []RowGroup) []int {
	var sizes []int
	for _, g := range groups {
		if g.IsFirst {
			sizes = append(sizes, g.GroupSize)
		}
	}
	return sizes
}

// runs maps the start index of every contiguous run of equal values to its
// length.
func runs(values []string) map[int]int {
	out := make(map[int]int)
	start := 0
	for i := 1; i <= len(values); i++ {
		if i == len(values) || values[i] != values[start] {
			if i > start {
				out[start] = i - start
			}
			start = i
		}
	}
	return out
}

// groupValue normalises a raw value for equality. Empty values group together.
func groupValue(v any) string {
	if IsEmpty(v) {
		return ""
	}
	return Stringify(v)
}
