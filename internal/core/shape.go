package core

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/facilitytables/internal/schema"
	"github.com/cespare/xxhash/v2"
	"github.com/gohugoio/hashstructure"
)

// shapeSampleRows is how many leading rows contribute value kinds to a shape.
const shapeSampleRows = 5

// ShapeHash fingerprints the shape of rows: the sorted union of keys, the row
// count and the value kinds of the first rows. Values themselves never
// contribute, so data with the same shape shares a compiled config.
func ShapeHash(rows []schema.Row) string {
	keySet := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			keySet[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := xxhash.New()
	_, _ = d.WriteString(strings.Join(keys, "\x1f"))
	_, _ = d.WriteString("\x1e" + strconv.Itoa(len(rows)))
	for i := 0; i < len(rows) && i < shapeSampleRows; i++ {
		_, _ = d.WriteString("\x1e")
		for _, k := range keys {
			_, _ = d.WriteString(kindOf(rows[i][k]))
			_, _ = d.WriteString("\x1f")
		}
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int32, int64, uint64, float32, float64:
		return "number"
	case time.Time, *time.Time:
		return "time"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return "other"
}

// ConfigFingerprint identifies a config's content so compiled entries built
// from an older config are never served after it changes.
func ConfigFingerprint(cfg schema.TableConfig) string {
	h, err := hashstructure.Hash(cfg, nil)
	if err != nil {
		// Unhashable configs still need a stable key; fall back to the
		// column keys, which change on every structural edit.
		return strconv.FormatUint(xxhash.Sum64String(strings.Join(cfg.Keys(), ",")), 16)
	}
	return strconv.FormatUint(h, 16)
}
