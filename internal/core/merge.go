package core

import "github.com/JonMunkholm/facilitytables/internal/schema"

// nestedSections are merged one level deep; every other top-level key is
// replaced wholesale.
var nestedSections = map[string]bool{
	"layout":   true,
	"styling":  true,
	"features": true,
}

// MergeWithDefaults overlays custom on defaults and returns a new document.
//
// Merging is exactly one level deep: top-level keys from custom replace those
// in defaults, except layout, styling and features, whose own keys are merged
// individually. Anything below that level (including every list, such as
// columns and merge) is replaced, never merged, so a custom document that
// sets columns replaces all default columns. A custom document that omits
// columns inherits the defaults.
func MergeWithDefaults(defaults, custom schema.Document) schema.Document {
	out := make(schema.Document, len(defaults)+len(custom))
	for k, v := range defaults {
		out[k] = deepCopy(v)
	}

	for k, v := range custom {
		if nestedSections[k] {
			base, baseOK := out[k].(map[string]any)
			over, overOK := v.(map[string]any)
			if baseOK && overOK {
				merged := make(map[string]any, len(base)+len(over))
				for bk, bv := range base {
					merged[bk] = bv
				}
				for ok, ov := range over {
					merged[ok] = deepCopy(ov)
				}
				out[k] = merged
				continue
			}
		}
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	}
	return v
}
