package format

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/JonMunkholm/facilitytables/internal/schema"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

// inferSampleSize is the number of non-empty values inspected per key.
const inferSampleSize = 5

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	urlPattern   = regexp.MustCompile(`^(https?://|www\.)\S+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9()\-\s]{9,}$`)
)

// keyHints map key-name substrings to a type; a hit skips value sampling.
var keyHints = []struct {
	substr string
	typ    schema.ColumnType
}{
	{"email", schema.TypeEmail},
	{"url", schema.TypeURL},
	{"phone", schema.TypePhone},
	{"date", schema.TypeDate},
}

// typePredicates are voted on in order; the first with a majority wins.
var typePredicates = []struct {
	typ   schema.ColumnType
	match func(any) bool
}{
	{schema.TypeEmail, looksLikeEmail},
	{schema.TypeURL, looksLikeURL},
	{schema.TypePhone, looksLikePhone},
	{schema.TypeDate, looksLikeDate},
	{schema.TypeNumber, looksLikeNumber},
}

// LabelDictionary translates generated labels into display labels.
var LabelDictionary = map[string]string{
	"Facility Name":    "施設名",
	"Facility Code":    "施設コード",
	"Corporation Name": "法人名",
	"Service Type":     "サービス種別",
	"Capacity":         "定員",
	"Address":          "住所",
	"Postal Code":      "郵便番号",
	"Email":            "メールアドレス",
	"Phone":            "電話番号",
	"Phone Number":     "電話番号",
	"Fax":              "FAX番号",
	"Url":              "ホームページ",
	"Website":          "ホームページ",
	"Manager":          "管理者",
	"Owner":            "所有者",
	"Opening Date":     "開設日",
	"Land Area":        "敷地面積",
	"Building Area":    "建築面積",
	"Floor Area":       "延床面積",
	"Notes":            "備考",
	"Remarks":          "備考",
	"Created At":       "作成日時",
	"Updated At":       "更新日時",
}

// InferColumns returns columns for keys present in rows but absent from
// cfg. Explicitly configured keys are never inferred. Keys are returned in
// sorted order so the result does not depend on map iteration.
func (f *Formatter) InferColumns(rows []schema.Row, cfg schema.TableConfig) []schema.ColumnSpec {
	configured := make(map[string]bool, len(cfg.Columns))
	for _, col := range cfg.Columns {
		configured[col.Key] = true
	}

	seen := make(map[string]bool)
	var keys []string
	for _, row := range rows {
		for k := range row {
			if !configured[k] && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)

	out := make([]schema.ColumnSpec, 0, len(keys))
	for _, key := range keys {
		out = append(out, schema.ColumnSpec{
			Key:     key,
			Label:   InferLabel(key),
			Type:    InferType(key, sampleValues(rows, key)),
			Dynamic: true,
		})
	}
	return out
}

// InferType classifies a key from its name, then from a majority vote over
// sampled values. Anything undecided is text.
func InferType(key string, samples []any) schema.ColumnType {
	lower := strings.ToLower(key)
	for _, h := range keyHints {
		if strings.Contains(lower, h.substr) {
			return h.typ
		}
	}

	if len(samples) == 0 {
		return schema.TypeText
	}
	for _, p := range typePredicates {
		hits := 0
		for _, s := range samples {
			if p.match(s) {
				hits++
			}
		}
		if float64(hits) > float64(len(samples))/2 {
			return p.typ
		}
	}
	return schema.TypeText
}

// InferLabel builds a label from a key: tokens are split on separators and
// camelCase boundaries, title-cased, then looked up in LabelDictionary.
func InferLabel(key string) string {
	label := cases.Title(language.English).String(strings.Join(splitKey(key), " "))
	if translated, ok := LabelDictionary[label]; ok {
		return translated
	}
	if label == "" {
		return key
	}
	return label
}

func splitKey(key string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return tokens
}

func sampleValues(rows []schema.Row, key string) []any {
	var out []any
	for _, row := range rows {
		v, ok := row[key]
		if !ok || IsEmpty(v) {
			continue
		}
		out = append(out, v)
		if len(out) == inferSampleSize {
			break
		}
	}
	return out
}

func looksLikeEmail(v any) bool {
	s, ok := v.(string)
	return ok && emailPattern.MatchString(width.Narrow.String(strings.TrimSpace(s)))
}

func looksLikeURL(v any) bool {
	s, ok := v.(string)
	return ok && urlPattern.MatchString(strings.TrimSpace(s))
}

func looksLikePhone(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = width.Narrow.String(strings.TrimSpace(s))
	if !phonePattern.MatchString(s) {
		return false
	}
	if !strings.ContainsAny(s, "-()+") && !strings.HasPrefix(s, "0") {
		return false
	}
	digits := nonDigit.ReplaceAllString(s, "")
	return len(digits) >= 9 && len(digits) <= 15
}

func looksLikeDate(v any) bool {
	switch v.(type) {
	case time.Time, *time.Time:
		return true
	case string:
		_, ok := ParseDate(v)
		return ok
	}
	return false
}

func looksLikeNumber(v any) bool {
	if _, ok := v.(bool); ok {
		return false
	}
	_, ok := ParseNumber(v)
	return ok
}
