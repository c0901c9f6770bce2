package format

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/JonMunkholm/facilitytables/internal/schema"
	"github.com/araddon/dateparse"
	"golang.org/x/text/number"
	"golang.org/x/text/width"
)

// dateLayouts are tried before falling back to dateparse, so that values
// already rendered in the display layout round-trip.
var dateLayouts = []string{
	"2006年01月02日",
	"2006年1月2日",
	"2006-01-02",
	"2006/01/02",
}

// rangeSeparators split a date_range string into its two ends.
var rangeSeparators = []string{"〜", "～", "~", " to ", " - "}

var nonDigit = regexp.MustCompile(`[^0-9]`)

func (f *Formatter) registerBuiltins() {
	f.types[schema.TypeText] = ValueFormatterFunc(f.formatText)
	f.types[schema.TypeEmail] = ValueFormatterFunc(formatEmail)
	f.types[schema.TypeURL] = ValueFormatterFunc(formatURL)
	f.types[schema.TypePhone] = ValueFormatterFunc(f.formatPhone)
	f.types[schema.TypeNumber] = ValueFormatterFunc(f.formatNumber)
	f.types[schema.TypeDate] = ValueFormatterFunc(f.formatDate)
	f.types[schema.TypeDateRange] = ValueFormatterFunc(f.formatDateRange)
	f.types[schema.TypeSelect] = ValueFormatterFunc(formatSelect)
}

func (f *Formatter) formatText(value any, col schema.ColumnSpec) string {
	s := Stringify(value)
	limit := col.MaxLength
	if limit <= 0 {
		limit = f.opts.TextMaxLength
	}
	return Truncate(s, limit)
}

// Truncate shortens s to at most limit runes, ending with an ellipsis.
// A non-positive limit disables truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit == 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}

func formatEmail(value any, _ schema.ColumnSpec) string {
	s := width.Narrow.String(Stringify(value))
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return s
	}
	return s[:at] + "@" + strings.ToLower(s[at+1:])
}

func formatURL(value any, _ schema.ColumnSpec) string {
	s := width.Narrow.String(Stringify(value))
	if strings.Contains(s, "://") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "mailto:") {
		return s
	}
	return "https://" + s
}

func (f *Formatter) formatPhone(value any, _ schema.ColumnSpec) string {
	// Long vowel marks and dash variants are common in hand-typed numbers.
	s := strings.NewReplacer("ー", "-", "ｰ", "-", "‐", "-", "−", "-", "－", "-").Replace(Stringify(value))
	s = width.Narrow.String(s)
	if f.opts.PhonePattern == "" {
		return s
	}

	groups, ok := parsePattern(f.opts.PhonePattern)
	if !ok {
		return s
	}
	digits := nonDigit.ReplaceAllString(s, "")
	total := 0
	for _, g := range groups {
		total += g
	}
	if len(digits) != total || strings.HasPrefix(s, "+") {
		return s
	}

	parts := make([]string, 0, len(groups))
	pos := 0
	for _, g := range groups {
		parts = append(parts, digits[pos:pos+g])
		pos += g
	}
	return strings.Join(parts, "-")
}

// parsePattern reads a grouping such as "3-4-4".
func parsePattern(p string) ([]int, bool) {
	fields := strings.Split(p, "-")
	groups := make([]int, 0, len(fields))
	for _, field := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n <= 0 {
			return nil, false
		}
		groups = append(groups, n)
	}
	return groups, len(groups) > 0
}

func (f *Formatter) formatNumber(value any, col schema.ColumnSpec) string {
	n, ok := ParseNumber(value)
	if !ok {
		return Stringify(value)
	}
	decimals := col.Decimals
	if decimals < 0 {
		decimals = 0
	}
	out := f.printer.Sprint(number.Decimal(n, number.Scale(decimals)))
	if col.Unit != "" {
		out += col.Unit
	}
	return out
}

// ParseNumber extracts a float from numbers and numeric strings, accepting
// thousands separators, full-width digits and a leading currency sign.
func ParseNumber(value any) (float64, bool) {
	switch t := value.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case bool, nil:
		return 0, false
	}

	s := width.Narrow.String(Stringify(value))
	s = strings.TrimLeft(s, "¥$€£")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (f *Formatter) formatDate(value any, col schema.ColumnSpec) string {
	t, ok := ParseDate(value)
	if !ok {
		return Stringify(value)
	}
	return t.Format(f.dateLayout(col))
}

func (f *Formatter) dateLayout(col schema.ColumnSpec) string {
	if col.DateFormat != "" {
		return col.DateFormat
	}
	return f.opts.DateLayout
}

// ParseDate parses time values and common date strings. Pure digit strings
// are rejected so that identifiers are not mistaken for unix timestamps.
func ParseDate(value any) (time.Time, bool) {
	switch t := value.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	}

	s := width.Narrow.String(Stringify(value))
	if s == "" || isAllDigits(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (f *Formatter) formatDateRange(value any, col schema.ColumnSpec) string {
	start, end, ok := splitRange(value)
	if !ok {
		return Stringify(value)
	}

	layout := f.dateLayout(col)
	var parts [2]string
	for i, v := range []any{start, end} {
		if IsEmpty(v) {
			parts[i] = ""
			continue
		}
		t, ok := ParseDate(v)
		if !ok {
			return Stringify(value)
		}
		parts[i] = t.Format(layout)
	}
	return strings.TrimSpace(parts[0] + f.opts.RangeSeparator + parts[1])
}

// splitRange accepts [start, end] lists, {start,end} / {from,to} maps, and
// strings joined by a range separator.
func splitRange(value any) (any, any, bool) {
	switch t := value.(type) {
	case []any:
		if len(t) == 2 {
			return t[0], t[1], true
		}
		return nil, nil, false
	case []string:
		if len(t) == 2 {
			return t[0], t[1], true
		}
		return nil, nil, false
	case map[string]any:
		if s, ok := t["start"]; ok {
			return s, t["end"], true
		}
		if s, ok := t["from"]; ok {
			return s, t["to"], true
		}
		return nil, nil, false
	}

	s := Stringify(value)
	for _, sep := range rangeSeparators {
		if idx := strings.Index(s, sep); idx >= 0 {
			return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+len(sep):]), true
		}
	}
	return nil, nil, false
}

func formatSelect(value any, col schema.ColumnSpec) string {
	s := Stringify(value)
	if label, ok := col.Options[s]; ok {
		return label
	}
	return s
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
