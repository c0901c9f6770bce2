// Package format turns raw business values into display strings according to
// a table's column specs, and derives the layout data a renderer needs:
// inferred columns, rowspan groups, hierarchical headers, cell merges,
// column widths and conditional column filtering.
//
// All functions are pure with respect to their inputs. Every string returned
// by the formatter is HTML-escaped, so renderers may write it verbatim.
package format

import (
	"encoding/json"
	"fmt"
	"html"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/facilitytables/internal/schema"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultEmptyMarker is shown for nil or empty values.
const DefaultEmptyMarker = "未設定"

// DefaultDateLayout is the Go layout dates are rendered with.
const DefaultDateLayout = "2006年01月02日"

// DefaultRangeSeparator joins the two ends of a date range.
const DefaultRangeSeparator = " 〜 "

// Options configures a Formatter. Zero values select the defaults.
type Options struct {
	EmptyMarker    string // default 未設定
	DateLayout     string // Go time layout, default 2006年01月02日
	RangeSeparator string // default " 〜 "
	Locale         string // BCP 47 tag used for number grouping, default "ja"
	PhonePattern   string // digit grouping such as "3-4-4"; empty keeps the input grouping
	TextMaxLength  int    // 0 disables truncation unless a column sets max_length
}

func (o Options) withDefaults() Options {
	if o.EmptyMarker == "" {
		o.EmptyMarker = DefaultEmptyMarker
	}
	if o.DateLayout == "" {
		o.DateLayout = DefaultDateLayout
	}
	if o.RangeSeparator == "" {
		o.RangeSeparator = DefaultRangeSeparator
	}
	if o.Locale == "" {
		o.Locale = "ja"
	}
	return o
}

// ValueFormatter formats a single non-empty value for one column type.
// Implementations return plain (unescaped) text; the Formatter escapes it.
type ValueFormatter interface {
	Format(value any, col schema.ColumnSpec) string
}

// ValueFormatterFunc adapts a function to ValueFormatter.
type ValueFormatterFunc func(value any, col schema.ColumnSpec) string

// Format calls f(value, col).
func (f ValueFormatterFunc) Format(value any, col schema.ColumnSpec) string {
	return f(value, col)
}

// Formatter formats values and tables. It is safe for concurrent use once
// configured; Register and RegisterPredicate take a lock.
type Formatter struct {
	opts    Options
	printer *message.Printer

	mu         sync.RWMutex
	types      map[schema.ColumnType]ValueFormatter
	predicates map[string]Predicate
}

// New creates a Formatter with the built-in type formatters registered.
func New(opts Options) *Formatter {
	opts = opts.withDefaults()

	tag, err := language.Parse(opts.Locale)
	if err != nil {
		tag = language.Japanese
	}

	f := &Formatter{
		opts:       opts,
		printer:    message.NewPrinter(tag),
		types:      make(map[schema.ColumnType]ValueFormatter),
		predicates: make(map[string]Predicate),
	}
	f.registerBuiltins()
	return f
}

// Options returns the effective options.
func (f *Formatter) Options() Options {
	return f.opts
}

// EmptyMarker returns the string shown for empty values.
func (f *Formatter) EmptyMarker() string {
	return f.opts.EmptyMarker
}

// Register installs (or replaces) the formatter for a column type.
func (f *Formatter) Register(t schema.ColumnType, vf ValueFormatter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types[t] = vf
}

func (f *Formatter) formatterFor(t schema.ColumnType) ValueFormatter {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if vf, ok := f.types[t]; ok {
		return vf
	}
	return f.types[schema.TypeText]
}

// FormatValue renders value for col. Empty values yield the empty marker.
// It never panics on unexpected input; unknown shapes fall back to their
// string form.
func (f *Formatter) FormatValue(value any, col schema.ColumnSpec) (out string) {
	if IsEmpty(value) {
		return html.EscapeString(f.opts.EmptyMarker)
	}

	defer func() {
		if r := recover(); r != nil {
			out = html.EscapeString(Stringify(value))
		}
	}()

	return html.EscapeString(f.formatterFor(col.Type).Format(value, col))
}

// IsEmpty reports whether v should render as the empty marker.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case json.Number:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return IsEmpty(rv.Elem().Interface())
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

// Stringify converts an arbitrary value to its plain display form.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := Stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
	return fmt.Sprint(v)
}

// plain reverses the HTML escaping applied by FormatValue, for length math.
func plain(s string) string {
	return html.UnescapeString(s)
}
