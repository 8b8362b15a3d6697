package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/margalk/catms/internal/currency"
)

// NotAvailable is rendered for any absent non-monetary value.
const NotAvailable = "N/A"

// DateLayout is the short calendar date used in every export.
const DateLayout = "Jan 2, 2006"

// Record is one domain object as decoded from the clinic API: a JSON object
// whose related objects (Patient, Doctor, ...) appear as nested objects.
type Record map[string]any

// Lookup resolves a dotted path such as "Patient.full_name". It reports
// false when any link of the chain is missing or null.
func (r Record) Lookup(path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, key := range strings.Split(path, ".") {
		obj, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		v, ok := obj[key]
		if !ok || v == nil {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, true
	case Record:
		return o, true
	}
	return nil, false
}

// Formatter holds the presentation settings shared by all projectors.
type Formatter struct {
	Location *time.Location
}

func (f Formatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

// Text renders the value at path, or N/A when it is absent or blank.
func (f Formatter) Text(r Record, path string) string {
	v, ok := r.Lookup(path)
	if !ok {
		return NotAvailable
	}
	s := scalar(v)
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

// Date renders the value at path as a short calendar date, or N/A when it is
// absent or cannot be read as a date.
func (f Formatter) Date(r Record, path string) string {
	v, ok := r.Lookup(path)
	if !ok {
		return NotAvailable
	}
	t, ok := f.parseTime(v)
	if !ok {
		return NotAvailable
	}
	return t.Format(DateLayout)
}

// Amount reads the numeric value at path; absent or non-numeric values are 0.
func (f Formatter) Amount(r Record, path string) float64 {
	v, _ := r.Lookup(path)
	n, ok := currency.ToFloat(v)
	if !ok {
		return 0
	}
	return n
}

// Money renders the value at path as currency. Absent money is zero money.
func (f Formatter) Money(r Record, path string) string {
	return currency.Format(f.Amount(r, path))
}

// Flag renders a boolean field with the given labels, or N/A when absent.
func (f Formatter) Flag(r Record, path, yes, no string) string {
	v, ok := r.Lookup(path)
	if !ok {
		return NotAvailable
	}
	switch b := v.(type) {
	case bool:
		if b {
			return yes
		}
		return no
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			if parsed {
				return yes
			}
			return no
		}
	default:
		if n, ok := currency.ToFloat(b); ok {
			if n != 0 {
				return yes
			}
			return no
		}
	}
	return NotAvailable
}

// dateOnlyLayouts are calendar dates without a clock; they are taken as the
// given day in the export location rather than shifted from UTC.
var dateOnlyLayouts = []string{"2006-01-02", "2006/01/02"}

// localLayouts are wall-clock timestamps without an offset; they are read in
// the export location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05.999999-07",
}

func (f Formatter) parseTime(v any) (time.Time, bool) {
	loc := f.location()
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.In(loc), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return t.In(loc), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateOnlyLayouts {
			if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
				return parsed, true
			}
		}
		for _, layout := range localLayouts {
			if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
				return parsed, true
			}
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.In(loc), true
			}
		}
	case float64:
		// epoch milliseconds
		return time.UnixMilli(int64(t)).In(loc), true
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms).In(loc), true
		}
	}
	return time.Time{}, false
}

func scalar(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		if s {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case json.Number:
		return s.String()
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%d", s)
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
